package lexical

import (
	"reflect"
	"testing"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
)

func chunk(id, content string, headings ...string) docModel.DocumentChunk {
	return docModel.DocumentChunk{Id: id, Content: content, Headings: headings}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"MC4 connectors, 1500V DC!", []string{"mc4", "connectors", "1500v", "dc"}},
		{"dc/ac ratio", []string{"dc", "ac", "ratio"}},
		{"", nil},
		{"---", nil},
	}
	for _, tt := range tests {
		if got := Tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestKeywords_DropsStopWordsAndShortTokens(t *testing.T) {
	got := Keywords("What is the earthing resistance of the grid at PS2?")
	want := []string{"earthing", "resistance", "grid", "ps2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords = %v; want %v", got, want)
	}
}

func TestScore_RanksMatchingChunkFirst(t *testing.T) {
	chunks := []docModel.DocumentChunk{
		chunk("a", "The access road follows the northern fence line."),
		chunk("b", "Earthing resistance shall not exceed 10 ohms at any power station."),
		chunk("c", "Cable trays are galvanized steel throughout."),
	}
	ranked := Score("earthing resistance target", chunks, DefaultOptions())
	if len(ranked) != 3 {
		t.Fatalf("got %d results; want 3", len(ranked))
	}
	if ranked[0].Chunk.Id != "b" {
		t.Errorf("top chunk = %s; want b", ranked[0].Chunk.Id)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("top score %f not above runner-up %f", ranked[0].Score, ranked[1].Score)
	}
}

func TestScore_Deterministic(t *testing.T) {
	chunks := []docModel.DocumentChunk{
		chunk("a", "String sizing uses 27 panels per string at 1500V dc."),
		chunk("b", "The inverter has 12 mppt inputs with a current limit per input."),
		chunk("c", "Module temperature coefficient affects open circuit voltage."),
	}
	first := Score("mppt current limit", chunks, DefaultOptions())
	second := Score("mppt current limit", chunks, DefaultOptions())
	if !reflect.DeepEqual(first, second) {
		t.Error("identical query and chunk set produced different rankings")
	}
}

func TestScore_NeverEmptyForNonEmptySet(t *testing.T) {
	chunks := []docModel.DocumentChunk{
		chunk("a", "Completely unrelated prose about lunch options."),
	}
	ranked := Score("inverter shutdown scenario", chunks, DefaultOptions())
	if len(ranked) != 1 {
		t.Fatalf("scorer returned %d results; must return every candidate", len(ranked))
	}
}

func TestScore_TitleBoost(t *testing.T) {
	body := "The design values are listed in the table below."
	chunks := []docModel.DocumentChunk{
		chunk("plain", body),
		chunk("titled", body, "3 EARTHING DESIGN"),
	}
	// no query term in either body: title boost multiplies a zero base score,
	// so extend the body with one shared term
	chunks[0].Content += " earthing"
	chunks[1].Content += " earthing"

	ranked := Score("earthing design", chunks, DefaultOptions())
	if ranked[0].Chunk.Id != "titled" {
		t.Errorf("top chunk = %s; want titled (heading match should boost)", ranked[0].Chunk.Id)
	}
}

func TestScore_EmptyChunkSet(t *testing.T) {
	if got := Score("anything", nil, DefaultOptions()); got != nil {
		t.Errorf("Score on empty set = %v; want nil", got)
	}
}
