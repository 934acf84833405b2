package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/lexical"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
)

type fakeStore struct {
	searchFn func(queryVector []float32, topK int, documentId string) ([]vectorDB.SearchResult, error)
	chunks   []docModel.DocumentChunk
}

func (f *fakeStore) Upsert(ctx context.Context, chunks []docModel.DocumentChunk, vectors [][]float32) error {
	return nil
}
func (f *fakeStore) Remove(ctx context.Context, documentId string) error { return nil }
func (f *fakeStore) Search(ctx context.Context, queryVector []float32, topK int, documentId string) ([]vectorDB.SearchResult, error) {
	if f.searchFn != nil {
		return f.searchFn(queryVector, topK, documentId)
	}
	return nil, nil
}
func (f *fakeStore) ScrollAll(ctx context.Context) ([]docModel.DocumentChunk, error) {
	return f.chunks, nil
}
func (f *fakeStore) Stats(ctx context.Context) (vectorDB.Stats, error) {
	return vectorDB.Stats{}, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}
func (f *fakeEmbedder) Clear() {}

func testOpts() Options {
	return Options{
		TopK:          3,
		VectorK:       10,
		VectorWeight:  0.6,
		LexicalWeight: 0.4,
		BM25:          lexical.DefaultOptions(),
	}
}

func namedChunk(id, content string) docModel.DocumentChunk {
	return docModel.DocumentChunk{Id: id, DocumentId: "doc", DocName: "doc.pdf", Content: content, PageOrSheet: "Page 1"}
}

func TestRetrieve_MergesVectorAndLexical(t *testing.T) {
	chunks := []docModel.DocumentChunk{
		namedChunk("a", "Earthing resistance shall not exceed 10 ohms."),
		namedChunk("b", "The access road follows the fence line."),
	}
	store := &fakeStore{
		searchFn: func([]float32, int, string) ([]vectorDB.SearchResult, error) {
			return []vectorDB.SearchResult{
				{Chunk: chunks[0], Score: 0.9},
				{Chunk: chunks[1], Score: 0.3},
			}, nil
		},
	}

	got, err := New(store, &fakeEmbedder{}, testOpts()).Retrieve(context.Background(), "earthing resistance", "")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates; want 2", len(got))
	}
	if got[0].Chunk.Id != "a" {
		t.Errorf("top candidate = %s; want a", got[0].Chunk.Id)
	}
	top := got[0]
	if !top.HasVector || !top.HasLexical {
		t.Error("merged candidate must carry both score legs")
	}
	// vector 0.9 clamped, lexical max-normalized to 1
	want := 0.6*0.9 + 0.4*1.0
	if diff := top.CombinedScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("combined score = %f; want %f", top.CombinedScore, want)
	}
}

func TestRetrieve_LexicalFallbackOnEmbeddingFailure(t *testing.T) {
	store := &fakeStore{
		chunks: []docModel.DocumentChunk{
			namedChunk("a", "Cable trays are galvanized steel."),
			namedChunk("b", "Earthing resistance at the power station."),
		},
	}

	got, err := New(store, &fakeEmbedder{err: errors.New("provider down")}, testOpts()).
		Retrieve(context.Background(), "earthing resistance", "")
	if err != nil {
		t.Fatalf("fallback must not fail the query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates; want 2", len(got))
	}
	if got[0].Chunk.Id != "b" {
		t.Errorf("top candidate = %s; want b from lexical ranking", got[0].Chunk.Id)
	}
	if got[0].HasVector {
		t.Error("fallback candidates must not claim a vector score")
	}
}

func TestRetrieve_DocumentFilterInFallback(t *testing.T) {
	other := namedChunk("x", "Earthing earthing earthing.")
	other.DocumentId = "other"
	store := &fakeStore{
		chunks: []docModel.DocumentChunk{
			namedChunk("a", "Earthing resistance values."),
			other,
		},
	}

	got, err := New(store, &fakeEmbedder{err: errors.New("down")}, testOpts()).
		Retrieve(context.Background(), "earthing", "doc")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	for _, c := range got {
		if c.Chunk.DocumentId != "doc" {
			t.Errorf("candidate %s leaked from document %s", c.Chunk.Id, c.Chunk.DocumentId)
		}
	}
}

func TestRetrieve_TruncatesToTopK(t *testing.T) {
	var results []vectorDB.SearchResult
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		results = append(results, vectorDB.SearchResult{Chunk: namedChunk(id, "shared earthing content "+id), Score: 0.5})
	}
	store := &fakeStore{
		searchFn: func([]float32, int, string) ([]vectorDB.SearchResult, error) { return results, nil },
	}

	got, err := New(store, &fakeEmbedder{}, testOpts()).Retrieve(context.Background(), "earthing", "")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d candidates; want topK=3", len(got))
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	got, err := New(&fakeStore{}, &fakeEmbedder{}, testOpts()).Retrieve(context.Background(), "anything", "")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got != nil {
		t.Errorf("empty index returned %v; want nil", got)
	}
}
