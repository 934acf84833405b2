package lexical

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
)

// Options for the BM25 scorer. Term statistics are computed over the
// candidate set handed in, not over the whole corpus; the guard thresholds
// downstream are tuned against exactly these scores.
type Options struct {
	K1         float64
	B          float64
	TitleBoost float64 //extra weight per fraction of query terms found in the heading path, 0 disables
}

func DefaultOptions() Options {
	return Options{K1: 1.5, B: 0.75, TitleBoost: 0.25}
}

type Scored struct {
	Chunk docModel.DocumentChunk
	Score float64
}

// Score ranks the chunk set against the query. It never returns an empty
// ranking for a non-empty chunk set: deciding whether the best candidate is
// good enough is the guard's job, not the scorer's.
func Score(query string, chunks []docModel.DocumentChunk, opts Options) []Scored {
	if len(chunks) == 0 {
		return nil
	}
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		out := make([]Scored, len(chunks))
		for i, c := range chunks {
			out[i] = Scored{Chunk: c}
		}
		return out
	}

	docs := make([]map[string]int, len(chunks))
	lengths := make([]int, len(chunks))
	totalLen := 0
	df := make(map[string]int)
	for i, c := range chunks {
		tf := termFrequencies(Tokenize(c.Content))
		docs[i] = tf
		for t := range tf {
			df[t]++
		}
		for _, n := range tf {
			lengths[i] += n
		}
		totalLen += lengths[i]
	}
	avgLen := float64(totalLen) / float64(len(chunks))
	if avgLen == 0 {
		avgLen = 1
	}

	n := float64(len(chunks))
	idf := make(map[string]float64, len(queryTerms))
	for _, t := range queryTerms {
		d := float64(df[t])
		idf[t] = math.Log(1 + (n-d+0.5)/(d+0.5))
	}

	out := make([]Scored, len(chunks))
	for i, c := range chunks {
		var score float64
		for _, t := range queryTerms {
			f := float64(docs[i][t])
			if f == 0 {
				continue
			}
			norm := opts.K1 * (1 - opts.B + opts.B*float64(lengths[i])/avgLen)
			score += idf[t] * (f * (opts.K1 + 1)) / (f + norm)
		}
		if opts.TitleBoost > 0 && score > 0 {
			score *= 1 + opts.TitleBoost*headingMatchFraction(queryTerms, c.Headings)
		}
		out[i] = Scored{Chunk: c, Score: score}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// headingMatchFraction is the fraction of distinct query terms that occur
// anywhere in the chunk's heading path.
func headingMatchFraction(queryTerms []string, headings []string) float64 {
	if len(headings) == 0 || len(queryTerms) == 0 {
		return 0
	}
	headingTerms := make(map[string]bool)
	for _, h := range headings {
		for _, t := range Tokenize(h) {
			headingTerms[t] = true
		}
	}
	distinct := make(map[string]bool)
	matched := 0
	for _, t := range queryTerms {
		if distinct[t] {
			continue
		}
		distinct[t] = true
		if headingTerms[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(distinct))
}

// Tokenize lowercases and splits on non-alphanumeric boundaries, dropping
// empty tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
