package embedding

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/DocGuard/internal/config"
)

type fakeProvider struct {
	calls   int
	batches [][]string
	embed   func(texts []string) ([][]float32, []int, error)
}

func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.embed != nil {
		return f.embed(texts)
	}
	out := make([][]float32, len(texts))
	tokens := make([]int, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i)}
		tokens[i] = len(t)
	}
	return out, tokens, nil
}

func TestCachedEmbedder_HitSkipsProvider(t *testing.T) {
	p := &fakeProvider{}
	e := NewCachedEmbedder(p)
	ctx := context.Background()

	first, err := e.EmbedOne(ctx, "grounding clause text")
	if err != nil {
		t.Fatalf("first EmbedOne failed: %v", err)
	}
	second, err := e.EmbedOne(ctx, "grounding clause text")
	if err != nil {
		t.Fatalf("second EmbedOne failed: %v", err)
	}

	if p.calls != 1 {
		t.Errorf("provider called %d times; identical text must embed once", p.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cache returned a different vector for identical text")
	}
}

func TestCachedEmbedder_OnlyMissesReachProvider(t *testing.T) {
	p := &fakeProvider{}
	e := NewCachedEmbedder(p)
	ctx := context.Background()

	if _, err := e.Embed(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if _, err := e.Embed(ctx, []string{"beta", "gamma"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if p.calls != 2 {
		t.Fatalf("provider called %d times; want 2", p.calls)
	}
	if !reflect.DeepEqual(p.batches[1], []string{"gamma"}) {
		t.Errorf("second batch = %v; only the miss should reach the provider", p.batches[1])
	}
}

func TestCachedEmbedder_PreservesOrder(t *testing.T) {
	p := &fakeProvider{}
	e := NewCachedEmbedder(p)
	ctx := context.Background()

	if _, err := e.Embed(ctx, []string{"cached"}); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}

	vectors, err := e.Embed(ctx, []string{"new-a", "cached", "new-b"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors; want 3", len(vectors))
	}
	for i, v := range vectors {
		if v == nil {
			t.Errorf("vector %d is nil; every position must be filled", i)
		}
	}
	// "cached" embeds to [6, 0]; it must keep that value in the middle slot
	if vectors[1][0] != 6 {
		t.Errorf("middle vector = %v; cache hit landed in the wrong slot", vectors[1])
	}
}

func TestCachedEmbedder_TruncatesBeforeHashing(t *testing.T) {
	p := &fakeProvider{}
	e := NewCachedEmbedder(p)
	ctx := context.Background()

	long := strings.Repeat("x", config.EmbeddingMaxChars+500)
	if _, err := e.EmbedOne(ctx, long); err != nil {
		t.Fatalf("EmbedOne failed: %v", err)
	}
	// same prefix, different over-budget tail: must hit the cache
	if _, err := e.EmbedOne(ctx, long+"tail"); err != nil {
		t.Fatalf("EmbedOne failed: %v", err)
	}

	if p.calls != 1 {
		t.Errorf("provider called %d times; truncated-identical texts must share an entry", p.calls)
	}
	if got := len(p.batches[0][0]); got != config.EmbeddingMaxChars {
		t.Errorf("provider received %d chars; want %d", got, config.EmbeddingMaxChars)
	}
}

func TestCachedEmbedder_RecordsTokenCounts(t *testing.T) {
	p := &fakeProvider{embed: func(texts []string) ([][]float32, []int, error) {
		out := make([][]float32, len(texts))
		tokens := make([]int, len(texts))
		for i := range texts {
			out[i] = []float32{1}
			tokens[i] = 7
		}
		return out, tokens, nil
	}}
	e := NewCachedEmbedder(p)
	ctx := context.Background()

	if _, err := e.Embed(ctx, []string{"alpha", "beta", "gamma"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	// a cache hit must not change the recorded totals
	if _, err := e.EmbedOne(ctx, "beta"); err != nil {
		t.Fatalf("EmbedOne failed: %v", err)
	}

	entries, tokens := e.CacheStats()
	if entries != 3 {
		t.Errorf("cache holds %d entries; want 3", entries)
	}
	if tokens != 21 {
		t.Errorf("cache reports %d tokens; want 21", tokens)
	}
}

func TestCachedEmbedder_ClearForcesReEmbed(t *testing.T) {
	p := &fakeProvider{}
	e := NewCachedEmbedder(p)
	ctx := context.Background()

	if _, err := e.EmbedOne(ctx, "text"); err != nil {
		t.Fatalf("EmbedOne failed: %v", err)
	}
	e.Clear()
	if _, err := e.EmbedOne(ctx, "text"); err != nil {
		t.Fatalf("EmbedOne failed: %v", err)
	}

	if p.calls != 2 {
		t.Errorf("provider called %d times after Clear; want 2", p.calls)
	}
	if entries, _ := e.CacheStats(); entries != 1 {
		t.Errorf("cache holds %d entries after Clear and re-embed; want 1", entries)
	}
}

func TestCachedEmbedder_TransientErrorRetries(t *testing.T) {
	cause := errors.New("quota exhausted")
	p := &fakeProvider{embed: func([]string) ([][]float32, []int, error) {
		return nil, nil, fmt.Errorf("backend: %w: %w", ErrTransient, cause)
	}}
	e := NewCachedEmbedder(p)
	e.retryBaseWait = time.Millisecond

	_, err := e.EmbedOne(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error from failing provider")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v does not wrap the provider error", err)
	}
	if p.calls != config.EmbeddingMaxRetries+1 {
		t.Errorf("provider called %d times; want initial attempt plus %d retries", p.calls, config.EmbeddingMaxRetries)
	}
}

func TestCachedEmbedder_NonTransientErrorFailsFast(t *testing.T) {
	wantErr := errors.New("invalid api key")
	p := &fakeProvider{embed: func([]string) ([][]float32, []int, error) { return nil, nil, wantErr }}
	e := NewCachedEmbedder(p)
	e.retryBaseWait = time.Millisecond

	_, err := e.EmbedOne(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error from failing provider")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error %v does not wrap the provider error", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times for a non-retryable failure; want 1", p.calls)
	}
}
