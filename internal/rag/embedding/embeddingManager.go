package embedding

import (
	"context"
	"errors"
)

// ErrTransient marks provider failures worth retrying: rate limits and
// backend unavailability. Providers wrap their errors with it; anything not
// carrying it fails fast.
var ErrTransient = errors.New("transient embedding failure")

// Provider is a raw embedding backend. EmbedBatch must return exactly one
// vector and one token count per input text, in input order. Backends that
// only report request-level usage apportion it across the batch.
type Provider interface {
	Model() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int, error)
}

// Embedder is the surface the ingest and retrieval paths consume: a provider
// wrapped with content-hash caching, batching and retry.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Clear()
}
