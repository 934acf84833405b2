package vectorDB

import (
	"context"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
)

type SearchResult struct {
	Chunk docModel.DocumentChunk
	Score float64
}

type Stats struct {
	TotalChunks    int `json:"total_chunks"`
	TotalDocuments int `json:"total_documents"`
}

// Store is the contract every vector backend must satisfy: a managed engine
// (qdrantDB) and the in-process flat-file fallback (localDB) implement
// exactly this surface, selected by configuration at startup.
type Store interface {
	Upsert(ctx context.Context, chunks []docModel.DocumentChunk, vectors [][]float32) error
	Remove(ctx context.Context, documentId string) error
	Search(ctx context.Context, queryVector []float32, topK int, documentId string) ([]SearchResult, error)
	ScrollAll(ctx context.Context) ([]docModel.DocumentChunk, error)
	Stats(ctx context.Context) (Stats, error)
}
