package localDB

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

type row struct {
	Chunk  docModel.DocumentChunk `json:"chunk"`
	Vector []float32              `json:"vector"`
}

// Store is the dependency-free fallback backend: an in-process cosine scan
// over a flat file. It lets the system keep answering without a running
// vector-database process.
//
// All mutations swap the row map under the write lock, so a concurrent
// search sees either the pre- or post-mutation state of a document, never a
// half-removed one.
type Store struct {
	mu     sync.RWMutex
	path   string
	rows   map[string]row //chunk id -> row
	logger *logger_i.Logger
}

func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		rows:   make(map[string]row),
		logger: logger_i.NewLogger("LocalVectorStore"),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading local vector store: %w", err)
	}
	if err := json.Unmarshal(data, &s.rows); err != nil {
		return nil, fmt.Errorf("parsing local vector store %s: %w", path, err)
	}
	s.logger.Info("Local vector store loaded", "chunks", len(s.rows))
	return s, nil
}

func (s *Store) Upsert(ctx context.Context, chunks []docModel.DocumentChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		s.rows[c.Id] = row{Chunk: c, Vector: vectors[i]}
	}
	return s.persistLocked()
}

func (s *Store) Remove(ctx context.Context, documentId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rows {
		if r.Chunk.DocumentId == documentId {
			delete(s.rows, id)
		}
	}
	return s.persistLocked()
}

func (s *Store) Search(ctx context.Context, queryVector []float32, topK int, documentId string) ([]vectorDB.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}

	results := make([]vectorDB.SearchResult, 0, len(s.rows))
	for _, r := range s.rows {
		if documentId != "" && r.Chunk.DocumentId != documentId {
			continue
		}
		results = append(results, vectorDB.SearchResult{
			Chunk: r.Chunk,
			Score: cosineSimilarity(queryVector, r.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Id < results[j].Chunk.Id
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) ScrollAll(ctx context.Context) ([]docModel.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]docModel.DocumentChunk, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.Chunk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (vectorDB.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make(map[string]bool)
	for _, r := range s.rows {
		docs[r.Chunk.DocumentId] = true
	}
	return vectorDB.Stats{TotalChunks: len(s.rows), TotalDocuments: len(docs)}, nil
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.rows)
	if err != nil {
		return fmt.Errorf("marshalling vector store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("writing vector store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing vector store: %w", err)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
