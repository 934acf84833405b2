package rag_test

import (
	"context"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
)

// MockRetriever implements rag.Retriever
type MockRetriever struct {
	OnRetrieve func(ctx context.Context, query string, documentId string) ([]docModel.RetrievalCandidate, error)
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, documentId string) ([]docModel.RetrievalCandidate, error) {
	if m.OnRetrieve != nil {
		return m.OnRetrieve(ctx, query, documentId)
	}
	return nil, nil
}

// MockIndexer implements rag.Indexer
type MockIndexer struct {
	OnIndexFile      func(ctx context.Context, documentId string, filename string, path string) (docModel.RegistryEntry, error)
	OnDeleteDocument func(ctx context.Context, documentId string) (int, error)
}

func (m *MockIndexer) IndexFile(ctx context.Context, documentId string, filename string, path string) (docModel.RegistryEntry, error) {
	if m.OnIndexFile != nil {
		return m.OnIndexFile(ctx, documentId, filename, path)
	}
	return docModel.RegistryEntry{DocumentId: documentId, Filename: filename}, nil
}

func (m *MockIndexer) DeleteDocument(ctx context.Context, documentId string) (int, error) {
	if m.OnDeleteDocument != nil {
		return m.OnDeleteDocument(ctx, documentId)
	}
	return 0, nil
}

// MockLLM implements llm.Provider and counts invocations so guard
// monotonicity can be asserted.
type MockLLM struct {
	Calls      int
	OnComplete func(ctx context.Context, systemPrompt string, evidence string, question string) (string, error)
}

func (m *MockLLM) Complete(ctx context.Context, systemPrompt string, evidence string, question string) (string, error) {
	m.Calls++
	if m.OnComplete != nil {
		return m.OnComplete(ctx, systemPrompt, evidence, question)
	}
	return "mocked llm response [Source: spec.pdf | Page 1]", nil
}

// MockStore implements vectorDB.Store for the orchestrator's stats path.
type MockStore struct {
	OnStats func(ctx context.Context) (vectorDB.Stats, error)
}

func (m *MockStore) Upsert(ctx context.Context, chunks []docModel.DocumentChunk, vectors [][]float32) error {
	return nil
}
func (m *MockStore) Remove(ctx context.Context, documentId string) error { return nil }
func (m *MockStore) Search(ctx context.Context, queryVector []float32, topK int, documentId string) ([]vectorDB.SearchResult, error) {
	return nil, nil
}
func (m *MockStore) ScrollAll(ctx context.Context) ([]docModel.DocumentChunk, error) {
	return nil, nil
}
func (m *MockStore) Stats(ctx context.Context) (vectorDB.Stats, error) {
	if m.OnStats != nil {
		return m.OnStats(ctx)
	}
	return vectorDB.Stats{}, nil
}
