package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/internal/rag"
	"github.com/akolanti/DocGuard/internal/rag/guard"
	"github.com/akolanti/DocGuard/internal/rag/ingest"
	"github.com/akolanti/DocGuard/internal/rag/registry"
)

const (
	fallbackEN = "I cannot find this information in the provided records/documents."
	fallbackTR = "Bu bilgiyi mevcut kayıtlarda/belgelerde bulamıyorum."
)

func goodCandidates() []docModel.RetrievalCandidate {
	return []docModel.RetrievalCandidate{
		{
			Chunk: docModel.DocumentChunk{
				Id:          "doc-1:0",
				DocumentId:  "doc-1",
				DocName:     "spec.pdf",
				Content:     "Earthing resistance shall not exceed 10 ohms at any station.",
				PageOrSheet: "Page 3",
			},
			CombinedScore: 0.8,
		},
	}
}

func newTestService(t *testing.T, ret *MockRetriever, l *MockLLM, ix *MockIndexer, store *MockStore) rag.Service {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	return rag.NewService(ret, guard.New(guard.DefaultOptions()), l, ix, store, reg)
}

func queryJob(question string) jobModel.Job {
	return jobModel.Job{
		Id:         "test-job",
		JobPayload: jobModel.JobPayload{Question: question},
	}
}

func testCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestProcessQuery_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		question       string
		setupMocks     func(r *MockRetriever, l *MockLLM)
		expectedStatus jobModel.JobStatus
		expectedAnswer string
		expectedReason string
		expectedCalls  int
		expectAnswered bool
	}{
		{
			name:     "Success_Full_Flow",
			question: "What is the earthing resistance limit?",
			setupMocks: func(r *MockRetriever, l *MockLLM) {
				r.OnRetrieve = func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
					return goodCandidates(), nil
				}
				l.OnComplete = func(context.Context, string, string, string) (string, error) {
					return "The limit is 10 ohms [Source: spec.pdf | Page 3].", nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: "The limit is 10 ohms [Source: spec.pdf | Page 3].",
			expectedCalls:  1,
			expectAnswered: true,
		},
		{
			name:     "NoResults_SkipsProvider",
			question: "What is the earthing resistance limit?",
			setupMocks: func(r *MockRetriever, l *MockLLM) {
				r.OnRetrieve = func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
					return nil, nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: fallbackEN,
			expectedReason: "NO_RESULTS",
			expectedCalls:  0,
		},
		{
			name:     "LowScore_SkipsProvider",
			question: "What is the earthing resistance limit?",
			setupMocks: func(r *MockRetriever, l *MockLLM) {
				r.OnRetrieve = func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
					c := goodCandidates()
					c[0].CombinedScore = 0.05
					return c, nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: fallbackEN,
			expectedReason: "LOW_SCORE",
			expectedCalls:  0,
		},
		{
			name:     "Hedging_Answer_Discarded",
			question: "What is the earthing resistance limit?",
			setupMocks: func(r *MockRetriever, l *MockLLM) {
				r.OnRetrieve = func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
					return goodCandidates(), nil
				}
				l.OnComplete = func(context.Context, string, string, string) (string, error) {
					return "It is probably 10 ohms [Source: spec.pdf | Page 3].", nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: fallbackEN,
			expectedReason: "FORBIDDEN_LANGUAGE",
			expectedCalls:  1,
		},
		{
			name:     "Missing_Citation_Discarded",
			question: "What is the earthing resistance limit?",
			setupMocks: func(r *MockRetriever, l *MockLLM) {
				r.OnRetrieve = func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
					return goodCandidates(), nil
				}
				l.OnComplete = func(context.Context, string, string, string) (string, error) {
					return "The limit is 10 ohms.", nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: fallbackEN,
			expectedReason: "MISSING_CITATION",
			expectedCalls:  1,
		},
		{
			name:     "Turkish_Query_Gets_Turkish_Fallback",
			question: "Topraklama direnci kaç ohm?",
			setupMocks: func(r *MockRetriever, l *MockLLM) {
				r.OnRetrieve = func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
					return nil, nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: fallbackTR,
			expectedReason: "NO_RESULTS",
			expectedCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRet := &MockRetriever{}
			mLLM := &MockLLM{}
			tt.setupMocks(mRet, mLLM)

			s := newTestService(t, mRet, mLLM, &MockIndexer{}, &MockStore{})
			result := s.ProcessQuery(testCtx(), queryJob(tt.question))

			if result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
			if result.JobPayload.Answer != tt.expectedAnswer {
				t.Errorf("Answer got %q, want %q", result.JobPayload.Answer, tt.expectedAnswer)
			}
			if result.JobPayload.ReasonCode != tt.expectedReason {
				t.Errorf("ReasonCode got %q, want %q", result.JobPayload.ReasonCode, tt.expectedReason)
			}
			if mLLM.Calls != tt.expectedCalls {
				t.Errorf("LLM calls got %d, want %d", mLLM.Calls, tt.expectedCalls)
			}
			if result.JobPayload.Answered != tt.expectAnswered {
				t.Errorf("Answered got %v, want %v", result.JobPayload.Answered, tt.expectAnswered)
			}
		})
	}
}

func TestProcessQuery_SourcesOnSuccess(t *testing.T) {
	mRet := &MockRetriever{
		OnRetrieve: func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
			return goodCandidates(), nil
		},
	}
	s := newTestService(t, mRet, &MockLLM{}, &MockIndexer{}, &MockStore{})

	result := s.ProcessQuery(testCtx(), queryJob("What is the earthing resistance limit?"))
	if len(result.JobPayload.Sources) != 1 || result.JobPayload.Sources[0] != "spec.pdf | Page 3" {
		t.Errorf("Sources = %v; want [spec.pdf | Page 3]", result.JobPayload.Sources)
	}
}

func TestProcessQuery_ProviderFailure(t *testing.T) {
	mRet := &MockRetriever{
		OnRetrieve: func(context.Context, string, string) ([]docModel.RetrievalCandidate, error) {
			return goodCandidates(), nil
		},
	}
	mLLM := &MockLLM{
		OnComplete: func(context.Context, string, string, string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	s := newTestService(t, mRet, mLLM, &MockIndexer{}, &MockStore{})

	result := s.ProcessQuery(testCtx(), queryJob("What is the earthing resistance limit?"))
	if result.Status != jobModel.JobStatusError {
		t.Errorf("Status got %v, want error", result.Status)
	}
	if result.Error.Code != http.StatusServiceUnavailable {
		t.Errorf("Error code got %d, want 503", result.Error.Code)
	}
	if result.Error.Message != "Service Unavailable" {
		t.Errorf("caller-facing message %q leaks internal detail", result.Error.Message)
	}
	if result.JobPayload.ReasonCode != "PROVIDER_ERROR" {
		t.Errorf("ReasonCode got %q, want PROVIDER_ERROR", result.JobPayload.ReasonCode)
	}
}

func TestIngestDocument_Scenarios(t *testing.T) {
	stageFile := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "upload.txt")
		if err := os.WriteFile(path, []byte("staged content"), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("Ingestion_Success", func(t *testing.T) {
		path := stageFile(t)
		mIx := &MockIndexer{
			OnIndexFile: func(ctx context.Context, documentId, filename, p string) (docModel.RegistryEntry, error) {
				return docModel.RegistryEntry{
					DocumentId: documentId,
					Filename:   filename,
					ChunkIds:   []string{documentId + ":0", documentId + ":1"},
				}, nil
			},
		}
		s := newTestService(t, &MockRetriever{}, &MockLLM{}, mIx, &MockStore{})

		job := jobModel.Job{
			Id: "ingest-job-1",
			JobPayload: jobModel.JobPayload{
				IngestFileName: "upload.txt",
				IngestURL:      path,
			},
		}
		result := s.IngestDocument(testCtx(), job)

		if result.Status != jobModel.JobStatusComplete {
			t.Errorf("Status got %v, want complete", result.Status)
		}
		if result.JobPayload.ChunkCount != 2 {
			t.Errorf("ChunkCount got %d, want 2", result.JobPayload.ChunkCount)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("staged upload was not removed after ingestion")
		}
	})

	t.Run("Ingestion_Failure", func(t *testing.T) {
		path := stageFile(t)
		mIx := &MockIndexer{
			OnIndexFile: func(context.Context, string, string, string) (docModel.RegistryEntry, error) {
				return docModel.RegistryEntry{}, errors.New("extraction failed")
			},
		}
		s := newTestService(t, &MockRetriever{}, &MockLLM{}, mIx, &MockStore{})

		result := s.IngestDocument(testCtx(), jobModel.Job{
			Id:         "ingest-job-2",
			JobPayload: jobModel.JobPayload{IngestFileName: "upload.txt", IngestURL: path},
		})

		if result.Status != jobModel.JobStatusError {
			t.Errorf("Status got %v, want error", result.Status)
		}
		if result.Error.Code != http.StatusInternalServerError {
			t.Errorf("Error code got %d, want 500", result.Error.Code)
		}
	})
}

func TestDeleteDocument_Scenarios(t *testing.T) {
	t.Run("Delete_Success", func(t *testing.T) {
		mIx := &MockIndexer{
			OnDeleteDocument: func(ctx context.Context, documentId string) (int, error) {
				return 5, nil
			},
		}
		s := newTestService(t, &MockRetriever{}, &MockLLM{}, mIx, &MockStore{})

		result := s.DeleteDocument(testCtx(), jobModel.Job{
			Id:         "delete-job-1",
			JobPayload: jobModel.JobPayload{DocumentId: "doc-1"},
		})
		if result.Status != jobModel.JobStatusComplete {
			t.Errorf("Status got %v, want complete", result.Status)
		}
		if result.JobPayload.ChunkCount != 5 {
			t.Errorf("ChunkCount got %d, want 5", result.JobPayload.ChunkCount)
		}
	})

	t.Run("Delete_Unknown_Document", func(t *testing.T) {
		mIx := &MockIndexer{
			OnDeleteDocument: func(context.Context, string) (int, error) {
				return 0, ingest.ErrNotIndexed
			},
		}
		s := newTestService(t, &MockRetriever{}, &MockLLM{}, mIx, &MockStore{})

		result := s.DeleteDocument(testCtx(), jobModel.Job{
			Id:         "delete-job-2",
			JobPayload: jobModel.JobPayload{DocumentId: "ghost"},
		})
		if result.Status != jobModel.JobStatusError || result.Error.Code != http.StatusNotFound {
			t.Errorf("got status %v code %d; want error 404", result.Status, result.Error.Code)
		}
	})
}
