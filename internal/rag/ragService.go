package rag

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/internal/metrics"
	"github.com/akolanti/DocGuard/internal/rag/guard"
	"github.com/akolanti/DocGuard/internal/rag/ingest"
	"github.com/akolanti/DocGuard/internal/rag/language"
	"github.com/akolanti/DocGuard/internal/rag/llm"
	"github.com/akolanti/DocGuard/internal/rag/registry"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

// Service is what the worker calls - it never sees the retriever, guard or
// provider clients behind it. Swapping the private struct's dependencies for
// mocks is how the pipeline is tested.
type Service interface {
	ProcessQuery(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	DeleteDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Stats(ctx context.Context) (vectorDB.Stats, error)
}

// Retriever is the slice of the hybrid retriever the orchestrator consumes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, documentId string) ([]docModel.RetrievalCandidate, error)
}

// Indexer is the slice of the ingest pipeline the orchestrator consumes.
type Indexer interface {
	IndexFile(ctx context.Context, documentId string, filename string, path string) (docModel.RegistryEntry, error)
	DeleteDocument(ctx context.Context, documentId string) (int, error)
}

type service struct {
	retriever   Retriever
	guard       *guard.Guard
	llmProvider llm.Provider
	indexer     Indexer
	store       vectorDB.Store
	registry    *registry.Registry
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(ret Retriever, g *guard.Guard, provider llm.Provider, ix Indexer, store vectorDB.Store, reg *registry.Registry) Service {
	return &service{
		retriever:   ret,
		guard:       g,
		llmProvider: provider,
		indexer:     ix,
		store:       store,
		registry:    reg,
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

// ProcessQuery runs one query through the full pipeline: classify the
// language, retrieve, pre-guard, generate, post-guard. Every exit path
// produces a terminal job - guard refusals complete with the localized
// fallback answer and a reason code, never an error status.
func (s *service) ProcessQuery(ctx context.Context, jobt jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY).(string), "JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, config.CompletionTimeout)
	defer cancel()

	question := jobt.JobPayload.Question

	// Classification
	lang := language.Detect(question)
	jobt.JobPayload.Language = string(lang)
	jobt = logOutput(jobt, jobModel.Classified, inMethodLogger)

	// Retrieval
	candidates, err := s.executeRetrievalStep(processContext, inMethodLogger, &jobt)
	if err != nil {
		return s.serviceUnavailable(jobt, lang, err, "RETRIEVAL_FAILURE")
	}

	// Pre-guard: the provider must never be called when this fails
	pre := s.executePreGuardStep(inMethodLogger, &jobt, question, candidates)
	if !pre.Passed() {
		return s.guardFallback(jobt, lang, pre)
	}

	// Generation
	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, lang, question, candidates)
	if err != nil {
		return s.serviceUnavailable(jobt, lang, err, "LLM_GENERATION_FAILURE")
	}

	// Post-guard: a failing answer is discarded, never surfaced
	post := s.executePostGuardStep(inMethodLogger, &jobt, answer, candidates)
	if !post.Passed() {
		return s.guardFallback(jobt, lang, post)
	}

	jobt.JobPayload.Sources = sourceRefs(candidates)
	jobt.JobPayload.Answered = true
	return returnOutput(jobt, answer)
}

// IngestDocument stages one uploaded file into the index. The staged upload
// is deleted afterwards whatever the outcome.
func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	processContext, cancel := context.WithTimeout(ctx, config.IngestProcessTimeout)
	defer cancel()

	job.CurrentStep = jobModel.IngestProcessing
	entry, err := s.indexer.IndexFile(processContext, job.Id, job.JobPayload.IngestFileName, job.JobPayload.IngestURL)

	if rmErr := os.Remove(job.JobPayload.IngestURL); rmErr != nil {
		s.logger.Error("Error removing staged upload", "error", rmErr)
	}

	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE", true)
	}

	job.JobPayload.DocumentId = entry.DocumentId
	job.JobPayload.ChunkCount = len(entry.ChunkIds)
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

// DeleteDocument removes a document's chunks and registry entry.
func (s *service) DeleteDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_deletion", time.Since(start)) }()

	processContext, cancel := context.WithTimeout(ctx, config.ProcessTimeout)
	defer cancel()

	job.CurrentStep = jobModel.DeleteProcessing
	removed, err := s.indexer.DeleteDocument(processContext, job.JobPayload.DocumentId)
	if err != nil {
		if errors.Is(err, ingest.ErrNotIndexed) {
			job.Error = jobModel.JobError{Code: http.StatusNotFound, Message: "Document not found", Retry: false}
			job.Status = jobModel.JobStatusError
			return job
		}
		return s.jobError(job, err, "DELETION_FAILURE", true)
	}

	job.JobPayload.ChunkCount = removed
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

// Stats reports index size. The registry is the source of truth for the
// document count; the vector store for the chunk count.
func (s *service) Stats(ctx context.Context) (vectorDB.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return vectorDB.Stats{}, err
	}
	st.TotalDocuments = s.registry.Count()
	return st, nil
}

// buildEvidence assembles the source-labelled excerpt block handed to the
// model: a "[Source: <doc> | <locator>]" line above each excerpt, excerpts
// separated by "---".
func buildEvidence(candidates []docModel.RetrievalCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, "[Source: "+c.Chunk.SourceRef()+"]\n"+c.Chunk.Content)
	}
	return strings.Join(parts, "\n---\n")
}

func sourceRefs(candidates []docModel.RetrievalCandidate) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, c := range candidates {
		ref := c.Chunk.SourceRef()
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
