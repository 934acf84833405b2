package rag

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/internal/metrics"
	"github.com/akolanti/DocGuard/internal/rag/language"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessQuery", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

// serviceUnavailable terminates a query after a provider or network failure.
// The caller gets the localized fallback and a generic message - never the
// internal error detail.
func (s *service) serviceUnavailable(job jobModel.Job, lang language.Language, err error, message string) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.JobPayload.Answer = language.FallbackMessage(lang)
	job.JobPayload.ReasonCode = string(docModel.ReasonProviderError)
	job.Error = jobModel.JobError{
		Code:    http.StatusServiceUnavailable,
		Message: "Service Unavailable",
		Retry:   true,
	}
	job.Status = jobModel.JobStatusError
	return job
}

// guardFallback completes a query that a guard refused. Refusals are
// expected outcomes: the job finishes COMPLETE with the fallback answer and
// the decision's reason code, and the decision is logged, not errored.
func (s *service) guardFallback(job jobModel.Job, lang language.Language, decision docModel.GuardDecision) jobModel.Job {
	s.logger.Info("guard refusal",
		"stage", decision.Stage, "reason", decision.Reason, "evidence", decision.Evidence)

	job.JobPayload.Answer = language.FallbackMessage(lang)
	job.JobPayload.ReasonCode = string(decision.Reason)
	job.JobPayload.Answered = false
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) ([]docModel.RetrievalCandidate, error) {
	*job = logOutput(*job, jobModel.RetrievalCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	return s.retriever.Retrieve(ctx, job.JobPayload.Question, job.JobPayload.DocumentId)
}

func (s *service) executePreGuardStep(log *logger_i.Logger, job *jobModel.Job, question string, candidates []docModel.RetrievalCandidate) docModel.GuardDecision {
	*job = logOutput(*job, jobModel.PreGuardCheck, log)

	decision := s.guard.PreCheck(question, candidates)
	metrics.CaptureGuardDecision(string(decision.Stage), string(decision.Outcome), string(decision.Reason))
	return decision
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, lang language.Language, question string, candidates []docModel.RetrievalCandidate) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	systemPrompt := strings.ReplaceAll(config.SystemPrompt, "{{LANGUAGE}}", language.Name(lang))
	return s.llmProvider.Complete(ctx, systemPrompt, buildEvidence(candidates), question)
}

func (s *service) executePostGuardStep(log *logger_i.Logger, job *jobModel.Job, answer string, candidates []docModel.RetrievalCandidate) docModel.GuardDecision {
	*job = logOutput(*job, jobModel.PostGuardCheck, log)

	decision := s.guard.PostCheck(answer, candidates)
	metrics.CaptureGuardDecision(string(decision.Stage), string(decision.Outcome), string(decision.Reason))
	return decision
}
