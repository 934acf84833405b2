package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit InternalStatus = "Init"
	Classified    InternalStatus = "Classified"
	RetrievalCall InternalStatus = "Retrieval"
	PreGuardCheck InternalStatus = "PreGuard"
	LLMCall       InternalStatus = "LLM"
	PostGuardCheck InternalStatus = "PostGuard"
	RedisCall     InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	DeleteProcessing InternalStatus = "DeleteProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
	JobTypeDelete JobType = "Delete"
)

type Job struct {
	Id          string         `json:"id"`
	ProjectId   string         `json:"project_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question   string   `json:"question,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Language   string   `json:"language,omitempty"`
	Answered   bool     `json:"answered,omitempty"`
	ReasonCode string   `json:"reason_code,omitempty"`

	DocumentId string `json:"document_id,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`

	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestURL      string `json:"ingest_url,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// HistoryStore keeps the per-project answer log served by the history
// endpoint.
type HistoryStore interface {
	ValidateProjectId(ctx context.Context, id string) bool
	InitProject(ctx context.Context, id string) error
	AppendHistory(ctx context.Context, projectId string, payload JobPayload) error
	GetHistory(ctx context.Context, projectId string) ([]JobPayload, error)
}
