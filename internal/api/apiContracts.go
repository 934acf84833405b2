package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ProjectId string            `json:"project_id,omitempty" example:"project_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type QueryResponse struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	Answered   bool     `json:"answered"`
	Language   string   `json:"language,omitempty" example:"en"`
	ReasonCode string   `json:"reason_code,omitempty" example:"LOW_SCORE"`
}

type IngestResponse struct {
	DocumentId string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

type DeleteResponse struct {
	DocumentId string `json:"document_id"`
	ChunkCount int    `json:"chunks_removed"`
}

type Result struct {
	Status       string          `json:"status"`
	QueryResult  *QueryResponse  `json:"query_result,omitempty"`
	IngestResult *IngestResponse `json:"ingest_result,omitempty"`
	DeleteResult *DeleteResponse `json:"delete_result,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type HistoryEntry struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	Answered   bool     `json:"answered"`
	ReasonCode string   `json:"reason_code,omitempty"`
}

type HistoryResponse struct {
	ProjectId string         `json:"project_id"`
	Entries   []HistoryEntry `json:"entries"`
}

type StatsResponse struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
}

// requests---------------------

type QueryRequest struct {
	Question   string `json:"question" validate:"required"`
	ProjectID  string `json:"project_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}
