package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/DocGuard/internal/api"
	"github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
	}

	switch job.JobType {
	case jobModel.JobTypeIngest:
		result.IngestResult = toIngestResult(job.JobPayload)
	case jobModel.JobTypeDelete:
		result.DeleteResult = toDeleteResult(job.JobPayload)
	default:
		result.QueryResult = toQueryResult(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		ProjectId: job.ProjectId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func toQueryResult(payload jobModel.JobPayload) *api.QueryResponse {
	if payload.Answer == "" && len(payload.Sources) == 0 {
		return nil
	}

	return &api.QueryResponse{
		Question:   payload.Question,
		Answer:     payload.Answer,
		Sources:    payload.Sources,
		Answered:   payload.Answered,
		Language:   payload.Language,
		ReasonCode: payload.ReasonCode,
	}
}

func toIngestResult(payload jobModel.JobPayload) *api.IngestResponse {
	if payload.DocumentId == "" {
		return nil
	}
	return &api.IngestResponse{
		DocumentId: payload.DocumentId,
		Filename:   payload.IngestFileName,
		ChunkCount: payload.ChunkCount,
	}
}

func toDeleteResult(payload jobModel.JobPayload) *api.DeleteResponse {
	if payload.DocumentId == "" {
		return nil
	}
	return &api.DeleteResponse{
		DocumentId: payload.DocumentId,
		ChunkCount: payload.ChunkCount,
	}
}

func ToHistoryResponse(projectId string, entries []jobModel.JobPayload) api.HistoryResponse {
	out := make([]api.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, api.HistoryEntry{
			Question:   e.Question,
			Answer:     e.Answer,
			Sources:    e.Sources,
			Answered:   e.Answered,
			ReasonCode: e.ReasonCode,
		})
	}
	return api.HistoryResponse{ProjectId: projectId, Entries: out}
}

func ToStatsResponse(stats vectorDB.Stats) api.StatsResponse {
	return api.StatsResponse{
		TotalDocuments: stats.TotalDocuments,
		TotalChunks:    stats.TotalChunks,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
