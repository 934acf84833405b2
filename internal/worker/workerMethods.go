package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocGuard/internal/config"
	jobmodel "github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout(job.JobType))
	defer cancel()
	logger.With("trace Id ", job.TraceId)
	logger.Debug("Processing job:", "job Id:", job.Id)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	switch job.JobType {
	case jobmodel.JobTypeIngest:
		job.CurrentStep = jobmodel.IngestProcessing
		job = _ragService.IngestDocument(ctx, job)

	case jobmodel.JobTypeDelete:
		job.CurrentStep = jobmodel.DeleteProcessing
		job = _ragService.DeleteDocument(ctx, job)

	default:
		job = _ragService.ProcessQuery(ctx, job)
		if job.Status != jobmodel.JobStatusError && job.ProjectId != "" {
			if err := _jobService.HistoryStore.AppendHistory(ctx, job.ProjectId, job.JobPayload); err != nil {
				logger.Error("Failed to save query history", "err", err)
			}
		}
	}

	job.EndTime = time.Now()
	saveJobState(ctx, job, job.Status)
}

// jobTimeout budgets the job context per type: ingestion of a large document
// legitimately outlives a query many times over.
func jobTimeout(t jobmodel.JobType) time.Duration {
	if t == jobmodel.JobTypeIngest {
		return config.IngestProcessTimeout
	}
	return config.CompletionTimeout + config.ProcessTimeout
}

func removeWorker(reason string) {

	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()

}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update status in Redis", "err", err)
	}
}
