package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocGuard/internal/api"
	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/internal/job"
	"github.com/akolanti/DocGuard/internal/metrics"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new job")
	handlerInstance.pushToJobChannel(newJob)
	if newJob.isNewProject {
		logJH.Info("Create new project")
		handlerInstance.initNewProject(newJob.projectId, newJob.traceId)
	}
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func GetProjectHistory(projectId string, traceId string) ([]jobModel.JobPayload, bool) {
	if handlerInstance == nil {
		return nil, false
	}
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if !handlerInstance.service.HistoryStore.ValidateProjectId(ctxC, projectId) {
		return nil, false
	}
	history, err := handlerInstance.service.HistoryStore.GetHistory(ctxC, projectId)
	if err != nil {
		logJH.Error("Error reading project history", "projectId", projectId, "err", err)
		return nil, false
	}
	return history, true
}

func ValidateQueryRequest(queryReq api.QueryRequest) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.Debug(" Validating project id ", "projectId :", queryReq.ProjectID)
	if queryReq.Question == "" {
		return false
	}
	if queryReq.ProjectID == "" {
		return true
	}
	return handlerInstance.service.HistoryStore.ValidateProjectId(context.Background(), queryReq.ProjectID)
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.JobType = newJob.jobType

	switch newJob.jobType {
	case jobModel.JobTypeIngest:
		_job.CurrentStep = jobModel.IngestInit
		_job.JobPayload.IngestFileName = newJob.documentName
		_job.JobPayload.IngestURL = newJob.documentSource

	case jobModel.JobTypeDelete:
		_job.CurrentStep = jobModel.DeleteProcessing
		_job.JobPayload.DocumentId = newJob.documentId

	default:
		_job.ProjectId = newJob.projectId
		_job.JobPayload.Question = newJob.question
		_job.JobPayload.DocumentId = newJob.documentId
		_job.CurrentStep = jobModel.UserQueryInit
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//we will start a new worker every 10 requests - can also be configured
	// or
	//for performance - a new worker is added  for a document ingestion type job
	//ingestion involves batch processing which might take time - external system call
	//worker will be removed if it has idle time - so it should be ok
	//this also allows us to only keep 1 worker running at most times therefore cutting resource spend

	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count ", accurateCount)
		h.service.DispatcherChannel <- true
	}
}

func (h *JobHandler) initNewProject(projectId string, traceId string) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	err := h.service.HistoryStore.InitProject(ctxC, projectId)
	if err != nil {
		logJH.Error("Error initiating new project", projectId, err)
		return
	}
}
