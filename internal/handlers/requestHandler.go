package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/DocGuard/internal/adapter"
	"github.com/akolanti/DocGuard/internal/adapter/utils"
	"github.com/akolanti/DocGuard/internal/api"
	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

var logRH *logger_i.Logger

// technically i dont need this
// but i want to eventually remove jobHandler from handlers and set it in another package
// so in anticipation for that this struct exists
type newJobData struct {
	id             string
	projectId      string
	question       string
	documentId     string
	isNewProject   bool
	traceId        string
	jobType        jobModel.JobType
	documentName   string
	documentSource string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	return
}

// PostQueryHandler godoc
// @Summary      Ask a question against the indexed documents
// @Description  Accepts a question with an optional project ID and document filter, queues a background query job, and returns a job ID to track status.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest     true  "Question, optional project ID and document filter"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or project ID"
// @Router       /query [post]
func PostQueryHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.QueryRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Query handler reader :", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateQueryRequest(requestData) {
			logRH.Warn("Bad Query Request: ", "error:", err, "request data:", requestData)
			WriteErrorResponse(w, http.StatusBadRequest, requestData.ProjectID, "Bad Request")
			return
		}

		projectID := requestData.ProjectID
		isNewProject := false
		if projectID == "" {
			projectID = utils.GetNewUUID()
			logRH.Debug(" New project request : ", "projectID:", projectID)
			isNewProject = true
		}

		newJob := newJobData{
			id:           utils.GetNewUUID(),
			projectId:    projectID,
			question:     requestData.Question,
			documentId:   requestData.DocumentID,
			isNewProject: isNewProject,
			traceId:      request.Context().Value(config.TRACE_ID_KEY).(string),
			jobType:      jobModel.JobTypeQuery,
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		//use chi get the url id
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// PostIngestHandler handles the uploading of PDF or DOCX documents for indexing.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  true  "The display name of the document"
// @Param        document       formData  file    true  "The PDF or DOCX file to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job ID"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		targetDir, errString := getTargetDirectory()

		if errString != "" {
			logRH.Error("Couldn't get target directory :", "err", errString)
			WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
			return
		}

		err := r.ParseMultipartForm(config.MaxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		//process request
		docName := r.FormValue("document_name")
		if docName == "" {
			WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
			return
		}

		//get the document name the user uploads
		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
		tempFilePath := filepath.Join(targetDir, filename)
		destinationFileWriter, err := os.Create(tempFilePath)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
			return
		}
		defer destinationFileWriter.Close()

		if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
			return
		}

		newJob := newJobData{
			id:             utils.GetNewUUID(),
			traceId:        r.Context().Value(config.TRACE_ID_KEY).(string),
			jobType:        jobModel.JobTypeIngest,
			documentName:   fileMetadata.Filename,
			documentSource: tempFilePath,
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// DeleteDocumentHandler godoc
// @Summary      Remove an indexed document
// @Description  Queues a job that removes the document's vectors and its registry entry.
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400  {object}  api.JobResponse      "Missing document ID"
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		documentId := utils.GetChiURLParam(r, "id")
		if documentId == "" {
			WriteErrorResponse(w, http.StatusBadRequest, "", "document id is required")
			return
		}

		newJob := newJobData{
			id:         utils.GetNewUUID(),
			traceId:    r.Context().Value(config.TRACE_ID_KEY).(string),
			jobType:    jobModel.JobTypeDelete,
			documentId: documentId,
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// GetHistoryHandler godoc
// @Summary      Get project query history
// @Description  Returns the recent question/answer log for a project.
// @Tags         Query
// @Produce      json
// @Param        projectId  path      string  true  "Project ID"
// @Success      200  {object}  api.HistoryResponse  "Recent history for the project"
// @Failure      404  {object}  api.JobResponse      "Unknown project"
// @Router       /history/{projectId} [get]
func GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		projectId := utils.GetChiURLParam(r, "projectId")
		history, ok := GetProjectHistory(projectId, r.Context().Value(config.TRACE_ID_KEY).(string))
		if !ok {
			WriteErrorResponse(w, http.StatusNotFound, projectId, "Project not found")
			return
		}
		writeJsonResponse(w, http.StatusOK, adapter.ToHistoryResponse(projectId, history))
	}
}

// GetStatsHandler godoc
// @Summary      Index statistics
// @Description  Returns the number of indexed documents and chunks.
// @Tags         Ingestion
// @Produce      json
// @Success      200  {object}  api.StatsResponse  "Current index statistics"
// @Failure      500  {object}  api.JobResponse    "Stats unavailable"
// @Router       /stats [get]
func GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		stats, err := GetIndexStats(r.Context())
		if err != nil {
			logRH.Error("Error reading index stats", "err", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Stats unavailable")
			return
		}
		writeJsonResponse(w, http.StatusOK, adapter.ToStatsResponse(stats))
	}
}
