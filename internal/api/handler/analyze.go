package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/api/response"
	"github.com/rt0111/onayformukontrol/internal/jobs"
	"github.com/rt0111/onayformukontrol/internal/models"
)

// uploadField is the multipart form field carrying the PDF
const uploadField = "file"

// JobSubmitter queues uploaded documents for analysis.
type JobSubmitter interface {
	Submit(ctx context.Context, name string, data []byte) (*jobs.Job, error)
}

// TextAnalyzer analyzes already decoded text.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, name string, text string) (*models.AnalysisResult, error)
}

// JobAccepted is the body of a 202 response.
type JobAccepted struct {
	JobID     string      `json:"job_id"`
	Status    jobs.Status `json:"status"`
	StatusURL string      `json:"status_url"`
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// The PDF is uploaded as multipart form field "file" and analyzed
// asynchronously.
func NewAnalyzeHandler(submitter JobSubmitter, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Uploaded file is too large", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "multipart field \"file\" is required", nil)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read uploaded file", nil)
			return
		}
		if len(data) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Uploaded file is empty", nil)
			return
		}

		job, err := submitter.Submit(r.Context(), filepath.Base(header.Filename), data)
		if err != nil {
			if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrStopped) {
				response.Error(w, http.StatusServiceUnavailable, "QUEUE_FULL", "Analysis queue is full, retry later", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to queue analysis", nil)
			return
		}

		response.Accepted(w, JobAccepted{
			JobID:     job.ID.String(),
			Status:    job.Status,
			StatusURL: "/api/v1/jobs/" + job.ID.String(),
		})
	}
}

// NewAnalyzeTextHandler returns an http.HandlerFunc for POST /api/v1/analyze/text.
// The JSON body is limited to maxBodyBytes like uploads are.
func NewAnalyzeTextHandler(analyzer TextAnalyzer, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var req struct {
			Name string `json:"name"`
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body is too large", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "text is required", nil)
			return
		}
		if req.Name == "" {
			req.Name = "text"
		}

		result, err := analyzer.AnalyzeText(r.Context(), req.Name, req.Text)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "ANALYSIS_FAILED", err.Error(), nil)
			return
		}

		response.JSON(w, result)
	}
}
