package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rt0111/onayformukontrol/internal/api/response"
	"github.com/rt0111/onayformukontrol/internal/jobs"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/report"
)

// JobGetter loads job records.
type JobGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*jobs.Job, error)
}

// ReportRenderer renders a result in a report format.
type ReportRenderer interface {
	Render(w io.Writer, result *models.AnalysisResult, opts report.Options) error
}

// JobStatus is the body of the status endpoint.
type JobStatus struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    jobs.Status `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// loadJob resolves {jobID} and writes the error response when it fails.
func loadJob(w http.ResponseWriter, r *http.Request, store JobGetter) (*jobs.Job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
		return nil, false
	}

	job, err := store.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found or expired", nil)
		return nil, false
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
		return nil, false
	}
	return job, true
}

// finishedResult writes the error response unless the job succeeded.
func finishedResult(w http.ResponseWriter, job *jobs.Job) (*models.AnalysisResult, bool) {
	switch {
	case job.Status == jobs.StatusFailed:
		response.Error(w, http.StatusUnprocessableEntity, "JOB_FAILED", job.Error, nil)
		return nil, false
	case !job.Status.Done() || job.Result == nil:
		response.Error(w, http.StatusConflict, "JOB_NOT_READY", fmt.Sprintf("Job is %s", job.Status), nil)
		return nil, false
	}
	return job.Result, true
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewJobStatusHandler(store JobGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := loadJob(w, r, store)
		if !ok {
			return
		}
		response.JSON(w, JobStatus{
			ID:        job.ID.String(),
			Name:      job.Name,
			Status:    job.Status,
			Error:     job.Error,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.UpdatedAt,
		})
	}
}

// NewJobResultHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}/result.
func NewJobResultHandler(store JobGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := loadJob(w, r, store)
		if !ok {
			return
		}
		result, ok := finishedResult(w, job)
		if !ok {
			return
		}
		response.JSON(w, result)
	}
}

// NewJobReportHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/report?format=text|json|yaml.
func NewJobReportHandler(store JobGetter, renderer ReportRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := report.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		job, ok := loadJob(w, r, store)
		if !ok {
			return
		}
		result, ok := finishedResult(w, job)
		if !ok {
			return
		}

		var buf bytes.Buffer
		opts := report.Options{
			Format:      format,
			OnlyRisks:   r.URL.Query().Get("only") == "risks",
			OnlySummary: r.URL.Query().Get("only") == "summary",
		}
		if err := renderer.Render(&buf, result, opts); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render report", nil)
			return
		}

		base := strings.TrimSuffix(job.Name, filepath.Ext(job.Name))
		if base == "" {
			base = job.ID.String()
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_rapor"+format.Extension()))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}
