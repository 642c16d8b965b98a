package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/rt0111/onayformukontrol/internal/api/middleware"
	"github.com/rt0111/onayformukontrol/internal/api/response"
	"github.com/rt0111/onayformukontrol/internal/logging"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Logger *logging.Logger

	HealthHandler      http.HandlerFunc
	AnalyzeHandler     http.HandlerFunc
	AnalyzeTextHandler http.HandlerFunc
	JobStatusHandler   http.HandlerFunc
	JobResultHandler   http.HandlerFunc
	JobReportHandler   http.HandlerFunc
	MetricsHandler     http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/v1/analyze", orNotImplemented(deps.AnalyzeHandler))
	r.Post("/api/v1/analyze/text", orNotImplemented(deps.AnalyzeTextHandler))

	r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.JobStatusHandler))
	r.Get("/api/v1/jobs/{jobID}/result", orNotImplemented(deps.JobResultHandler))
	r.Get("/api/v1/jobs/{jobID}/report", orNotImplemented(deps.JobReportHandler))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
