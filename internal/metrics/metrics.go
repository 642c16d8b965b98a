// Package metrics exposes Prometheus metrics for the analysis pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Outcome labels for AnalysesTotal
const (
	OutcomeSuccess     = "success"
	OutcomeDecodeError = "decode_error"
	OutcomeError       = "error"
)

// Metrics holds the analyzer metrics.
type Metrics struct {
	AnalysesTotal     *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	RiskFindingsTotal *prometheus.CounterVec
	DecoderBackend    *prometheus.CounterVec
	SectionFallback   prometheus.Counter
	JobsInFlight      prometheus.Gauge
}

// New registers the metrics once and returns the shared instance.
//
// Metrics:
//   - onaykontrol_analyses_total{outcome} - analyses by outcome
//   - onaykontrol_analysis_duration_seconds - end-to-end analysis time
//   - onaykontrol_risk_findings_total{category,level} - findings reported
//   - onaykontrol_decoder_backend_total{backend} - successful PDF decodes per backend
//   - onaykontrol_section_fallback_total - analyses that used the whole document
//   - onaykontrol_jobs_in_flight - queued or running upload jobs
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			AnalysesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onaykontrol_analyses_total",
					Help: "Total number of document analyses",
				},
				[]string{"outcome"},
			),

			AnalysisDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "onaykontrol_analysis_duration_seconds",
					Help:    "Duration of document analysis in seconds",
					Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
				},
			),

			RiskFindingsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onaykontrol_risk_findings_total",
					Help: "Total number of risk findings reported",
				},
				[]string{"category", "level"},
			),

			DecoderBackend: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onaykontrol_decoder_backend_total",
					Help: "Total number of documents decoded per backend",
				},
				[]string{"backend"},
			),

			SectionFallback: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "onaykontrol_section_fallback_total",
					Help: "Total number of analyses where the decision section was not found",
				},
			),

			JobsInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "onaykontrol_jobs_in_flight",
					Help: "Number of queued or running analysis jobs",
				},
			),
		}
	})

	return globalMetrics
}

// RecordAnalysis records the outcome and duration of one analysis.
func (m *Metrics) RecordAnalysis(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(seconds)
}

// RecordFinding counts one reported finding.
func (m *Metrics) RecordFinding(category, level string) {
	if m == nil {
		return
	}
	m.RiskFindingsTotal.WithLabelValues(category, level).Inc()
}

// RecordDecode counts a successful decode by the named backend.
func (m *Metrics) RecordDecode(backend string) {
	if m == nil {
		return
	}
	m.DecoderBackend.WithLabelValues(backend).Inc()
}

// RecordSectionFallback counts an analysis of the whole document.
func (m *Metrics) RecordSectionFallback() {
	if m == nil {
		return
	}
	m.SectionFallback.Inc()
}
