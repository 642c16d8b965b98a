// Package analyzer runs the analysis pipeline: decode, isolate the decision
// section, classify risks, extract the summary and resolve the approval
// authority. An Analyzer is built once from a validated ruleset and can be
// shared by concurrent callers.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rt0111/onayformukontrol/internal/authority"
	"github.com/rt0111/onayformukontrol/internal/logging"
	"github.com/rt0111/onayformukontrol/internal/metrics"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/processor"
	"github.com/rt0111/onayformukontrol/internal/risk"
	"github.com/rt0111/onayformukontrol/internal/rules"
	"github.com/rt0111/onayformukontrol/internal/summary"

	"go.uber.org/zap"
)

// Decoder turns document bytes into text
type Decoder interface {
	ExtractFile(ctx context.Context, path string) (processor.Decoded, error)
	ExtractBytes(ctx context.Context, data []byte) (processor.Decoded, error)
}

// Narrator writes an optional prose summary of a result
type Narrator interface {
	Narrate(ctx context.Context, result *models.AnalysisResult) (string, error)
}

// Analyzer runs the pipeline over an immutable ruleset
type Analyzer struct {
	decoder    Decoder
	sections   *processor.SectionExtractor
	classifier *risk.Classifier
	resolver   *authority.Resolver
	extractor  *summary.Extractor
	narrator   Narrator
	metrics    *metrics.Metrics
	logger     *logging.Logger
	now        func() time.Time
}

// Option customizes an Analyzer
type Option func(*Analyzer)

// WithDecoder replaces the default PDF decoder
func WithDecoder(d Decoder) Option {
	return func(a *Analyzer) { a.decoder = d }
}

// WithNarrator enables narrative generation
func WithNarrator(n Narrator) Option {
	return func(a *Analyzer) { a.narrator = n }
}

// WithMetrics records pipeline metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClock sets the time source for analyzed_at
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New validates the ruleset and builds the pipeline
func New(rs *rules.Ruleset, logger *logging.Logger, opts ...Option) (*Analyzer, error) {
	if rs == nil {
		return nil, fmt.Errorf("%w: ruleset is nil", rules.ErrInvalidRuleset)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	resolver, err := rs.Resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to build authority resolver: %w", err)
	}

	a := &Analyzer{
		sections:   rs.SectionExtractor(),
		classifier: rs.Classifier(),
		resolver:   resolver,
		extractor:  summary.NewExtractor(),
		logger:     logger.Named("analyzer"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.decoder == nil {
		a.decoder = processor.NewPDFProcessor(logger)
	}

	return a, nil
}

// AnalyzeFile decodes and analyzes the PDF at path
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*models.AnalysisResult, error) {
	start := time.Now()

	decoded, err := a.decoder.ExtractFile(ctx, path)
	if err != nil {
		a.fail(ctx, start, err)
		return nil, err
	}

	return a.run(ctx, start, models.Source{Name: filepath.Base(path), Decoder: decoded.Backend}, decoded.Text)
}

// AnalyzeBytes decodes and analyzes an in-memory PDF
func (a *Analyzer) AnalyzeBytes(ctx context.Context, name string, data []byte) (*models.AnalysisResult, error) {
	start := time.Now()

	decoded, err := a.decoder.ExtractBytes(ctx, data)
	if err != nil {
		a.fail(ctx, start, err)
		return nil, err
	}

	return a.run(ctx, start, models.Source{Name: name, Decoder: decoded.Backend}, decoded.Text)
}

// AnalyzeText analyzes already decoded text
func (a *Analyzer) AnalyzeText(ctx context.Context, name string, text string) (*models.AnalysisResult, error) {
	return a.run(ctx, time.Now(), models.Source{Name: name}, models.NewDecisionText(text))
}

func (a *Analyzer) fail(ctx context.Context, start time.Time, err error) {
	outcome := metrics.OutcomeError
	if errors.Is(err, processor.ErrDecodeFailed) {
		outcome = metrics.OutcomeDecodeError
	}
	a.metrics.RecordAnalysis(outcome, time.Since(start).Seconds())
	a.logger.Warn(ctx, "Analysis failed", zap.String("outcome", outcome), zap.Error(err))
}

func (a *Analyzer) run(ctx context.Context, start time.Time, src models.Source, full models.DecisionText) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		a.fail(ctx, start, err)
		return nil, err
	}

	result, err := a.Analyze(ctx, full)
	if err != nil {
		a.fail(ctx, start, err)
		return nil, err
	}
	result.Source = src

	if a.narrator != nil {
		narrative, err := a.narrator.Narrate(ctx, result)
		if err != nil {
			a.logger.Warn(ctx, "Narrative generation failed", zap.String("source", src.Name), zap.Error(err))
		} else {
			result.Narrative = narrative
		}
	}

	if src.Decoder != "" {
		a.metrics.RecordDecode(src.Decoder)
	}
	for _, f := range result.Findings {
		if !f.Negated {
			a.metrics.RecordFinding(string(f.Category), string(f.Level))
		}
	}
	if !result.SectionIsolated {
		a.metrics.RecordSectionFallback()
	}
	a.metrics.RecordAnalysis(metrics.OutcomeSuccess, time.Since(start).Seconds())

	a.logger.Info(ctx, "Analysis completed",
		zap.String("source", src.Name),
		zap.Bool("section_isolated", result.SectionIsolated),
		zap.Int("findings", len(result.Findings)),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.String("authority", result.ResolvedAuthority.Or("")),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// Analyze runs the text stages of the pipeline. A missing decision section
// is not an error: the whole text is analyzed and SectionIsolated is false.
func (a *Analyzer) Analyze(ctx context.Context, full models.DecisionText) (*models.AnalysisResult, error) {
	text, err := a.sections.Extract(full)
	isolated := true
	if err != nil {
		if !errors.Is(err, processor.ErrSectionNotFound) {
			return nil, err
		}
		a.logger.Debug(ctx, "Decision section not found, analyzing whole document")
		text = full
		isolated = false
	}

	findings := a.classifier.Classify(text)
	sum := a.extractor.Extract(text, findings)

	result := &models.AnalysisResult{
		SourceText:      text,
		SectionIsolated: isolated,
		Findings:        findings,
		RiskLevel:       models.HighestLevel(findings),
		Summary:         sum,
		Highlights:      summary.Highlights(text),
		AnalyzedAt:      a.now().UTC(),
	}

	if err := a.resolve(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// resolve fills ResolvedAuthority and Approval from the summary. Only a
// table that fails to cover a valid value aborts the analysis.
func (a *Analyzer) resolve(ctx context.Context, result *models.AnalysisResult) error {
	sum := result.Summary

	switch sum.TotalValue.Status {
	case models.StatusNotFound:
		result.ResolvedAuthority = models.NotFound[string]()
		return nil
	case models.StatusNotExtracted:
		result.ResolvedAuthority = models.NotExtracted("", sum.TotalValue.Rule, sum.TotalValue.Note)
		return nil
	}

	res, err := a.resolver.Resolve(sum.TotalValue.Value, sum.Currency)
	switch {
	case errors.Is(err, authority.ErrValueOutOfRange):
		result.ResolvedAuthority = models.NotExtracted("", "threshold-table", err.Error())
		return nil
	case err != nil:
		return err
	}
	result.ResolvedAuthority = models.Found(res.Authority, "threshold-table")

	structure, err := a.resolver.Structure(authority.StructureInput{
		Value:            sum.TotalValue.Value,
		Currency:         sum.Currency,
		PurchaseType:     sum.PurchaseType.Or(""),
		Months:           sum.ContractMonths.Or(0),
		Reason:           sum.ManagementReason.Or(""),
		StandardContract: sum.StandardContract.Or(true),
	})
	if err != nil {
		return fmt.Errorf("failed to compute approval structure: %w", err)
	}
	result.Approval = &structure

	a.logger.Debug(ctx, "Approval resolved",
		zap.String("value", sum.TotalValue.Value.String()),
		zap.String("currency", sum.Currency),
		zap.String("authority", res.Authority),
		zap.String("structure_authority", structure.Authority),
	)

	return nil
}
