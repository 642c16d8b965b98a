package analyzer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rt0111/onayformukontrol/internal/analyzer"
	"github.com/rt0111/onayformukontrol/internal/logging"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/processor"
	"github.com/rt0111/onayformukontrol/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const form = `ONAY FORMU
Talep: Bakım ekipmanı
Satınalma Kararı
Tedarikçi: Acme
Toplam tutar: 25.000,00 USD
Piyasada kartel şüphesi bildirilmiştir.
İmzalar
Tedarikçi: Başka Firma`

var fixedNow = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

type fakeDecoder struct {
	texts map[string]string
}

func (f *fakeDecoder) decode(key string) (processor.Decoded, error) {
	text, ok := f.texts[key]
	if !ok {
		return processor.Decoded{}, processor.ErrDecodeFailed
	}
	return processor.Decoded{Backend: "fake", Text: models.NewDecisionText(text)}, nil
}

func (f *fakeDecoder) ExtractFile(_ context.Context, path string) (processor.Decoded, error) {
	return f.decode(path)
}

func (f *fakeDecoder) ExtractBytes(_ context.Context, data []byte) (processor.Decoded, error) {
	return f.decode(string(data))
}

type fakeNarrator struct {
	text string
	err  error
}

func (f fakeNarrator) Narrate(context.Context, *models.AnalysisResult) (string, error) {
	return f.text, f.err
}

func newAnalyzer(t *testing.T, logger *logging.Logger, opts ...analyzer.Option) *analyzer.Analyzer {
	t.Helper()
	rs, err := rules.Default()
	require.NoError(t, err)

	opts = append([]analyzer.Option{analyzer.WithClock(func() time.Time { return fixedNow })}, opts...)
	a, err := analyzer.New(rs, logger, opts...)
	require.NoError(t, err)
	return a
}

func TestAnalyzeTextResolvesAuthority(t *testing.T) {
	a := newAnalyzer(t, nil)

	result, err := a.AnalyzeText(context.Background(), "onay.txt", form)
	require.NoError(t, err)

	assert.True(t, result.SectionIsolated)
	assert.Equal(t, 3, result.SourceText.Lines[0].Number)
	assert.Equal(t, "onay.txt", result.Source.Name)
	assert.Equal(t, fixedNow, result.AnalyzedAt)

	assert.Equal(t, models.Found("Acme", "supplier-label"), result.Summary.Supplier)
	assert.True(t, result.Summary.TotalValue.Value.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, "USD", result.Summary.Currency)

	assert.Equal(t, models.Found("Müdür / Bölge Müdürü", "threshold-table"), result.ResolvedAuthority)
	require.NotNil(t, result.Approval)
	assert.Equal(t, "Müdür / Bölge Müdürü", result.Approval.Authority)
	assert.False(t, result.Approval.Annualized)

	var kartel *models.RiskFinding
	for i := range result.Findings {
		if result.Findings[i].Phrase == "kartel" {
			kartel = &result.Findings[i]
		}
	}
	require.NotNil(t, kartel)
	assert.Equal(t, models.Commercial, kartel.Category)
	assert.Equal(t, 6, kartel.Line)
	assert.Equal(t, models.LevelHigh, result.RiskLevel)
	assert.Contains(t, result.Summary.FlaggedRiskPhrases, "kartel")
}

func TestAnalyzeFallsBackToWholeDocument(t *testing.T) {
	logger := logging.NewTestLogger()
	a := newAnalyzer(t, logger.Logger)

	result, err := a.AnalyzeText(context.Background(), "memo.txt", "Genel not\nToplam tutar: 2.000 USD")
	require.NoError(t, err)

	assert.False(t, result.SectionIsolated)
	assert.Len(t, result.SourceText.Lines, 2)
	assert.Equal(t, models.Found("Şef / Kategori Yöneticisi", "threshold-table"), result.ResolvedAuthority)
	logger.AssertLogged(t, zapcore.DebugLevel, "Decision section not found")
	logger.AssertLogged(t, zapcore.InfoLevel, "Analysis completed")
}

func TestAnalyzeWithoutValue(t *testing.T) {
	a := newAnalyzer(t, nil)

	result, err := a.AnalyzeText(context.Background(), "x", "Satınalma Kararı\nTedarikçi: Acme")
	require.NoError(t, err)

	assert.Equal(t, models.StatusNotFound, result.ResolvedAuthority.Status)
	assert.Nil(t, result.Approval)
	assert.Equal(t, models.LevelNone, result.RiskLevel)
	assert.NotNil(t, result.Findings)
	assert.Empty(t, result.Findings)
}

func TestAnalyzeAmbiguousValue(t *testing.T) {
	a := newAnalyzer(t, nil)

	result, err := a.AnalyzeText(context.Background(), "x", "Satınalma Kararı\nToplam tutar: 1.2.3 USD")
	require.NoError(t, err)

	assert.Equal(t, models.StatusNotExtracted, result.ResolvedAuthority.Status)
	assert.Equal(t, "total-label", result.ResolvedAuthority.Rule)
	assert.Contains(t, result.ResolvedAuthority.Note, "ambiguous")
	assert.Nil(t, result.Approval)
}

func TestAnalyzeApprovalStructure(t *testing.T) {
	a := newAnalyzer(t, nil)

	text := strings.Join([]string{
		"Satınalma Kararı",
		"Toplam tutar: 60.000 USD",
		"Alım tipi: Sürekli",
		"Sözleşme süresi: 6 ay",
		"Matbu sözleşme yapılacak mı? Evet",
	}, "\n")
	result, err := a.AnalyzeText(context.Background(), "x", text)
	require.NoError(t, err)

	assert.Equal(t, "Müdür / Bölge Müdürü", result.ResolvedAuthority.Value)
	require.NotNil(t, result.Approval)
	assert.True(t, result.Approval.Annualized)
	assert.True(t, result.Approval.EffectiveValue.Equal(decimal.NewFromInt(120000)))
	assert.Equal(t, "Direktör", result.Approval.Authority)
}

func TestAnalyzeBytesUsesDecoder(t *testing.T) {
	decoder := &fakeDecoder{texts: map[string]string{"pdf-bytes": form}}
	a := newAnalyzer(t, nil, analyzer.WithDecoder(decoder))

	result, err := a.AnalyzeBytes(context.Background(), "upload.pdf", []byte("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, models.Source{Name: "upload.pdf", Decoder: "fake"}, result.Source)

	_, err = a.AnalyzeBytes(context.Background(), "bad.pdf", []byte("garbage"))
	assert.True(t, errors.Is(err, processor.ErrDecodeFailed))
}

func TestAnalyzeNarrative(t *testing.T) {
	a := newAnalyzer(t, nil, analyzer.WithNarrator(fakeNarrator{text: "Risk düşük."}))
	result, err := a.AnalyzeText(context.Background(), "x", form)
	require.NoError(t, err)
	assert.Equal(t, "Risk düşük.", result.Narrative)

	logger := logging.NewTestLogger()
	a = newAnalyzer(t, logger.Logger, analyzer.WithNarrator(fakeNarrator{err: errors.New("ollama down")}))
	result, err = a.AnalyzeText(context.Background(), "x", form)
	require.NoError(t, err)
	assert.Empty(t, result.Narrative)
	logger.AssertLogged(t, zapcore.WarnLevel, "Narrative generation failed")
}

func TestAnalyzeCanceled(t *testing.T) {
	a := newAnalyzer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.AnalyzeText(ctx, "x", form)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewRejectsInvalidRuleset(t *testing.T) {
	_, err := analyzer.New(nil, nil)
	assert.True(t, errors.Is(err, rules.ErrInvalidRuleset))

	_, err = analyzer.New(&rules.Ruleset{}, nil)
	assert.True(t, errors.Is(err, rules.ErrInvalidRuleset))
}

func TestResultRoundTrip(t *testing.T) {
	a := newAnalyzer(t, nil)
	result, err := a.AnalyzeText(context.Background(), "onay.txt", form)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(result)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"value":"25000"`)

		var back models.AnalysisResult
		require.NoError(t, json.Unmarshal(data, &back))
		assertSameResult(t, result, &back)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, yaml.NewEncoder(&buf).Encode(result))

		var back models.AnalysisResult
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		assertSameResult(t, result, &back)
	})
}

func assertSameResult(t *testing.T, want, got *models.AnalysisResult) {
	t.Helper()
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.SourceText, got.SourceText)
	assert.Equal(t, want.SectionIsolated, got.SectionIsolated)
	assert.Equal(t, want.Findings, got.Findings)
	assert.Equal(t, want.RiskLevel, got.RiskLevel)
	assert.Equal(t, want.ResolvedAuthority, got.ResolvedAuthority)
	assert.Equal(t, want.Highlights, got.Highlights)
	assert.True(t, want.AnalyzedAt.Equal(got.AnalyzedAt))

	assert.Equal(t, want.Summary.TotalValue.Status, got.Summary.TotalValue.Status)
	assert.True(t, want.Summary.TotalValue.Value.Equal(got.Summary.TotalValue.Value))
	assert.Equal(t, want.Summary.Supplier, got.Summary.Supplier)
	assert.Equal(t, want.Summary.Currency, got.Summary.Currency)
	assert.Equal(t, want.Summary.FlaggedRiskPhrases, got.Summary.FlaggedRiskPhrases)

	require.NotNil(t, got.Approval)
	assert.True(t, want.Approval.EffectiveValue.Equal(got.Approval.EffectiveValue))
	assert.Equal(t, want.Approval.Authority, got.Approval.Authority)
}
