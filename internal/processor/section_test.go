package processor_test

import (
	"errors"
	"testing"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sectionConfig = processor.SectionConfig{
	Headings:     []string{"Satınalma Kararı", "Purchasing Decision"},
	StopHeadings: []string{"İmzalar", "Signatures"},
}

const form = `ONAY FORMU
1. Genel Bilgiler
Talep eden: Bakım
5. SATINALMA KARARI:
Tedarikçi: Acme
Toplam değer 25.000,00 USD
İmzalar
Ahmet Yılmaz`

func TestSectionExtract(t *testing.T) {
	e := processor.NewSectionExtractor(sectionConfig)

	got, err := e.Extract(models.NewDecisionText(form))
	require.NoError(t, err)

	require.Len(t, got.Lines, 3)
	assert.Equal(t, 4, got.Lines[0].Number)
	assert.Equal(t, "5. SATINALMA KARARI:", got.Lines[0].Text)
	assert.Equal(t, 6, got.Lines[2].Number)
	assert.NotContains(t, got.Raw, "Ahmet")
}

func TestSectionExtractIsIdempotent(t *testing.T) {
	e := processor.NewSectionExtractor(sectionConfig)

	once, err := e.Extract(models.NewDecisionText(form))
	require.NoError(t, err)
	twice, err := e.Extract(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestSectionExtractRunsToEnd(t *testing.T) {
	e := processor.NewSectionExtractor(sectionConfig)

	got, err := e.Extract(models.NewDecisionText("intro\nPurchasing Decision\nline a\nline b"))
	require.NoError(t, err)
	assert.Len(t, got.Lines, 3)
}

func TestSectionExtractRequiresWordBoundary(t *testing.T) {
	e := processor.NewSectionExtractor(sectionConfig)

	_, err := e.Extract(models.NewDecisionText("Satınalma Kararıdır arşivi\nmetin"))
	assert.True(t, errors.Is(err, processor.ErrSectionNotFound))
}

func TestSectionExtractNotFound(t *testing.T) {
	e := processor.NewSectionExtractor(sectionConfig)

	_, err := e.Extract(models.NewDecisionText("no heading here\nat all"))
	assert.True(t, errors.Is(err, processor.ErrSectionNotFound))

	_, err = e.Extract(models.DecisionText{})
	assert.True(t, errors.Is(err, processor.ErrSectionNotFound))
}
