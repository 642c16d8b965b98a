// Package report renders an analysis result as a text, JSON or YAML report.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/amount"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/risk"
	"github.com/rt0111/onayformukontrol/internal/rules"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Format selects the report rendering
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json, yaml and yml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "text/plain; charset=utf-8"
}

// Extension returns the file extension of the format
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	}
	return ".txt"
}

// Options filters the report content
type Options struct {
	Format      Format
	OnlyRisks   bool
	OnlySummary bool
}

// Renderer writes reports; the ruleset supplies category reasons and
// recommendations
type Renderer struct {
	ruleset *rules.Ruleset
}

// NewRenderer creates a report renderer
func NewRenderer(rs *rules.Ruleset) *Renderer {
	return &Renderer{ruleset: rs}
}

// riskView is the serialized shape of the risk-only report
type riskView struct {
	Source    models.Source        `json:"source" yaml:"source"`
	RiskLevel models.Level         `json:"risk_level" yaml:"risk_level"`
	Findings  []models.RiskFinding `json:"findings" yaml:"findings"`
}

// summaryView is the serialized shape of the summary-only report
type summaryView struct {
	Source            models.Source             `json:"source" yaml:"source"`
	Summary           models.PurchaseSummary    `json:"summary" yaml:"summary"`
	ResolvedAuthority models.Field[string]      `json:"resolved_authority" yaml:"resolved_authority"`
	Approval          *models.ApprovalStructure `json:"approval,omitempty" yaml:"approval,omitempty"`
}

// view applies the filters; OnlyRisks wins when both are set
func view(result *models.AnalysisResult, opts Options) any {
	switch {
	case opts.OnlyRisks:
		return riskView{Source: result.Source, RiskLevel: result.RiskLevel, Findings: result.Findings}
	case opts.OnlySummary:
		return summaryView{
			Source:            result.Source,
			Summary:           result.Summary,
			ResolvedAuthority: result.ResolvedAuthority,
			Approval:          result.Approval,
		}
	}
	return result
}

// Render writes the report for result in the requested format
func (r *Renderer) Render(w io.Writer, result *models.AnalysisResult, opts Options) error {
	if result == nil {
		return fmt.Errorf("nil analysis result")
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(view(result, opts)); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view(result, opts)); err != nil {
			return fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return enc.Close()

	case FormatText, "":
		_, err := io.WriteString(w, r.Text(result, opts))
		return err
	}

	return fmt.Errorf("unknown report format %q", opts.Format)
}

const rule = "================================================================"

// Text renders the human-readable report
func (r *Renderer) Text(result *models.AnalysisResult, opts Options) string {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "SATINALMA ONAY FORMU ANALİZ RAPORU")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Dosya: %s\n", result.Source.Name)
	if result.Source.Decoder != "" {
		fmt.Fprintf(&b, "Metin çözücü: %s\n", result.Source.Decoder)
	}
	fmt.Fprintf(&b, "Analiz zamanı: %s\n", result.AnalyzedAt.Local().Format("02.01.2006 15:04:05"))
	if !result.SectionIsolated {
		fmt.Fprintln(&b, "UYARI: Satınalma kararı bölümü bulunamadı, tüm belge analiz edildi.")
	}
	fmt.Fprintln(&b)

	if !opts.OnlyRisks {
		r.writeSummary(&b, result)
	}
	if !opts.OnlySummary {
		r.writeRisks(&b, result)
	}
	if !opts.OnlyRisks {
		r.writeApproval(&b, result)
	}
	if !opts.OnlyRisks && !opts.OnlySummary {
		r.writeHighlights(&b, result)
		if result.Narrative != "" {
			fmt.Fprintln(&b, "DEĞERLENDİRME")
			fmt.Fprintln(&b, strings.TrimSpace(result.Narrative))
			fmt.Fprintln(&b)
		}
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}

func fieldText[T any](f models.Field[T], format func(T) string) string {
	switch f.Status {
	case models.StatusFound:
		return format(f.Value)
	case models.StatusNotExtracted:
		return "Okunamadı (" + f.Note + ")"
	}
	return "Bulunamadı"
}

func plain(s string) string { return s }

func (r *Renderer) writeSummary(b *strings.Builder, result *models.AnalysisResult) {
	s := result.Summary

	fmt.Fprintln(b, "1. ÖZET")
	fmt.Fprintln(b, strings.Repeat("-", 40))
	fmt.Fprintf(b, "Tedarikçi: %s\n", fieldText(s.Supplier, plain))
	fmt.Fprintf(b, "Kabul edilen teklif: %s\n", fieldText(s.AcceptedOffer, plain))
	fmt.Fprintf(b, "Toplam değer: %s\n", fieldText(s.TotalValue, func(v decimal.Decimal) string {
		return amount.FormatTR(v) + " " + s.Currency
	}))
	fmt.Fprintf(b, "Alım tipi: %s\n", fieldText(s.PurchaseType, plain))
	fmt.Fprintf(b, "Sözleşme süresi: %s\n", fieldText(s.ContractMonths, func(m int) string {
		return fmt.Sprintf("%d ay", m)
	}))
	fmt.Fprintf(b, "Matbu sözleşme: %s\n", fieldText(s.StandardContract, func(v bool) string {
		if v {
			return "Evet"
		}
		return "Hayır"
	}))
	fmt.Fprintf(b, "Yönetim onay gerekçesi: %s\n", fieldText(s.ManagementReason, plain))
	fmt.Fprintf(b, "Teslim koşulları: %s\n", fieldText(s.DeliveryTerms, plain))
	fmt.Fprintf(b, "Ödeme koşulları: %s\n", fieldText(s.PaymentTerms, plain))
	fmt.Fprintf(b, "Önemli tarihler: %s\n", fieldText(s.KeyDates, func(dates []models.KeyDate) string {
		parts := make([]string, len(dates))
		for i, d := range dates {
			parts[i] = fmt.Sprintf("%s (satır %d)", d.Text, d.Line)
		}
		return strings.Join(parts, ", ")
	}))
	fmt.Fprintf(b, "Sözleşme referansları: %s\n", fieldText(s.ContractRefs, func(refs []string) string {
		return strings.Join(refs, ", ")
	}))
	if len(s.FlaggedRiskPhrases) > 0 {
		fmt.Fprintf(b, "İşaretlenen risk ifadeleri: %s\n", strings.Join(s.FlaggedRiskPhrases, ", "))
	}
	fmt.Fprintln(b)
}

func (r *Renderer) writeRisks(b *strings.Builder, result *models.AnalysisResult) {
	fmt.Fprintln(b, "2. RİSK ANALİZİ")
	fmt.Fprintln(b, strings.Repeat("-", 40))
	fmt.Fprintf(b, "Genel risk seviyesi: %s\n", result.RiskLevel.Label())

	if len(result.Findings) == 0 {
		fmt.Fprintln(b, "Risk ifadesi bulunamadı.")
		fmt.Fprintln(b)
		return
	}

	counts := risk.CountByCategory(result.Findings)
	for _, cat := range models.Categories {
		if counts[cat] == 0 {
			continue
		}

		fmt.Fprintf(b, "\n%s (%d)\n", cat.Label(), counts[cat])
		if r.ruleset != nil {
			if cr, ok := r.ruleset.Category(cat); ok && cr.Reason != "" {
				fmt.Fprintf(b, "  Sebep: %s\n", cr.Reason)
			}
		}

		for _, f := range result.Findings {
			if f.Category != cat {
				continue
			}
			marker := ""
			if f.Negated {
				marker = " [olumsuz ifade]"
			}
			fmt.Fprintf(b, "  - Satır %d [%s] \"%s\"%s\n", f.Line, f.Level.Label(), f.Phrase, marker)
			fmt.Fprintf(b, "    %s\n", f.Sentence)
		}

		if r.ruleset != nil {
			if cr, ok := r.ruleset.Category(cat); ok && len(cr.Recommendations) > 0 {
				fmt.Fprintln(b, "  Öneriler:")
				for _, rec := range cr.Recommendations {
					fmt.Fprintf(b, "    * %s\n", rec)
				}
			}
		}
	}
	fmt.Fprintln(b)
}

func (r *Renderer) writeApproval(b *strings.Builder, result *models.AnalysisResult) {
	fmt.Fprintln(b, "3. ONAY YETKİSİ")
	fmt.Fprintln(b, strings.Repeat("-", 40))
	fmt.Fprintf(b, "Eşik tablosuna göre yetkili: %s\n", fieldText(result.ResolvedAuthority, plain))

	if a := result.Approval; a != nil {
		fmt.Fprintf(b, "Onay yapısı: %s\n", a.Authority)
		fmt.Fprintf(b, "Değerlendirilen tutar: %s %s", amount.FormatTR(a.EffectiveValue), a.Currency)
		if a.Annualized {
			fmt.Fprint(b, " (yıllık)")
		}
		fmt.Fprintln(b)
		fmt.Fprintf(b, "Gerekçe: %s\n", a.Reason)
	}
	fmt.Fprintln(b)
}

func (r *Renderer) writeHighlights(b *strings.Builder, result *models.AnalysisResult) {
	fmt.Fprintln(b, "4. ÖNE ÇIKAN İFADELER")
	fmt.Fprintln(b, strings.Repeat("-", 40))
	if len(result.Highlights) == 0 {
		fmt.Fprintln(b, "Öne çıkan ifade bulunamadı.")
	}
	for i, h := range result.Highlights {
		fmt.Fprintf(b, "%d. %s\n", i+1, h)
	}
	fmt.Fprintln(b)
}
