package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Line represents a single line of decoded text with its 1-based position
type Line struct {
	Number int    `json:"number" yaml:"number"`
	Text   string `json:"text" yaml:"text"`
}

// DecisionText represents a span of document text with original line numbers
type DecisionText struct {
	Raw   string `json:"raw" yaml:"raw"`
	Lines []Line `json:"lines" yaml:"lines"`
}

// NewDecisionText splits raw text into numbered lines
func NewDecisionText(raw string) DecisionText {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if raw == "" {
		return DecisionText{}
	}

	parts := strings.Split(raw, "\n")
	lines := make([]Line, len(parts))
	for i, part := range parts {
		lines[i] = Line{Number: i + 1, Text: part}
	}

	return DecisionText{Raw: raw, Lines: lines}
}

// FromLines builds a DecisionText from already numbered lines
func FromLines(lines []Line) DecisionText {
	if len(lines) == 0 {
		return DecisionText{}
	}

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}

	copied := make([]Line, len(lines))
	copy(copied, lines)

	return DecisionText{Raw: strings.Join(texts, "\n"), Lines: copied}
}

// IsEmpty reports whether the text has no non-blank line
func (d DecisionText) IsEmpty() bool {
	for _, l := range d.Lines {
		if strings.TrimSpace(l.Text) != "" {
			return false
		}
	}
	return true
}

// RiskFinding represents one detected occurrence of a risk phrase
type RiskFinding struct {
	Category Category `json:"category" yaml:"category"`
	Phrase   string   `json:"matched_phrase" yaml:"matched_phrase"`
	Sentence string   `json:"sentence" yaml:"sentence"`
	Line     int      `json:"line_number" yaml:"line_number"`
	Level    Level    `json:"level" yaml:"level"`
	Negated  bool     `json:"negated,omitempty" yaml:"negated,omitempty"`
}

// ApprovalThresholdRule maps the interval [Lower, Upper) to an authority.
// A nil Upper means the interval is unbounded.
type ApprovalThresholdRule struct {
	Lower     decimal.Decimal  `json:"lower_bound" yaml:"lower_bound"`
	Upper     *decimal.Decimal `json:"upper_bound" yaml:"upper_bound"`
	Authority string           `json:"authority" yaml:"authority"`
}

// Contains reports whether v falls inside the rule interval
func (r ApprovalThresholdRule) Contains(v decimal.Decimal) bool {
	if v.LessThan(r.Lower) {
		return false
	}
	return r.Upper == nil || v.LessThan(*r.Upper)
}

// KeyDate represents a date token found in the decision text
type KeyDate struct {
	Text string `json:"text" yaml:"text"`
	Date string `json:"date" yaml:"date"`
	Line int    `json:"line_number" yaml:"line_number"`
}

// PurchaseSummary holds the structured fields pulled out of the decision text
type PurchaseSummary struct {
	Supplier           Field[string]          `json:"supplier" yaml:"supplier"`
	AcceptedOffer      Field[string]          `json:"accepted_offer" yaml:"accepted_offer"`
	TotalValue         Field[decimal.Decimal] `json:"total_value" yaml:"total_value"`
	Currency           string                 `json:"currency" yaml:"currency"`
	DeliveryTerms      Field[string]          `json:"delivery_terms" yaml:"delivery_terms"`
	PaymentTerms       Field[string]          `json:"payment_terms" yaml:"payment_terms"`
	KeyDates           Field[[]KeyDate]       `json:"key_dates" yaml:"key_dates"`
	ContractRefs       Field[[]string]        `json:"contract_refs" yaml:"contract_refs"`
	FlaggedRiskPhrases []string               `json:"flagged_risk_phrases" yaml:"flagged_risk_phrases"`
	PurchaseType       Field[string]          `json:"purchase_type" yaml:"purchase_type"`
	ContractMonths     Field[int]             `json:"contract_months" yaml:"contract_months"`
	ManagementReason   Field[string]          `json:"management_reason" yaml:"management_reason"`
	StandardContract   Field[bool]            `json:"standard_contract" yaml:"standard_contract"`
}

// ApprovalStructure is the outcome of the approval routing calculation
type ApprovalStructure struct {
	EffectiveValue decimal.Decimal `json:"effective_value" yaml:"effective_value"`
	Currency       string          `json:"currency" yaml:"currency"`
	Annualized     bool            `json:"annualized" yaml:"annualized"`
	Authority      string          `json:"authority" yaml:"authority"`
	Reason         string          `json:"reason" yaml:"reason"`
}

// Source describes where the analyzed text came from
type Source struct {
	Name    string `json:"name" yaml:"name"`
	Decoder string `json:"decoder,omitempty" yaml:"decoder,omitempty"`
}

// AnalysisResult is the read-only snapshot produced for one document
type AnalysisResult struct {
	Source            Source             `json:"source" yaml:"source"`
	SourceText        DecisionText       `json:"source_text" yaml:"source_text"`
	SectionIsolated   bool               `json:"section_isolated" yaml:"section_isolated"`
	Findings          []RiskFinding      `json:"findings" yaml:"findings"`
	RiskLevel         Level              `json:"risk_level" yaml:"risk_level"`
	ResolvedAuthority Field[string]      `json:"resolved_authority" yaml:"resolved_authority"`
	Approval          *ApprovalStructure `json:"approval,omitempty" yaml:"approval,omitempty"`
	Summary           PurchaseSummary    `json:"summary" yaml:"summary"`
	Highlights        []string           `json:"highlights,omitempty" yaml:"highlights,omitempty"`
	Narrative         string             `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	AnalyzedAt        time.Time          `json:"analyzed_at" yaml:"analyzed_at"`
}
