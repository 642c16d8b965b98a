// Package summary pulls structured purchase fields out of decision text.
//
// Each field has an ordered list of named rules. Rules run against the
// folded text (lower case, no diacritics) line by line and the first rule
// that matches anywhere in the text wins; later rules are fallbacks. A field
// nothing matched is reported as not found, and a total value whose number
// mixes separator conventions is reported as not extracted.
package summary

import (
	"regexp"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/risk"
	"github.com/rt0111/onayformukontrol/internal/textnorm"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is found
const DefaultCurrency = "USD"

// rule is one named extraction heuristic for a field of type T
type rule[T any] struct {
	name  string
	apply func(doc *document) (models.Field[T], bool)
}

// firstMatch evaluates rules in order and returns the first hit
func firstMatch[T any](doc *document, rules []rule[T]) models.Field[T] {
	for _, r := range rules {
		if f, ok := r.apply(doc); ok {
			if f.Rule == "" {
				f.Rule = r.name
			}
			return f
		}
	}
	return models.NotFound[T]()
}

type foldedLine struct {
	number int
	text   string
	folded textnorm.Folded
}

// document is the decision text prepared for matching
type document struct {
	lines []foldedLine
}

func newDocument(text models.DecisionText) *document {
	doc := &document{lines: make([]foldedLine, 0, len(text.Lines))}
	for _, l := range text.Lines {
		doc.lines = append(doc.lines, foldedLine{
			number: l.Number,
			text:   l.Text,
			folded: textnorm.Fold(l.Text),
		})
	}
	return doc
}

// nextNonEmpty returns the text of the first non-blank line after index i
func (d *document) nextNonEmpty(i int) string {
	for j := i + 1; j < len(d.lines); j++ {
		if t := strings.TrimSpace(d.lines[j].text); t != "" {
			return t
		}
	}
	return ""
}

// labeled returns the source text of group 1 of re on the first matching
// line. An empty capture takes the value from the next non-blank line, as
// forms often put the label and the value on separate lines.
func (d *document) labeled(re *regexp.Regexp) (string, bool) {
	for i, l := range d.lines {
		m := re.FindStringSubmatchIndex(l.folded.Text)
		if m == nil {
			continue
		}
		value := ""
		if len(m) >= 4 && m[2] >= 0 {
			value = cleanValue(l.folded.Source(m[2], m[3]))
		}
		if value == "" {
			value = cleanValue(d.nextNonEmpty(i))
		}
		if value != "" {
			return value, true
		}
	}
	return "", false
}

// cleanValue trims whitespace and trailing punctuation
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " ,;:")
	return strings.TrimSpace(s)
}

func labeledRule(name string, re *regexp.Regexp) rule[string] {
	return rule[string]{
		name: name,
		apply: func(doc *document) (models.Field[string], bool) {
			v, ok := doc.labeled(re)
			if !ok {
				return models.Field[string]{}, false
			}
			return models.Found(v, name), true
		},
	}
}

// Extractor applies the field rules. It holds no state and is safe for
// concurrent use.
type Extractor struct{}

// NewExtractor creates a summary extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds the purchase summary; findings feed flagged_risk_phrases
func (e *Extractor) Extract(text models.DecisionText, findings []models.RiskFinding) models.PurchaseSummary {
	doc := newDocument(text)

	value := firstMatch(doc, totalValueRules)
	currency := DefaultCurrency
	if value.Status != models.StatusNotFound && value.Value.Currency != "" {
		currency = value.Value.Currency
	}

	return models.PurchaseSummary{
		Supplier:           firstMatch(doc, supplierRules),
		AcceptedOffer:      firstMatch(doc, acceptedOfferRules),
		TotalValue:         moneyValue(value),
		Currency:           currency,
		DeliveryTerms:      firstMatch(doc, deliveryRules),
		PaymentTerms:       firstMatch(doc, paymentRules),
		KeyDates:           extractDates(doc),
		ContractRefs:       extractContractRefs(doc),
		FlaggedRiskPhrases: risk.FlaggedPhrases(findings),
		PurchaseType:       firstMatch(doc, purchaseTypeRules),
		ContractMonths:     firstMatch(doc, durationRules),
		ManagementReason:   firstMatch(doc, reasonRules),
		StandardContract:   firstMatch(doc, standardContractRules),
	}
}

// moneyValue drops the currency from a money field
func moneyValue(f models.Field[money]) models.Field[decimal.Decimal] {
	return models.Field[decimal.Decimal]{
		Status: f.Status,
		Value:  f.Value.Value,
		Rule:   f.Rule,
		Note:   f.Note,
	}
}
