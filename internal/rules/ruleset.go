// Package rules loads the analysis ruleset: decision section headings, risk
// phrase tiers, negation cues, the approval threshold table and the special
// approval routing policy.
//
// The built-in ruleset is embedded from defaults.yaml. A YAML file of the
// same shape, or the Postgres rule store, can replace it at startup.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/authority"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/processor"
	"github.com/rt0111/onayformukontrol/internal/risk"
	"github.com/rt0111/onayformukontrol/internal/textnorm"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidRuleset is wrapped by every validation failure
var ErrInvalidRuleset = errors.New("invalid ruleset")

// PhraseTiers holds the phrases of one category by severity
type PhraseTiers struct {
	Low    []string `json:"low" yaml:"low"`
	Medium []string `json:"medium" yaml:"medium"`
	High   []string `json:"high" yaml:"high"`
}

// ByLevel returns the phrases of one tier
func (t PhraseTiers) ByLevel(level models.Level) []string {
	switch level {
	case models.LevelLow:
		return t.Low
	case models.LevelMedium:
		return t.Medium
	case models.LevelHigh:
		return t.High
	}
	return nil
}

// Add appends a phrase to the tier of the given level
func (t *PhraseTiers) Add(level models.Level, phrase string) {
	switch level {
	case models.LevelLow:
		t.Low = append(t.Low, phrase)
	case models.LevelMedium:
		t.Medium = append(t.Medium, phrase)
	case models.LevelHigh:
		t.High = append(t.High, phrase)
	}
}

// CategoryRules configures one risk category
type CategoryRules struct {
	Category        models.Category `json:"category" yaml:"category"`
	Reason          string          `json:"reason" yaml:"reason"`
	Recommendations []string        `json:"recommendations" yaml:"recommendations"`
	Phrases         PhraseTiers     `json:"phrases" yaml:"phrases"`
}

// Ruleset is the complete configuration of the analysis pipeline
type Ruleset struct {
	Section      processor.SectionConfig        `json:"section" yaml:"section"`
	NegationCues []string                       `json:"negation_cues" yaml:"negation_cues"`
	Categories   []CategoryRules                `json:"categories" yaml:"categories"`
	Thresholds   []models.ApprovalThresholdRule `json:"thresholds" yaml:"thresholds"`
	Approval     authority.Policy               `json:"approval" yaml:"approval"`
}

// Default returns the embedded ruleset
func Default() (*Ruleset, error) {
	rs, err := Parse(defaultsYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded ruleset: %w", err)
	}
	return rs, nil
}

// DefaultYAML returns the embedded ruleset document
func DefaultYAML() []byte {
	out := make([]byte, len(defaultsYAML))
	copy(out, defaultsYAML)
	return out
}

// Parse decodes and validates a YAML ruleset
func Parse(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadFile reads a ruleset from a YAML file
func LoadFile(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset file: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Marshal renders the ruleset as YAML
func (rs *Ruleset) Marshal() ([]byte, error) {
	return yaml.Marshal(rs)
}

// Validate checks categories, phrases, headings and the threshold table
func (rs *Ruleset) Validate() error {
	if len(rs.Section.Headings) == 0 {
		return fmt.Errorf("%w: no section headings", ErrInvalidRuleset)
	}

	seenCategory := make(map[models.Category]bool)
	for _, cat := range rs.Categories {
		if _, err := models.ParseCategory(string(cat.Category)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRuleset, err)
		}
		if seenCategory[cat.Category] {
			return fmt.Errorf("%w: category %s declared twice", ErrInvalidRuleset, cat.Category)
		}
		seenCategory[cat.Category] = true

		seenPhrase := make(map[string]models.Level)
		for _, level := range models.Levels {
			for _, p := range cat.Phrases.ByLevel(level) {
				folded := textnorm.String(strings.TrimSpace(p))
				if folded == "" {
					return fmt.Errorf("%w: empty %s phrase in category %s", ErrInvalidRuleset, level, cat.Category)
				}
				if prev, ok := seenPhrase[folded]; ok {
					return fmt.Errorf("%w: phrase %q appears in both %s and %s tiers of %s",
						ErrInvalidRuleset, p, prev, level, cat.Category)
				}
				seenPhrase[folded] = level
			}
		}
	}

	if err := authority.ValidateThresholds(rs.Thresholds); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRuleset, err)
	}
	if rs.Approval.NonStandardValue.IsNegative() || rs.Approval.NonStandardMonths < 0 || rs.Approval.AnnualizeBelowMonths < 0 {
		return fmt.Errorf("%w: approval policy limits must not be negative", ErrInvalidRuleset)
	}

	return nil
}

// Category returns the rules of one category
func (rs *Ruleset) Category(c models.Category) (CategoryRules, bool) {
	for _, cat := range rs.Categories {
		if cat.Category == c {
			return cat, true
		}
	}
	return CategoryRules{}, false
}

// RiskCategories converts the phrase tiers into classifier input, low tier
// first
func (rs *Ruleset) RiskCategories() []risk.CategoryRules {
	out := make([]risk.CategoryRules, 0, len(rs.Categories))
	for _, cat := range rs.Categories {
		rc := risk.CategoryRules{Category: cat.Category}
		for _, level := range models.Levels {
			for _, p := range cat.Phrases.ByLevel(level) {
				rc.Phrases = append(rc.Phrases, risk.Phrase{Text: p, Level: level})
			}
		}
		out = append(out, rc)
	}
	return out
}

// PhraseCount returns the number of configured risk phrases
func (rs *Ruleset) PhraseCount() int {
	n := 0
	for _, cat := range rs.Categories {
		n += len(cat.Phrases.Low) + len(cat.Phrases.Medium) + len(cat.Phrases.High)
	}
	return n
}

// Classifier builds the risk classifier
func (rs *Ruleset) Classifier() *risk.Classifier {
	return risk.NewClassifier(rs.RiskCategories(), rs.NegationCues)
}

// Resolver builds the approval authority resolver
func (rs *Ruleset) Resolver() (*authority.Resolver, error) {
	return authority.NewResolver(rs.Thresholds, rs.Approval)
}

// SectionExtractor builds the decision section extractor
func (rs *Ruleset) SectionExtractor() *processor.SectionExtractor {
	return processor.NewSectionExtractor(rs.Section)
}
