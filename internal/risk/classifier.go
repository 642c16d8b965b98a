// Package risk detects commercial, ethical and legal risk phrases in
// decision text.
//
// Matching is literal: every configured phrase is folded (Turkish case rules,
// diacritics stripped) and searched as a substring of each folded line. Every
// occurrence becomes one finding; overlapping phrases on the same line are all
// reported. Lines that carry a negation cue ("yoktur", "değildir", ...) still
// produce findings, marked as negated, so callers decide how to present them.
package risk

import (
	"sort"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/textnorm"
)

// Phrase is one trigger phrase and its severity tier
type Phrase struct {
	Text  string
	Level models.Level
}

// CategoryRules is the ordered phrase list of one category
type CategoryRules struct {
	Category models.Category
	Phrases  []Phrase
}

type compiledPhrase struct {
	Phrase
	folded string
}

type compiledCategory struct {
	category models.Category
	phrases  []compiledPhrase
}

// Classifier scans text for configured risk phrases. It is immutable and
// safe for concurrent use.
type Classifier struct {
	categories []compiledCategory
	negations  []string
}

// maxContinuationLines bounds how far an unterminated sentence is followed
const maxContinuationLines = 2

// NewClassifier folds the phrases once and orders categories as declared in
// models.Categories
func NewClassifier(categories []CategoryRules, negationCues []string) *Classifier {
	compiled := make([]compiledCategory, 0, len(categories))
	for _, cat := range categories {
		cc := compiledCategory{category: cat.Category}
		for _, p := range cat.Phrases {
			folded := textnorm.String(strings.TrimSpace(p.Text))
			if folded == "" {
				continue
			}
			cc.phrases = append(cc.phrases, compiledPhrase{Phrase: p, folded: folded})
		}
		compiled = append(compiled, cc)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return categoryRank(compiled[i].category) < categoryRank(compiled[j].category)
	})

	var negations []string
	for _, cue := range negationCues {
		if f := textnorm.String(strings.TrimSpace(cue)); f != "" {
			negations = append(negations, f)
		}
	}

	return &Classifier{categories: compiled, negations: negations}
}

func categoryRank(c models.Category) int {
	for i, known := range models.Categories {
		if known == c {
			return i
		}
	}
	return len(models.Categories)
}

// Classify returns one finding per phrase occurrence, ordered by line, then
// category, then phrase, then position in the line
func (c *Classifier) Classify(text models.DecisionText) []models.RiskFinding {
	findings := []models.RiskFinding{}

	for idx, line := range text.Lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}

		folded := textnorm.Fold(line.Text)
		negated := c.isNegated(folded.Text)

		for _, cat := range c.categories {
			for _, p := range cat.phrases {
				for _, hit := range folded.Index(p.folded) {
					start := folded.SourceOffset(hit)
					end := folded.SourceOffset(hit + len(p.folded))

					findings = append(findings, models.RiskFinding{
						Category: cat.category,
						Phrase:   p.Text,
						Sentence: enclosingSentence(text.Lines, idx, start, end),
						Line:     line.Number,
						Level:    p.Level,
						Negated:  negated,
					})
				}
			}
		}
	}

	return findings
}

func (c *Classifier) isNegated(foldedLine string) bool {
	for _, cue := range c.negations {
		if strings.Contains(foldedLine, cue) {
			return true
		}
	}
	return false
}

// FlaggedPhrases returns the distinct phrases of non-negated findings in order
func FlaggedPhrases(findings []models.RiskFinding) []string {
	seen := make(map[string]bool)
	phrases := []string{}
	for _, f := range findings {
		if f.Negated || seen[f.Phrase] {
			continue
		}
		seen[f.Phrase] = true
		phrases = append(phrases, f.Phrase)
	}
	return phrases
}

// CountByCategory counts findings per category
func CountByCategory(findings []models.RiskFinding) map[models.Category]int {
	counts := make(map[models.Category]int, len(models.Categories))
	for _, f := range findings {
		counts[f.Category]++
	}
	return counts
}
