package processor

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/textnorm"
)

// ErrSectionNotFound is returned when no purchasing decision heading matches
var ErrSectionNotFound = errors.New("purchasing decision section not found")

// SectionConfig lists the headings that open and close the decision section
type SectionConfig struct {
	Headings     []string `json:"headings" yaml:"headings"`
	StopHeadings []string `json:"stop_headings" yaml:"stop_headings"`
}

// SectionExtractor isolates the purchasing decision section of a document
type SectionExtractor struct {
	headings []string
	stops    []string
}

var (
	// Leading numbering such as "5.", "3)", "IV." or bullets
	numberingRe  = regexp.MustCompile(`^(?:\s*(?:\d+(?:\.\d+)*[.)]?|[ivx]+[.)]|[a-z][.)]|[-•*#]))+\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NewSectionExtractor folds the configured headings once
func NewSectionExtractor(cfg SectionConfig) *SectionExtractor {
	return &SectionExtractor{
		headings: foldAll(cfg.Headings),
		stops:    foldAll(cfg.StopHeadings),
	}
}

func foldAll(phrases []string) []string {
	folded := make([]string, 0, len(phrases))
	for _, p := range phrases {
		f := normalizeHeading(p)
		if f != "" {
			folded = append(folded, f)
		}
	}
	return folded
}

// normalizeHeading folds a line and strips numbering and extra spaces
func normalizeHeading(s string) string {
	f := textnorm.String(s)
	f = whitespaceRe.ReplaceAllString(f, " ")
	f = strings.TrimSpace(f)
	f = numberingRe.ReplaceAllString(f, "")
	return strings.TrimSpace(f)
}

// Extract returns the span from the first decision heading up to the next
// stop heading or the end of the text. The heading line is kept so that
// extracting again from the result yields the same span.
func (e *SectionExtractor) Extract(text models.DecisionText) (models.DecisionText, error) {
	start := -1
	for i, line := range text.Lines {
		if e.isHeading(line.Text) {
			start = i
			break
		}
	}
	if start < 0 {
		return models.DecisionText{}, ErrSectionNotFound
	}

	end := len(text.Lines)
	for i := start + 1; i < len(text.Lines); i++ {
		if e.isStop(text.Lines[i].Text) {
			end = i
			break
		}
	}

	return models.FromLines(text.Lines[start:end]), nil
}

// isHeading reports whether the line opens with a decision heading
func (e *SectionExtractor) isHeading(line string) bool {
	n := normalizeHeading(line)
	for _, h := range e.headings {
		if hasWordPrefix(n, h) {
			return true
		}
	}
	return false
}

// isStop reports whether the line is a standalone stop heading
func (e *SectionExtractor) isStop(line string) bool {
	n := strings.TrimRight(normalizeHeading(line), " :.-")
	if n == "" {
		return false
	}
	for _, s := range e.stops {
		if n == s {
			return true
		}
	}
	return false
}

// hasWordPrefix reports whether s starts with prefix followed by a non-letter
func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	rest := s[len(prefix):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !unicode.IsLetter(r)
}
