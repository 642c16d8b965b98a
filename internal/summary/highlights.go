package summary

import (
	"regexp"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/textnorm"
)

// MaxHighlights bounds the number of key sentences returned by Highlights
const MaxHighlights = 10

const minHighlightLength = 20

// highlightGroups are folded keywords; sentences are picked group by group
var highlightGroups = [][]string{
	{"amac", "purpose"},
	{"gecmis", "onceki", "history", "previous"},
	{"ihale", "tender"},
	{"teklif", "offer", "bid"},
	{"karar", "decision", "onay"},
	{"hesap", "calculation", "toplam", "total"},
}

var sentenceEnd = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// splitSentences splits the non-blank lines into sentences
func splitSentences(text models.DecisionText) []string {
	var sentences []string
	for _, l := range text.Lines {
		line := strings.TrimSpace(l.Text)
		if line == "" {
			continue
		}
		from := 0
		for _, m := range sentenceEnd.FindAllStringIndex(line, -1) {
			if s := strings.TrimSpace(line[from:m[1]]); s != "" {
				sentences = append(sentences, s)
			}
			from = m[1]
		}
		if s := strings.TrimSpace(line[from:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Highlights picks up to MaxHighlights key sentences: first those matching
// the keyword groups in group order, then the remaining sentences in reading
// order. Short sentences and attachment references ("EK-1") are skipped.
func Highlights(text models.DecisionText) []string {
	type candidate struct {
		text   string
		folded string
	}

	var candidates []candidate
	for _, s := range splitSentences(text) {
		if len([]rune(s)) <= minHighlightLength {
			continue
		}
		folded := textnorm.String(s)
		if strings.HasPrefix(folded, "ek-") || strings.HasPrefix(folded, "ek -") {
			continue
		}
		candidates = append(candidates, candidate{text: s, folded: folded})
	}

	picked := make([]bool, len(candidates))
	out := []string{}

	take := func(i int) bool {
		if picked[i] {
			return false
		}
		picked[i] = true
		out = append(out, candidates[i].text)
		return len(out) >= MaxHighlights
	}

	for _, group := range highlightGroups {
		for i, c := range candidates {
			for _, kw := range group {
				if strings.Contains(c.folded, kw) {
					if take(i) {
						return out
					}
					break
				}
			}
		}
	}

	for i := range candidates {
		if take(i) {
			return out
		}
	}

	return out
}
