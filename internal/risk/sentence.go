package risk

import (
	"strings"

	"github.com/rt0111/onayformukontrol/internal/models"
)

// isTerminator reports whether s[i] ends a sentence. A dot inside a number
// such as 94.629,56 does not.
func isTerminator(s string, i int) bool {
	switch s[i] {
	case '.', '!', '?':
	default:
		return false
	}
	if i+1 == len(s) {
		return true
	}
	next := s[i+1]
	return next == ' ' || next == '\t' || next == '"' || next == ')' || next == '\''
}

// enclosingSentence returns the sentence around s[start:end] on lines[idx].
// An unterminated sentence continues over up to maxContinuationLines lines
// and stops at a blank line.
func enclosingSentence(lines []models.Line, idx, start, end int) string {
	line := lines[idx].Text

	from := 0
	for i := start - 1; i >= 0; i-- {
		if isTerminator(line, i) {
			from = i + 1
			break
		}
	}

	for i := end; i < len(line); i++ {
		if isTerminator(line, i) {
			return strings.TrimSpace(line[from : i+1])
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(line[from:]))

	added := 0
	for j := idx + 1; j < len(lines) && added < maxContinuationLines; j++ {
		next := strings.TrimSpace(lines[j].Text)
		if next == "" {
			break
		}
		added++

		cut := len(next)
		for i := 0; i < len(next); i++ {
			if isTerminator(next, i) {
				cut = i + 1
				break
			}
		}

		b.WriteByte(' ')
		b.WriteString(next[:cut])
		if cut < len(next) || isTerminator(next, len(next)-1) {
			break
		}
	}

	return b.String()
}
