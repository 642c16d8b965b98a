// Package textnorm folds Turkish and English text for literal phrase matching.
//
// Folding lower-cases with Turkish rules, strips combining marks and maps the
// dotless i, so "İHALE", "ihale" and "Ihale" all become "ihale" and "Rüşvet"
// becomes "rusvet". Every folded byte keeps a pointer back to the byte of the
// original string it came from, which lets callers report matches in the
// original text.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Folded is a folded string with a byte map back into its source
type Folded struct {
	Text   string
	source string
	// offsets[i] is the source byte offset of folded byte i; the extra last
	// entry is len(source).
	offsets []int
}

// newFolder builds a fresh transformer; transformers carry state and are not
// shared between goroutines.
func newFolder() transform.Transformer {
	return transform.Chain(
		cases.Lower(language.Turkish),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r == 'ı' {
				return 'i'
			}
			return r
		}),
	)
}

// Fold folds s and keeps the offset map
func Fold(s string) Folded {
	t := newFolder()

	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)

	for i, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}

		var folded string
		if r < utf8.RuneSelf && !('A' <= r && r <= 'Z') {
			folded = string(r)
		} else {
			t.Reset()
			out, _, err := transform.String(t, string(r))
			if err != nil {
				out = string(unicode.ToLower(r))
			}
			folded = out
		}

		for j := 0; j < len(folded); j++ {
			offsets = append(offsets, i)
		}
		b.WriteString(folded)
	}
	offsets = append(offsets, len(s))

	return Folded{Text: b.String(), source: s, offsets: offsets}
}

// String folds s without keeping the offset map
func String(s string) string {
	out, _, err := transform.String(newFolder(), s)
	if err != nil {
		return Fold(s).Text
	}
	return out
}

// SourceOffset maps a folded byte offset to the source byte offset
func (f Folded) SourceOffset(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(f.offsets) {
		return len(f.source)
	}
	return f.offsets[i]
}

// Source returns the source substring behind the folded range [start, end)
func (f Folded) Source(start, end int) string {
	from := f.SourceOffset(start)
	to := f.SourceOffset(end)
	if to < from {
		return ""
	}
	return f.source[from:to]
}

// Index returns all folded byte offsets where the already folded needle occurs
func (f Folded) Index(needle string) []int {
	if needle == "" {
		return nil
	}

	var hits []int
	for from := 0; from <= len(f.Text)-len(needle); {
		i := strings.Index(f.Text[from:], needle)
		if i < 0 {
			break
		}
		hits = append(hits, from+i)
		from += i + 1
	}
	return hits
}
