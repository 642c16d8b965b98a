// Package amount parses and formats monetary amounts written with either
// the Turkish (1.234,56) or the English (1,234.56) separator convention.
package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrAmbiguousNumberFormat is returned when a token mixes both conventions
// inconsistently
var ErrAmbiguousNumberFormat = errors.New("ambiguous number format")

// AmbiguousError carries the offending token and the longest valid numeric
// substring found in it
type AmbiguousError struct {
	Token       string
	Fallback    decimal.Decimal
	HasFallback bool
}

func (e *AmbiguousError) Error() string {
	if e.HasFallback {
		return fmt.Sprintf("ambiguous number format %q (fallback %s)", e.Token, e.Fallback.String())
	}
	return fmt.Sprintf("ambiguous number format %q", e.Token)
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousNumberFormat
}

// Parse converts a number token into a decimal. A single separator followed
// by exactly three digits is read as a thousands separator (1.000 and 1,000
// are both one thousand); otherwise a lone separator is the decimal point.
func Parse(token string) (decimal.Decimal, error) {
	token = strings.TrimSpace(token)
	token = strings.Trim(token, ".,")
	if token == "" {
		return decimal.Zero, fmt.Errorf("empty number token")
	}

	d, ok := parseStrict(token)
	if ok {
		return d, nil
	}

	if !isNumeric(token) {
		return decimal.Zero, fmt.Errorf("invalid number token %q", token)
	}

	fallback, found := longestValid(token)
	return decimal.Zero, &AmbiguousError{Token: token, Fallback: fallback, HasFallback: found}
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != ',' {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// parseStrict parses s when it follows one convention consistently
func parseStrict(s string) (decimal.Decimal, bool) {
	if s == "" || !isNumeric(s) || !isDigit(s[0]) || !isDigit(s[len(s)-1]) {
		return decimal.Zero, false
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots == 0 && commas == 0:
		return fromParts(s, "")

	case dots > 0 && commas > 0:
		last := strings.LastIndexAny(s, ".,")
		decSep := s[last]
		thouSep := byte('.')
		if decSep == '.' {
			thouSep = ','
		}
		if strings.Count(s, string(decSep)) != 1 || strings.LastIndexByte(s, thouSep) > last {
			return decimal.Zero, false
		}
		intPart, ok := ungroup(s[:last], thouSep)
		if !ok {
			return decimal.Zero, false
		}
		return fromParts(intPart, s[last+1:])

	default:
		sep := byte('.')
		count := dots
		if commas > 0 {
			sep = ','
			count = commas
		}

		if count > 1 {
			intPart, ok := ungroup(s, sep)
			if !ok {
				return decimal.Zero, false
			}
			return fromParts(intPart, "")
		}

		i := strings.IndexByte(s, sep)
		intPart, frac := s[:i], s[i+1:]
		if len(frac) == 3 && len(intPart) <= 3 && intPart != "0" {
			return fromParts(intPart+frac, "")
		}
		return fromParts(intPart, frac)
	}
}

// ungroup removes sep from s when every group after the first has three
// digits. A grouped number cannot start with a zero ("000,000").
func ungroup(s string, sep byte) (string, bool) {
	groups := strings.Split(s, string(sep))
	if len(groups) > 1 && (len(groups[0]) == 0 || len(groups[0]) > 3 || groups[0][0] == '0') {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func fromParts(intPart, frac string) (decimal.Decimal, bool) {
	if intPart == "" || strings.ContainsAny(intPart, ".,") || strings.ContainsAny(frac, ".,") {
		return decimal.Zero, false
	}
	s := intPart
	if frac != "" {
		s += "." + frac
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// longestValid returns the value of the longest substring of s that parses
// strictly; ties go to the leftmost one
func longestValid(s string) (decimal.Decimal, bool) {
	for length := len(s) - 1; length > 0; length-- {
		for i := 0; i+length <= len(s); i++ {
			if d, ok := parseStrict(s[i : i+length]); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// FormatTR renders d with two decimals in Turkish notation, e.g. 1.234,56
func FormatTR(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	b.WriteByte(',')
	b.WriteString(frac)

	return b.String()
}
