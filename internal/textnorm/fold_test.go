package textnorm_test

import (
	"testing"

	"github.com/rt0111/onayformukontrol/internal/textnorm"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"İHALE", "ihale"},
		{"IHALE", "ihale"},
		{"ihale", "ihale"},
		{"Rüşvet", "rusvet"},
		{"ÇAĞRI", "cagri"},
		{"Kartel oluşumu", "kartel olusumu"},
		{"Contract", "contract"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, textnorm.String(tt.in))
			assert.Equal(t, tt.want, textnorm.Fold(tt.in).Text)
		})
	}
}

func TestFoldMapsBackToSource(t *testing.T) {
	f := textnorm.Fold("Ek: Rüşvet iddiası")

	hits := f.Index("rusvet")
	if assert.Len(t, hits, 1) {
		assert.Equal(t, "Rüşvet", f.Source(hits[0], hits[0]+len("rusvet")))
	}

	assert.Equal(t, 0, f.SourceOffset(-1))
	assert.Equal(t, len("Ek: Rüşvet iddiası"), f.SourceOffset(1000))
	assert.Equal(t, "", f.Source(5, 2))
}

func TestIndexFindsOverlappingOccurrences(t *testing.T) {
	f := textnorm.Fold("aaa")
	assert.Equal(t, []int{0, 1}, f.Index("aa"))
	assert.Nil(t, f.Index(""))
	assert.Nil(t, f.Index("b"))
}
