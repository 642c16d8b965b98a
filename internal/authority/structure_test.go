package authority_test

import (
	"errors"
	"testing"

	"github.com/rt0111/onayformukontrol/internal/authority"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructure(t *testing.T) {
	r := defaultResolver(t)

	tests := []struct {
		name          string
		in            authority.StructureInput
		wantAuthority string
		wantValue     string
		annualized    bool
	}{
		{
			name:          "consulting tender goes to the top",
			in:            authority.StructureInput{Value: d("500"), Currency: "USD", Reason: "DANIŞMANLIK İHALESİ", StandardContract: true},
			wantAuthority: "Genel Müdür",
			wantValue:     "500",
		},
		{
			name:          "long non-standard contract",
			in:            authority.StructureInput{Value: d("10000"), Currency: "USD", Months: 9, StandardContract: false},
			wantAuthority: "Minimum Direktör",
			wantValue:     "10000",
		},
		{
			name:          "large non-standard contract",
			in:            authority.StructureInput{Value: d("150000.01"), Currency: "USD", Months: 3, StandardContract: false},
			wantAuthority: "Minimum Direktör",
			wantValue:     "150000.01",
		},
		{
			name:          "short continuous purchase is annualized",
			in:            authority.StructureInput{Value: d("10000"), Currency: "USD", PurchaseType: authority.PurchaseContinuous, Months: 6, StandardContract: true},
			wantAuthority: "Müdür / Bölge Müdürü",
			wantValue:     "20000",
			annualized:    true,
		},
		{
			name:          "yearly continuous purchase keeps the total",
			in:            authority.StructureInput{Value: d("80000"), Currency: "EUR", PurchaseType: authority.PurchaseContinuous, Months: 24, StandardContract: true},
			wantAuthority: "Direktör",
			wantValue:     "80000",
		},
		{
			name:          "spot purchase",
			in:            authority.StructureInput{Value: d("4000"), Currency: "TRY", PurchaseType: authority.PurchaseSpot, StandardContract: true},
			wantAuthority: "Şef / Kategori Yöneticisi",
			wantValue:     "4000",
		},
		{
			name:          "financial limit marks the minimum",
			in:            authority.StructureInput{Value: d("25000"), Currency: "USD", Reason: "Finansal Limit", StandardContract: true},
			wantAuthority: "Müdür / Bölge Müdürü (minimum)",
			wantValue:     "25000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Structure(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuthority, got.Authority)
			assert.True(t, got.EffectiveValue.Equal(d(tt.wantValue)), "effective value %s", got.EffectiveValue)
			assert.Equal(t, tt.annualized, got.Annualized)
			assert.Equal(t, tt.in.Currency, got.Currency)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestStructureNegative(t *testing.T) {
	r := defaultResolver(t)
	_, err := r.Structure(authority.StructureInput{Value: d("-1"), StandardContract: true})
	assert.True(t, errors.Is(err, authority.ErrValueOutOfRange))
}

func TestPolicyDefaultsApplyToZeroValues(t *testing.T) {
	r, err := authority.NewResolver(defaultResolver(t).Rules(), authority.Policy{})
	require.NoError(t, err)

	got, err := r.Structure(authority.StructureInput{Value: d("200000"), Currency: "USD", StandardContract: false})
	require.NoError(t, err)
	assert.Equal(t, authority.DefaultPolicy().NonStandardAuthority, got.Authority)
}
