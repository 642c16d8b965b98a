package authority_test

import (
	"errors"
	"testing"

	"github.com/rt0111/onayformukontrol/internal/authority"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func defaultResolver(t *testing.T) *authority.Resolver {
	t.Helper()
	rs, err := rules.Default()
	require.NoError(t, err)
	r, err := rs.Resolver()
	require.NoError(t, err)
	return r
}

func TestResolveBoundaries(t *testing.T) {
	r := defaultResolver(t)

	tests := []struct {
		value string
		want  string
	}{
		{"0", "Satınalmacı"},
		{"1000.00", "Satınalmacı"},
		{"1000.01", "Şef / Kategori Yöneticisi"},
		{"5000.00", "Şef / Kategori Yöneticisi"},
		{"5000.01", "Müdür / Bölge Müdürü"},
		{"25000", "Müdür / Bölge Müdürü"},
		{"75000.00", "Müdür / Bölge Müdürü"},
		{"75000.01", "Direktör"},
		{"150000.00", "Direktör"},
		{"150000.01", "Kıdemli Direktör"},
		{"400000.00", "Kıdemli Direktör"},
		{"400000.01", "Genel Müdür Yardımcısı"},
		{"600000.00", "Genel Müdür Yardımcısı"},
		{"600000.01", "Genel Müdür"},
		{"99999999999", "Genel Müdür"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			res, err := r.Resolve(d(tt.value), "USD")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Authority)
			assert.Equal(t, "USD", res.Currency)
		})
	}
}

func TestResolveNegative(t *testing.T) {
	r := defaultResolver(t)
	_, err := r.Resolve(d("-50"), "USD")
	assert.True(t, errors.Is(err, authority.ErrValueOutOfRange))
}

func TestResolveCoversEveryValue(t *testing.T) {
	r := defaultResolver(t)
	table := r.Rules()

	step := d("1234.57")
	for v := decimal.Zero; v.LessThan(d("800000")); v = v.Add(step) {
		res, err := r.Resolve(v, "TRY")
		require.NoError(t, err, v.String())

		matches := 0
		for _, rule := range table {
			if rule.Contains(v) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, v.String())
		assert.True(t, res.Rule.Contains(v))
	}
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name  string
		rules []models.ApprovalThresholdRule
	}{
		{"empty", nil},
		{"non-zero start", []models.ApprovalThresholdRule{
			{Lower: d("1"), Authority: "A"},
		}},
		{"gap", []models.ApprovalThresholdRule{
			{Lower: d("0"), Upper: dp("100"), Authority: "A"},
			{Lower: d("200"), Authority: "B"},
		}},
		{"overlap", []models.ApprovalThresholdRule{
			{Lower: d("0"), Upper: dp("200"), Authority: "A"},
			{Lower: d("100"), Authority: "B"},
		}},
		{"unbounded not last", []models.ApprovalThresholdRule{
			{Lower: d("0"), Authority: "A"},
			{Lower: d("100"), Authority: "B"},
		}},
		{"bounded last", []models.ApprovalThresholdRule{
			{Lower: d("0"), Upper: dp("100"), Authority: "A"},
		}},
		{"empty interval", []models.ApprovalThresholdRule{
			{Lower: d("0"), Upper: dp("0"), Authority: "A"},
			{Lower: d("0"), Authority: "B"},
		}},
		{"missing authority", []models.ApprovalThresholdRule{
			{Lower: d("0")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authority.ValidateThresholds(tt.rules)
			assert.True(t, errors.Is(err, authority.ErrInvalidThresholds), "got %v", err)

			_, err = authority.NewResolver(tt.rules, authority.Policy{})
			assert.Error(t, err)
		})
	}

	valid := []models.ApprovalThresholdRule{
		{Lower: d("0"), Upper: dp("100"), Authority: "A"},
		{Lower: d("100"), Authority: "B"},
	}
	assert.NoError(t, authority.ValidateThresholds(valid))
}

func TestResolverCopiesTable(t *testing.T) {
	table := []models.ApprovalThresholdRule{
		{Lower: d("0"), Upper: dp("100"), Authority: "A"},
		{Lower: d("100"), Authority: "B"},
	}
	r, err := authority.NewResolver(table, authority.Policy{})
	require.NoError(t, err)

	table[0].Authority = "changed"
	res, err := r.Resolve(d("50"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "A", res.Authority)
}
