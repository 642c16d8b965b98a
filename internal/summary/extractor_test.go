package summary_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/summary"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decision = `Satınalma Kararı
Tedarikçi: Acme Endüstri A.Ş.
Kabul edilen teklif: Acme Rev.2 teklifi
Toplam alım değeri (USD): 25.000,00
Teslim şekli: FOB İstanbul
Ödeme koşulları: 60 gün vadeli
Alım tipi: Sürekli
Sözleşme süresi: 24 ay
Yönetim onay gerekçesi: Finansal Limit
Matbu sözleşme yapılacak mı? Evet
Sözleşme No: SZ-2024/118
Teklif tarihi 15.03.2024, teslim 1 Nisan 2024.`

func extract(text string, findings ...models.RiskFinding) models.PurchaseSummary {
	return summary.NewExtractor().Extract(models.NewDecisionText(text), findings)
}

func TestExtractLabeledForm(t *testing.T) {
	findings := []models.RiskFinding{
		{Phrase: "tek tedarikçi"},
		{Phrase: "kartel", Negated: true},
		{Phrase: "tek tedarikçi"},
	}
	s := extract(decision, findings...)

	assert.Equal(t, models.Found("Acme Endüstri A.Ş.", "supplier-label"), s.Supplier)
	assert.Equal(t, models.Found("Acme Rev.2 teklifi", "offer-label"), s.AcceptedOffer)
	assert.Equal(t, models.Found("FOB İstanbul", "delivery-label"), s.DeliveryTerms)
	assert.Equal(t, models.Found("60 gün vadeli", "payment-label"), s.PaymentTerms)
	assert.Equal(t, models.Found("Sürekli", "purchase-type-label"), s.PurchaseType)
	assert.Equal(t, models.Found(24, "months-label"), s.ContractMonths)
	assert.Equal(t, models.Found("Finansal Limit", "management-reason"), s.ManagementReason)
	assert.Equal(t, models.Found(true, "standard-question"), s.StandardContract)
	assert.Equal(t, models.Found([]string{"SZ-2024/118"}, "contract-ref"), s.ContractRefs)

	require.Equal(t, models.StatusFound, s.TotalValue.Status)
	assert.True(t, s.TotalValue.Value.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, "total-purchase-value", s.TotalValue.Rule)
	assert.Equal(t, "USD", s.Currency)

	require.Equal(t, models.StatusFound, s.KeyDates.Status)
	assert.Equal(t, []models.KeyDate{
		{Text: "15.03.2024", Date: "2024-03-15", Line: 12},
		{Text: "1 Nisan 2024", Date: "2024-04-01", Line: 12},
	}, s.KeyDates.Value)

	assert.Equal(t, []string{"tek tedarikçi"}, s.FlaggedRiskPhrases)
}

func TestExtractNothingFound(t *testing.T) {
	s := extract("Satınalma Kararı\nDetaylar ektedir")

	assert.Equal(t, models.StatusNotFound, s.Supplier.Status)
	assert.Equal(t, models.StatusNotFound, s.AcceptedOffer.Status)
	assert.Equal(t, models.StatusNotFound, s.TotalValue.Status)
	assert.Equal(t, models.StatusNotFound, s.KeyDates.Status)
	assert.Equal(t, models.StatusNotFound, s.ContractRefs.Status)
	assert.Equal(t, models.StatusNotFound, s.StandardContract.Status)
	assert.Equal(t, summary.DefaultCurrency, s.Currency)
	assert.NotNil(t, s.FlaggedRiskPhrases)
	assert.Empty(t, s.FlaggedRiskPhrases)
}

func TestExtractAmbiguousTotalValue(t *testing.T) {
	s := extract("Toplam tutar: 1.2.3 EUR")

	assert.Equal(t, models.StatusNotExtracted, s.TotalValue.Status)
	assert.Equal(t, "total-label", s.TotalValue.Rule)
	assert.True(t, s.TotalValue.Value.Equal(decimal.RequireFromString("1.2")))
	assert.Contains(t, s.TotalValue.Note, "ambiguous")
	assert.Equal(t, "EUR", s.Currency)
}

func TestExtractTotalValueFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		value    string
		currency string
		rule     string
	}{
		{"currency prefix", "Bedel $ 1,250.50 olarak hesaplandı", "1250.50", "USD", "currency-prefix"},
		{"currency suffix skips unit prices", "Birim fiyat 12,50 USD/ton, toplam 5.000 USD", "5000", "USD", "currency-suffix"},
		{"lira", "Sözleşme bedeli: 750.000 TL", "750000", "TRY", "total-label"},
		{"english label", "Total value: EUR 94,629.56", "94629.56", "EUR", "total-label"},
		{"space grouped thousands", "Toplam Alım Değeri 25 000,00 USD", "25000", "USD", "total-purchase-value"},
		{"label followed by item count", "Toplam Alım Değeri: 3 kalem, toplam 25.000,00 USD", "25000", "USD", "currency-suffix"},
		{"label followed by quantity", "Toplam Alım Değeri 120 ton x 62.300 RUB/ton", "7476000", "RUB", "quantity-times-unit-price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := extract(tt.text)
			require.Equal(t, models.StatusFound, s.TotalValue.Status)
			assert.True(t, s.TotalValue.Value.Equal(decimal.RequireFromString(tt.value)), "got %s", s.TotalValue.Value)
			assert.Equal(t, tt.currency, s.Currency)
			assert.Equal(t, tt.rule, s.TotalValue.Rule)
		})
	}
}

func TestExtractQuantityTimesUnitPrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		value    string
		currency string
	}{
		{"same line", "120 ton alım, birim fiyat 62.300 RUB/ton", "7476000", "RUB"},
		{"separate lines", "Miktar: 40 adet\nBirim fiyat: EUR 1.250,50 / adet", "50020", "EUR"},
		{"kilograms against price per ton", "Sipariş 120.000KG\nFiyat 62.300RUB/ton", "7476000", "RUB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := extract(tt.text)
			require.Equal(t, models.StatusFound, s.TotalValue.Status)
			assert.Equal(t, "quantity-times-unit-price", s.TotalValue.Rule)
			assert.True(t, s.TotalValue.Value.Equal(decimal.RequireFromString(tt.value)), "got %s", s.TotalValue.Value)
			assert.Equal(t, tt.currency, s.Currency)
		})
	}
}

func TestExtractQuantityWithoutMoney(t *testing.T) {
	for _, text := range []string{
		"Toplam Alım Değeri 120 ton",
		"Toplam tutar: 6 ay",
		"120 ton alım, fiyat 62.300 RUB/kutu",
	} {
		s := extract(text)
		assert.Equal(t, models.StatusNotFound, s.TotalValue.Status, text)
	}
}

func TestExtractSupplierSentence(t *testing.T) {
	s := extract("Değerlendirme sonucunda kazanan firma Beta Ltd olmuştur.")
	assert.Equal(t, models.Found("Beta Ltd", "supplier-sentence"), s.Supplier)
}

func TestExtractLabelOnNextLine(t *testing.T) {
	s := extract("Tedarikçi:\n\nGamma Makina San.")
	assert.Equal(t, models.Found("Gamma Makina San.", "supplier-label"), s.Supplier)
}

func TestExtractContractMonths(t *testing.T) {
	tests := []struct {
		text string
		want models.Field[int]
	}{
		{"Sözleşme süresi: 2 yıl", models.Found(24, "years-label")},
		{"Sözleşme süresi (ay): 9", models.Found(9, "months-table")},
		{"12 aylık sözleşme imzalanacaktır", models.Found(12, "months-phrase")},
		{"Contract duration: 18 months", models.Found(18, "months-label-en")},
		{"Sözleşme süresi: 15 yıl", models.NotFound[int]()},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extract(tt.text).ContractMonths)
		})
	}
}

func TestExtractStandardContract(t *testing.T) {
	tests := []struct {
		text string
		want models.Field[bool]
	}{
		{"Matbu sözleşme: Hayır", models.Found(false, "standard-label")},
		{"Matbu sözleşme: Yapılacak", models.Found(true, "standard-label")},
		{"☒ Matbu sözleşme", models.Found(false, "standard-checkbox")},
		{"[x] Matbu sözleşme", models.Found(true, "standard-checkbox")},
		{"Standard contract? No", models.Found(false, "standard-en")},
		{"Matbu sözleşme: belirsiz", models.NotFound[bool]()},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extract(tt.text).StandardContract)
		})
	}
}

func TestExtractPurchaseType(t *testing.T) {
	assert.Equal(t, models.Found("Spot", "purchase-type-phrase"), extract("Bu bir spot alım talebidir").PurchaseType)
	assert.Equal(t, models.Found("Sürekli", "purchase-type-en"), extract("Purchase type: continuous").PurchaseType)
}

func TestExtractContractRefs(t *testing.T) {
	s := extract("PO-55012 ve PR-7781 ile ilişkili\nSipariş No: 4500123\nPO-55012 tekrar")
	assert.Equal(t, models.Found([]string{"PO-55012", "PR-7781", "4500123"}, "contract-ref"), s.ContractRefs)
}

func TestExtractDatesRejectsInvalid(t *testing.T) {
	s := extract("31.02.2024 geçersiz, 2024-02-29 geçerli, 5 March 2025")
	require.Equal(t, models.StatusFound, s.KeyDates.Status)
	assert.Equal(t, []models.KeyDate{
		{Text: "2024-02-29", Date: "2024-02-29", Line: 1},
		{Text: "5 March 2025", Date: "2025-03-05", Line: 1},
	}, s.KeyDates.Value)
}

func TestHighlights(t *testing.T) {
	text := models.NewDecisionText(strings.Join([]string{
		"Bu alımın amacı üretim hattının yenilenmesidir.",
		"EK-1 teklif karşılaştırma tablosu ektedir.",
		"Kısa cümle.",
		"Üç firmadan teklif alınmış ve değerlendirilmiştir.",
		"Önceki yıl aynı tedarikçiden alım yapılmıştır.",
		"Lojistik planlaması depo ekibi ile yapılacaktır.",
	}, "\n"))

	assert.Equal(t, []string{
		"Bu alımın amacı üretim hattının yenilenmesidir.",
		"Önceki yıl aynı tedarikçiden alım yapılmıştır.",
		"Üç firmadan teklif alınmış ve değerlendirilmiştir.",
		"Lojistik planlaması depo ekibi ile yapılacaktır.",
	}, summary.Highlights(text))
}

func TestHighlightsBounded(t *testing.T) {
	var lines []string
	for i := 0; i < 15; i++ {
		lines = append(lines, fmt.Sprintf("Bu uzun açıklama cümlesi numara %d içerir.", i))
	}
	got := summary.Highlights(models.NewDecisionText(strings.Join(lines, "\n")))
	assert.Len(t, got, summary.MaxHighlights)
	assert.Equal(t, lines[0], got[0])

	empty := summary.Highlights(models.DecisionText{})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
