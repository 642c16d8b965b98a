package summary

import (
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/amount"
	"github.com/rt0111/onayformukontrol/internal/models"

	"github.com/shopspring/decimal"
)

// All patterns run on folded text: lower case, no diacritics, ı mapped to i.

var supplierRules = []rule[string]{
	labeledRule("supplier-label", regexp.MustCompile(
		`^\s*(?:secilen |kazanan |onerilen )?(?:tedarikci(?: firma)?(?: adi| unvani)?|firma(?: adi| unvani)|supplier(?: name)?|vendor(?: name)?)\s*[:\-]\s*(.*)$`)),
	labeledRule("supplier-sentence", regexp.MustCompile(
		`(?:secilen|kazanan|onerilen) (?:tedarikci|firma)(?: olarak)?\s+([^,;]+?)(?:\s+(?:olmustur|secilmistir|onerilmektedir|uygun gorulmustur)|[,;]|\.\s|\.$|$)`)),
	labeledRule("awarded-to", regexp.MustCompile(
		`(?:awarded to|selected supplier is|purchase from)\s+([^,;]+?)(?:[,;]|\.\s|\.$|$)`)),
}

var acceptedOfferRules = []rule[string]{
	labeledRule("offer-label", regexp.MustCompile(
		`^\s*(?:kabul edilen|secilen|kazanan|onaylanan|accepted|selected|winning) (?:teklif|offer|bid)\s*[:\-]\s*(.*)$`)),
	labeledRule("offer-sentence", regexp.MustCompile(
		`([^.]*teklif\w*\s+(?:kabul edil|tercih edil|secil|uygun bulun)\w*[^.]*\.?)`)),
	labeledRule("offer-sentence-en", regexp.MustCompile(
		`([^.]*(?:offer|bid)\w*\s+(?:was|is|has been)\s+(?:accepted|selected)[^.]*\.?)`)),
}

var deliveryRules = []rule[string]{
	labeledRule("delivery-label", regexp.MustCompile(
		`^\s*(?:teslim(?:at)?(?: sekli| kosullari| sartlari| suresi| yeri| tarihi)?|delivery(?: terms| conditions| time)?|incoterms?)\s*[:\-]\s*(.*)$`)),
	labeledRule("incoterm", regexp.MustCompile(
		`\b((?:exw|fca|fas|fob|cfr|cif|cpt|cip|dap|dpu|ddp)\b[^,;.]*)`)),
	labeledRule("delivery-sentence", regexp.MustCompile(
		`([^.]*teslim (?:edilecek|edilecektir|edilmesi)[^.]*\.?)`)),
}

var paymentRules = []rule[string]{
	labeledRule("payment-label", regexp.MustCompile(
		`^\s*(?:odeme(?: kosullari| sekli| sartlari| vadesi| plani)?|payment(?: terms| conditions)?|vade)\s*[:\-]\s*(.*)$`)),
	labeledRule("payment-term", regexp.MustCompile(
		`\b(\d+\s*gun vadeli?|pesin(?: odeme)?|\d+\s*days?(?: net)?|net\s*\d+|advance payment|akreditif|letter of credit)\b`)),
}

var reasonRules = []rule[string]{
	labeledRule("management-reason", regexp.MustCompile(`yonetim onay gerekcesi\s*[:\-]?\s*(.*)$`)),
	labeledRule("management-reason-en", regexp.MustCompile(`management approval reason\s*[:\-]?\s*(.*)$`)),
}

var purchaseTypeRules = []rule[string]{
	typedPurchase("purchase-type-label", regexp.MustCompile(`(?:alim|satinalma|satin alma) tipi\s*[:\-]?\s*(spot|surekli)`)),
	typedPurchase("purchase-type-en", regexp.MustCompile(`purchase type\s*[:\-]?\s*(spot|continuous|recurring)`)),
	typedPurchase("purchase-type-phrase", regexp.MustCompile(`\b(spot|surekli) (?:alim|satinalma|satin alma)\b`)),
}

func typedPurchase(name string, re *regexp.Regexp) rule[string] {
	return rule[string]{
		name: name,
		apply: func(doc *document) (models.Field[string], bool) {
			for _, l := range doc.lines {
				m := re.FindStringSubmatch(l.folded.Text)
				if m == nil {
					continue
				}
				if m[1] == "spot" {
					return models.Found("Spot", name), true
				}
				return models.Found("Sürekli", name), true
			}
			return models.Field[string]{}, false
		},
	}
}

var durationRules = []rule[int]{
	duration("months-table", `sozlesme suresi\s*\(ay\)\s*[:\-]?\s*(\d+)`, 1),
	duration("months-label", `sozlesme suresi\s*[:\-]?\s*(\d+)\s*ay`, 1),
	duration("months-label-en", `contract (?:duration|period|term)\s*[:\-]?\s*(\d+)\s*months?`, 1),
	duration("years-label", `sozlesme suresi\s*[:\-]?\s*(\d+)\s*yil`, 12),
	duration("years-label-en", `contract (?:duration|period|term)\s*[:\-]?\s*(\d+)\s*years?`, 12),
	duration("months-phrase", `(\d+)\s*(?:aylik sozlesme|ay sureyle|month contract|-month contract)`, 1),
	duration("years-phrase", `(\d+)\s*(?:yillik sozlesme|yil sureyle|year contract|-year contract)`, 12),
	duration("months-generic", `(?:\bsure|duration)\s*[:\-]?\s*(\d+)\s*(?:ay|months?)\b`, 1),
	duration("for-months", `\bfor\s+(\d+)\s+months\b`, 1),
}

// duration matches a number of months (unit 1) or years (unit 12); values
// outside ten years are ignored
func duration(name, pattern string, unit int) rule[int] {
	re := regexp.MustCompile(pattern)
	return rule[int]{
		name: name,
		apply: func(doc *document) (models.Field[int], bool) {
			for _, l := range doc.lines {
				for _, m := range re.FindAllStringSubmatch(l.folded.Text, -1) {
					n, err := strconv.Atoi(m[1])
					if err != nil || n < 1 || n*unit > 120 {
						continue
					}
					return models.Found(n*unit, name), true
				}
			}
			return models.Field[int]{}, false
		},
	}
}

var (
	standardNegative = []string{"hayir", "no", "yok", "olmayacak", "yapilmayacak", "bos", "isaretlenmemis"}
	standardPositive = []string{"evet", "yes", "var", "olacak", "yapilacak", "isaretli"}
)

var standardContractRules = []rule[bool]{
	standardAnswer("standard-question", regexp.MustCompile(`matbu sozlesme (?:yapilacak|kullanilacak) mi\s*\??\s*[:\-]?\s*(.*)$`)),
	standardAnswer("standard-label", regexp.MustCompile(`matbu sozlesme\s*[:\-]\s*(.*)$`)),
	standardAnswer("standard-checkbox", regexp.MustCompile(`(☐|☑|☒|✓|✔|✗|✘|\[\s*\]|\[x\])\s*matbu`)),
	standardAnswer("standard-en", regexp.MustCompile(`standard contract\s*\??\s*[:\-]?\s*(.*)$`)),
}

// standardAnswer reads a yes/no answer from group 1; an answer that is
// neither leaves the field to the next rule
func standardAnswer(name string, re *regexp.Regexp) rule[bool] {
	return rule[bool]{
		name: name,
		apply: func(doc *document) (models.Field[bool], bool) {
			for _, l := range doc.lines {
				m := re.FindStringSubmatch(l.folded.Text)
				if m == nil {
					continue
				}
				if v, ok := yesNo(m[1]); ok {
					return models.Found(v, name), true
				}
			}
			return models.Field[bool]{}, false
		},
	}
}

func yesNo(answer string) (bool, bool) {
	switch {
	case strings.ContainsAny(answer, "☐✗✘☒") || strings.Contains(answer, "[ ]") || strings.Contains(answer, "[]"):
		return false, true
	case strings.ContainsAny(answer, "☑✓✔") || strings.Contains(answer, "[x]"):
		return true, true
	}

	words := strings.FieldsFunc(answer, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, w := range words {
		for _, neg := range standardNegative {
			if w == neg {
				return false, true
			}
		}
	}
	for _, w := range words {
		for _, pos := range standardPositive {
			if w == pos {
				return true, true
			}
		}
	}
	return false, false
}

// money is a total value with the currency found next to it
type money struct {
	Value    decimal.Decimal
	Currency string
}

const currencyAlt = `usd|eur|try|gbp|rub|chf|tl`

// labeledNumber also accepts space-grouped thousands ("25 000,00")
const labeledNumber = `(\d{1,3}(?: \d{3})+(?:[.,]\d+)?|\d[\d.,]*)`

var totalValueRules = []rule[money]{
	moneyRule("total-purchase-value", regexp.MustCompile(
		`toplam alim (?:degeri|tutari)\s*(?:\((`+currencyAlt+`)\))?\s*[:\-]?\s*(?:(`+currencyAlt+`|\$|€|₺)\s*)?`+labeledNumber+`\s*(`+currencyAlt+`)?\b`)),
	moneyRule("total-label", regexp.MustCompile(
		`(?:toplam (?:tutar|bedel|deger)|sozlesme bedeli|teklif (?:tutari|bedeli)|total (?:purchase )?(?:value|amount|price)|contract value)\s*(?:\((`+currencyAlt+`)\))?\s*[:\-]?\s*(?:(`+currencyAlt+`|\$|€|₺)\s*)?`+labeledNumber+`\s*(`+currencyAlt+`)?\b`)),
	{name: "quantity-times-unit-price", apply: quantityTimesUnitPrice},
	moneyRule("currency-suffix", regexp.MustCompile(
		`()()(\d[\d.,]*)\s*(`+currencyAlt+`)\b`)),
	moneyRule("currency-prefix", regexp.MustCompile(
		`(?:^|[^a-z])()(`+currencyAlt+`|\$|€|₺)\s*(\d[\d.,]*)()`)),
}

// unitPrice matches a per-unit price following an amount ("/ton", "/adet")
var unitPrice = regexp.MustCompile(`^\s*/\s*[a-z]`)

const unitAlt = `ton|kg|gr|adet|kalem|ay|yil|gun|lt|litre|m2|m3|metre|mt|paket|kutu|koli|pcs|units?|items?|months?|years?`

// unitWord matches a quantity unit following an amount ("120 ton", "3 kalem")
var unitWord = regexp.MustCompile(`^\s*(?:` + unitAlt + `)\b`)

// moneyRule expects four groups: a bracketed currency, a currency before the
// number, the number and a currency after it
func moneyRule(name string, re *regexp.Regexp) rule[money] {
	return rule[money]{
		name: name,
		apply: func(doc *document) (models.Field[money], bool) {
			for _, l := range doc.lines {
				text := l.folded.Text
				for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
					rest := text[m[1]:]
					if unitPrice.MatchString(rest) {
						continue
					}
					group := func(g int) string {
						if m[2*g] < 0 {
							return ""
						}
						return text[m[2*g]:m[2*g+1]]
					}
					currency := ""
					for _, g := range []int{1, 2, 4} {
						if c := currencyCode(group(g)); c != "" {
							currency = c
							break
						}
					}
					// A bare number followed by a unit is a quantity, not money
					if currency == "" && unitWord.MatchString(rest) {
						continue
					}

					v, err := amount.Parse(strings.ReplaceAll(group(3), " ", ""))
					if err != nil {
						var amb *amount.AmbiguousError
						if errors.As(err, &amb) {
							return models.NotExtracted(money{Value: amb.Fallback, Currency: currency}, name, err.Error()), true
						}
						continue
					}
					return models.Found(money{Value: v, Currency: currency}, name), true
				}
			}
			return models.Field[money]{}, false
		},
	}
}

var (
	unitPricePattern = regexp.MustCompile(
		`(?:(` + currencyAlt + `|\$|€|₺)\s*)?(\d[\d.,]*)\s*(` + currencyAlt + `)?\s*/\s*(ton|kg|adet|lt|litre|m2|m3|metre|mt|paket|kutu|koli)\b`)
	quantityPattern = regexp.MustCompile(
		`(?:^|[^\d/.,])(\d[\d.,]*)\s*(ton|kg|adet|lt|litre|m2|m3|metre|mt|paket|kutu|koli)\b`)
)

var kilosPerTon = decimal.NewFromInt(1000)

// quantityTimesUnitPrice multiplies the first quantity by the first per-unit
// price of the same unit ("120 ton ... 62.300 RUB/ton"). A quantity in kg
// against a price per ton is converted.
func quantityTimesUnitPrice(doc *document) (models.Field[money], bool) {
	var (
		price, qty         decimal.Decimal
		currency           string
		priceUnit, qtyUnit string
	)
	for _, l := range doc.lines {
		m := unitPricePattern.FindStringSubmatch(l.folded.Text)
		if m == nil {
			continue
		}
		currency = currencyCode(m[1])
		if currency == "" {
			currency = currencyCode(m[3])
		}
		v, err := amount.Parse(m[2])
		if currency == "" || err != nil {
			continue
		}
		price, priceUnit = v, m[4]
		break
	}
	if priceUnit == "" {
		return models.Field[money]{}, false
	}

	for _, l := range doc.lines {
		for _, m := range quantityPattern.FindAllStringSubmatch(l.folded.Text, -1) {
			unit := m[2]
			if unit != priceUnit && !(unit == "kg" && priceUnit == "ton") {
				continue
			}
			v, err := amount.Parse(m[1])
			if err != nil || !v.IsPositive() {
				continue
			}
			qty, qtyUnit = v, unit
			break
		}
		if qtyUnit != "" {
			break
		}
	}
	if qtyUnit == "" {
		return models.Field[money]{}, false
	}

	if qtyUnit != priceUnit {
		qty = qty.Div(kilosPerTon)
	}
	return models.Found(money{Value: qty.Mul(price), Currency: currency}, "quantity-times-unit-price"), true
}

func currencyCode(s string) string {
	switch s {
	case "":
		return ""
	case "tl", "₺", "try":
		return "TRY"
	case "$":
		return "USD"
	case "€":
		return "EUR"
	}
	return strings.ToUpper(s)
}

var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:sozlesme|contract|siparis|purchase order|talep|teklif|ihale|tender|po|pr)\s*(?:no|numarasi|number|ref(?:erans)?|#)\s*[:.\-]?\s*([a-z0-9][a-z0-9/_.\-]*[a-z0-9])`),
	regexp.MustCompile(`\b((?:po|pr|sa|st|sz|ih)[-/]\d{3,}(?:[-/]\d+)*)\b`),
}

// extractContractRefs collects every distinct reference number in order of
// appearance
func extractContractRefs(doc *document) models.Field[[]string] {
	var refs []string
	seen := map[string]bool{}

	for _, l := range doc.lines {
		type hit struct{ start, end int }
		var hits []hit
		for _, re := range refPatterns {
			for _, m := range re.FindAllStringSubmatchIndex(l.folded.Text, -1) {
				hits = append(hits, hit{m[2], m[3]})
			}
		}
		slices.SortStableFunc(hits, func(a, b hit) int { return a.start - b.start })
		for _, h := range hits {
			ref := strings.ToUpper(cleanValue(l.folded.Source(h.start, h.end)))
			if !containsDigit(ref) || seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	if len(refs) == 0 {
		return models.NotFound[[]string]()
	}
	return models.Found(refs, "contract-ref")
}

func containsDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
