package authority

import (
	"fmt"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/amount"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/textnorm"

	"github.com/shopspring/decimal"
)

// Purchase types recognized by the approval structure
const (
	PurchaseSpot       = "Spot"
	PurchaseContinuous = "Sürekli"
)

// Policy holds the special routing rules applied before the threshold table
type Policy struct {
	ConsultingReason     string          `json:"consulting_reason" yaml:"consulting_reason"`
	FinancialLimitReason string          `json:"financial_limit_reason" yaml:"financial_limit_reason"`
	NonStandardMonths    int             `json:"non_standard_months" yaml:"non_standard_months"`
	NonStandardValue     decimal.Decimal `json:"non_standard_value" yaml:"non_standard_value"`
	NonStandardAuthority string          `json:"non_standard_authority" yaml:"non_standard_authority"`
	AnnualizeBelowMonths int             `json:"annualize_below_months" yaml:"annualize_below_months"`
}

// DefaultPolicy returns the routing rules used when none are configured
func DefaultPolicy() Policy {
	return Policy{
		ConsultingReason:     "Danışmanlık İhalesi",
		FinancialLimitReason: "Finansal Limit",
		NonStandardMonths:    6,
		NonStandardValue:     decimal.NewFromInt(150000),
		NonStandardAuthority: "Minimum Direktör",
		AnnualizeBelowMonths: 12,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.ConsultingReason == "" {
		p.ConsultingReason = def.ConsultingReason
	}
	if p.FinancialLimitReason == "" {
		p.FinancialLimitReason = def.FinancialLimitReason
	}
	if p.NonStandardMonths == 0 {
		p.NonStandardMonths = def.NonStandardMonths
	}
	if p.NonStandardValue.IsZero() {
		p.NonStandardValue = def.NonStandardValue
	}
	if p.NonStandardAuthority == "" {
		p.NonStandardAuthority = def.NonStandardAuthority
	}
	if p.AnnualizeBelowMonths == 0 {
		p.AnnualizeBelowMonths = def.AnnualizeBelowMonths
	}
	return p
}

// StructureInput carries the summary fields the approval structure needs
type StructureInput struct {
	Value            decimal.Decimal
	Currency         string
	PurchaseType     string
	Months           int
	Reason           string
	StandardContract bool
}

// Structure works out the approval route: consulting tenders go to the top
// authority, long or large non-standard contracts need the configured
// minimum authority, short continuous purchases are annualized, and the
// remaining value is resolved on the threshold table.
func (r *Resolver) Structure(in StructureInput) (models.ApprovalStructure, error) {
	if in.Value.IsNegative() {
		return models.ApprovalStructure{}, fmt.Errorf("%w: %s %s is negative", ErrValueOutOfRange, in.Value.String(), in.Currency)
	}

	out := models.ApprovalStructure{
		EffectiveValue: in.Value,
		Currency:       in.Currency,
	}
	reason := textnorm.String(strings.TrimSpace(in.Reason))

	if reason != "" && strings.Contains(reason, textnorm.String(r.policy.ConsultingReason)) {
		out.Authority = r.rules[len(r.rules)-1].Authority
		out.Reason = fmt.Sprintf("Yönetim onay gerekçesi '%s' olduğu için tutardan bağımsız olarak %s onayı gerekir",
			r.policy.ConsultingReason, out.Authority)
		return out, nil
	}

	if !in.StandardContract && (in.Months > r.policy.NonStandardMonths || in.Value.GreaterThan(r.policy.NonStandardValue)) {
		out.Authority = r.policy.NonStandardAuthority
		out.Reason = fmt.Sprintf("Sözleşme süresi %d ay > %d ay veya tutar %s %s > %s olduğu ve matbu sözleşme yapılmayacağı için %s onayı gerekir",
			in.Months, r.policy.NonStandardMonths, amount.FormatTR(in.Value), in.Currency,
			amount.FormatTR(r.policy.NonStandardValue), out.Authority)
		return out, nil
	}

	switch in.PurchaseType {
	case PurchaseSpot:
		out.Reason = "Spot alım olduğu için toplam değer doğrudan kullanıldı"
	case PurchaseContinuous:
		switch {
		case in.Months > 0 && in.Months < r.policy.AnnualizeBelowMonths:
			months := decimal.NewFromInt(int64(in.Months))
			out.EffectiveValue = in.Value.Mul(decimal.NewFromInt(12)).Div(months).Round(2)
			out.Annualized = true
			out.Reason = fmt.Sprintf("Sürekli alım ve %d ay < %d ay olduğu için yıllıklaştırıldı", in.Months, r.policy.AnnualizeBelowMonths)
		case in.Months >= r.policy.AnnualizeBelowMonths:
			out.Reason = fmt.Sprintf("Sürekli alım ve %d ay ≥ %d ay olduğu için toplam değer kullanıldı", in.Months, r.policy.AnnualizeBelowMonths)
		default:
			out.Reason = "Sürekli alım ancak sözleşme süresi belirtilmemiş, toplam değer kullanıldı"
		}
	default:
		out.Reason = "Alım tipi belirsiz, toplam değer kullanıldı"
	}

	res, err := r.Resolve(out.EffectiveValue, in.Currency)
	if err != nil {
		return models.ApprovalStructure{}, err
	}
	out.Authority = res.Authority

	if reason != "" && reason == textnorm.String(r.policy.FinancialLimitReason) {
		out.Authority += " (minimum)"
	}

	return out, nil
}
