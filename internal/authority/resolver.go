// Package authority resolves the approval authority for a purchase value
// from an ordered threshold table.
//
// Each rule covers [lower_bound, upper_bound); the last rule is unbounded.
// The table must start at zero and be contiguous, so every non-negative value
// matches exactly one rule. Currency is carried for display only: values in
// any currency are compared against the same numeric thresholds.
package authority

import (
	"errors"
	"fmt"

	"github.com/rt0111/onayformukontrol/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrValueOutOfRange is returned for negative values
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrTableNotTotal means a validated table failed to match a
	// non-negative value; it is a configuration fault, not an input error
	ErrTableNotTotal = errors.New("threshold table does not cover value")
	// ErrInvalidThresholds is returned by ValidateThresholds
	ErrInvalidThresholds = errors.New("invalid threshold table")
)

// Resolution is the rule chosen for a value
type Resolution struct {
	Value     decimal.Decimal
	Currency  string
	Authority string
	Rule      models.ApprovalThresholdRule
}

// Resolver maps values onto a validated threshold table
type Resolver struct {
	rules  []models.ApprovalThresholdRule
	policy Policy
}

// NewResolver validates the table and returns a resolver over a copy of it
func NewResolver(rules []models.ApprovalThresholdRule, policy Policy) (*Resolver, error) {
	if err := ValidateThresholds(rules); err != nil {
		return nil, err
	}

	copied := make([]models.ApprovalThresholdRule, len(rules))
	copy(copied, rules)

	return &Resolver{rules: copied, policy: policy.withDefaults()}, nil
}

// Rules returns a copy of the threshold table
func (r *Resolver) Rules() []models.ApprovalThresholdRule {
	out := make([]models.ApprovalThresholdRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Resolve returns the first rule whose interval contains value
func (r *Resolver) Resolve(value decimal.Decimal, currency string) (Resolution, error) {
	if value.IsNegative() {
		return Resolution{}, fmt.Errorf("%w: %s %s is negative", ErrValueOutOfRange, value.String(), currency)
	}

	for _, rule := range r.rules {
		if rule.Contains(value) {
			return Resolution{
				Value:     value,
				Currency:  currency,
				Authority: rule.Authority,
				Rule:      rule,
			}, nil
		}
	}

	return Resolution{}, fmt.Errorf("%w: %s %s", ErrTableNotTotal, value.String(), currency)
}

// ValidateThresholds checks that the table partitions [0, inf)
func ValidateThresholds(rules []models.ApprovalThresholdRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: table is empty", ErrInvalidThresholds)
	}
	if !rules[0].Lower.IsZero() {
		return fmt.Errorf("%w: first rule starts at %s, want 0", ErrInvalidThresholds, rules[0].Lower.String())
	}

	for i, rule := range rules {
		if rule.Authority == "" {
			return fmt.Errorf("%w: rule %d has no authority label", ErrInvalidThresholds, i+1)
		}

		last := i == len(rules)-1
		if rule.Upper == nil {
			if !last {
				return fmt.Errorf("%w: rule %d is unbounded but is not the last rule", ErrInvalidThresholds, i+1)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: last rule must be unbounded, has upper bound %s", ErrInvalidThresholds, rule.Upper.String())
		}
		if !rule.Lower.LessThan(*rule.Upper) {
			return fmt.Errorf("%w: rule %d lower bound %s is not below upper bound %s",
				ErrInvalidThresholds, i+1, rule.Lower.String(), rule.Upper.String())
		}

		next := rules[i+1].Lower
		switch rule.Upper.Cmp(next) {
		case -1:
			return fmt.Errorf("%w: gap between %s and %s", ErrInvalidThresholds, rule.Upper.String(), next.String())
		case 1:
			return fmt.Errorf("%w: rules %d and %d overlap", ErrInvalidThresholds, i+1, i+2)
		}
	}

	return nil
}
