package cgt

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

// TaxSummary is the result of one computation.
type TaxSummary struct {
	TotalGains         decimal.Decimal `json:"total_gains"`
	TotalLosses        decimal.Decimal `json:"total_losses"`
	NetPosition        decimal.Decimal `json:"net_position"`
	ExemptionUsed      decimal.Decimal `json:"exemption_used"`
	ExemptionRemaining decimal.Decimal `json:"exemption_remaining"`
	TaxableAmount      decimal.Decimal `json:"taxable_amount"`
	EstimatedTax       decimal.Decimal `json:"estimated_tax"`
	Events             []DisposalEvent `json:"events"`
	Skipped            []Skipped       `json:"skipped,omitempty"`
}

// Aggregate folds classified events and the allowance into a TaxSummary.
// The estimated tax is not rounded.
func Aggregate(events []DisposalEvent, c Classification, a Allowance, flatRate decimal.Decimal) TaxSummary {
	if events == nil {
		events = []DisposalEvent{}
	}
	return TaxSummary{
		TotalGains:         c.TotalGains,
		TotalLosses:        c.TotalLosses,
		NetPosition:        a.NetPosition,
		ExemptionUsed:      a.ExemptionUsed,
		ExemptionRemaining: a.ExemptionRemaining,
		TaxableAmount:      a.TaxableAmount,
		EstimatedTax:       a.TaxableAmount.Mul(flatRate),
		Events:             events,
	}
}

// ComputeTaxSummary runs pure FIFO matching, ignoring disposals that exceed
// open holdings.
func ComputeTaxSummary(txs []model.Transaction, annualExemption, flatTaxRate decimal.Decimal) (TaxSummary, error) {
	return Compute(txs, Params{
		AnnualExemption: annualExemption,
		FlatRate:        flatTaxRate,
		Matching:        PureFIFO,
		Unmatched:       Ignore,
	})
}

// Compute derives a TaxSummary from txs, which may be unsorted. Invalid
// params fail before any transaction is read; malformed transactions are
// listed in Skipped rather than returned as errors.
func Compute(txs []model.Transaction, p Params) (TaxSummary, error) {
	if err := p.Validate(); err != nil {
		return TaxSummary{}, err
	}

	valid, skipped := screen(txs)
	result, err := NewMatcher(p.Matching, p.Unmatched).Match(valid)
	if err != nil {
		return TaxSummary{}, fmt.Errorf("matching disposals: %w", err)
	}

	c := Classify(result.Events)
	summary := Aggregate(result.Events, c, ApplyAllowance(c, p.AnnualExemption), p.FlatRate)
	summary.Skipped = sortSkipped(append(skipped, result.Skipped...))
	return summary, nil
}

// sortSkipped orders skipped rows by time, then by content, so the result
// does not depend on input order.
func sortSkipped(skipped []Skipped) []Skipped {
	slices.SortStableFunc(skipped, func(a, b Skipped) int {
		return cmp.Or(
			a.Transaction.OccurredAt.Compare(b.Transaction.OccurredAt),
			strings.Compare(a.Transaction.ID, b.Transaction.ID),
			strings.Compare(a.Transaction.Asset, b.Transaction.Asset),
			strings.Compare(string(a.Transaction.Kind), string(b.Transaction.Kind)),
			a.Transaction.Quantity.Cmp(b.Transaction.Quantity),
			strings.Compare(string(a.Reason), string(b.Reason)),
		)
	})
	return skipped
}
