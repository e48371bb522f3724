package cgt

import "github.com/shopspring/decimal"

// Classification splits realized results into gains and losses. Both totals
// are non-negative.
type Classification struct {
	TotalGains  decimal.Decimal
	TotalLosses decimal.Decimal
}

// Classify buckets each event by the sign of its gain. A zero result counts
// as a gain of nothing.
func Classify(events []DisposalEvent) Classification {
	c := Classification{TotalGains: decimal.Zero, TotalLosses: decimal.Zero}
	for _, e := range events {
		if e.GainOrLoss.IsNegative() {
			c.TotalLosses = c.TotalLosses.Add(e.GainOrLoss.Abs())
		} else {
			c.TotalGains = c.TotalGains.Add(e.GainOrLoss)
		}
	}
	return c
}
