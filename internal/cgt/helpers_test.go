package cgt

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
}

var txSeq int

func acq(asset, qty, price, fee string, at time.Time) model.Transaction {
	txSeq++
	return model.Transaction{
		ID:         fmt.Sprintf("TX-A%03d", txSeq),
		Kind:       model.KindAcquisition,
		Asset:      asset,
		Quantity:   dec(qty),
		UnitPrice:  dec(price),
		Fee:        dec(fee),
		OccurredAt: at,
	}
}

func disp(asset, qty, price, fee string, at time.Time) model.Transaction {
	txSeq++
	return model.Transaction{
		ID:         fmt.Sprintf("TX-D%03d", txSeq),
		Kind:       model.KindDisposal,
		Asset:      asset,
		Quantity:   dec(qty),
		UnitPrice:  dec(price),
		Fee:        dec(fee),
		OccurredAt: at,
	}
}

// summaryStrings flattens the numeric fields so summaries can be compared
// independently of decimal internals.
func summaryStrings(s TaxSummary) []string {
	out := []string{
		s.TotalGains.String(),
		s.TotalLosses.String(),
		s.NetPosition.String(),
		s.ExemptionUsed.String(),
		s.ExemptionRemaining.String(),
		s.TaxableAmount.String(),
		s.EstimatedTax.String(),
	}
	for _, e := range s.Events {
		out = append(out, fmt.Sprintf("%s|%s|%s|%s|%s|%s", e.TransactionID, e.Asset, e.Quantity, e.Proceeds, e.MatchedCostBasis, e.GainOrLoss))
	}
	return out
}
