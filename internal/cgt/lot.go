package cgt

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

// ErrEmptyLot is returned when enqueuing a lot with nothing left in it.
var ErrEmptyLot = errors.New("lot has no remaining quantity")

// Lot is one acquisition still (partly) held.
type Lot struct {
	TransactionID string
	AcquiredAt    time.Time
	Quantity      decimal.Decimal // as acquired
	Remaining     decimal.Decimal
	CostPerUnit   decimal.Decimal
	TotalCost     decimal.Decimal // cost of Remaining, fee included
}

// NewLot builds a lot from an acquisition. The fee is added to the cost.
func NewLot(tx model.Transaction) Lot {
	return Lot{
		TransactionID: tx.ID,
		AcquiredAt:    tx.OccurredAt,
		Quantity:      tx.Quantity,
		Remaining:     tx.Quantity,
		CostPerUnit:   tx.UnitPrice,
		TotalCost:     tx.Gross().Add(tx.Fee),
	}
}

// Match records the part of a disposal satisfied by one acquisition.
type Match struct {
	Rule          Rule            `json:"rule"`
	TransactionID string          `json:"transaction_id,omitempty"` // acquisition, empty for pooled matches
	AcquiredAt    time.Time       `json:"acquired_at"`
	Quantity      decimal.Decimal `json:"quantity"`
	Cost          decimal.Decimal `json:"cost"`
}

// Rule names the matching rule that produced a Match.
type Rule string

const (
	RuleFIFO            Rule = "fifo"
	RuleSameDay         Rule = "same-day"
	RuleBedAndBreakfast Rule = "bed-and-breakfast"
	RuleSection104      Rule = "section-104"
)

// AssetLotQueue holds the open lots of one asset, oldest first.
type AssetLotQueue struct {
	asset string
	lots  []Lot
}

// NewAssetLotQueue returns an empty queue for asset.
func NewAssetLotQueue(asset string) *AssetLotQueue {
	return &AssetLotQueue{asset: asset}
}

// Asset returns the symbol the queue belongs to.
func (q *AssetLotQueue) Asset() string { return q.asset }

// Len returns the number of open lots.
func (q *AssetLotQueue) Len() int { return len(q.lots) }

// Enqueue appends lot to the tail.
func (q *AssetLotQueue) Enqueue(lot Lot) error {
	if !lot.Remaining.IsPositive() {
		return ErrEmptyLot
	}
	q.lots = append(q.lots, lot)
	return nil
}

// Held returns the total remaining quantity across all lots.
func (q *AssetLotQueue) Held() decimal.Decimal {
	total := decimal.Zero
	for _, l := range q.lots {
		total = total.Add(l.Remaining)
	}
	return total
}

// Lots returns a copy of the open lots, oldest first.
func (q *AssetLotQueue) Lots() []Lot {
	out := make([]Lot, len(q.lots))
	copy(out, q.lots)
	return out
}

// Consume takes quantity from the head of the queue in strict FIFO order.
// It returns the matched cost basis and any quantity the queue could not
// cover; an uncovered remainder is not an error.
func (q *AssetLotQueue) Consume(quantity decimal.Decimal) (cost, shortfall decimal.Decimal, matches []Match) {
	cost = decimal.Zero
	needed := quantity

	for needed.IsPositive() && len(q.lots) > 0 {
		head := &q.lots[0]

		if head.Remaining.LessThanOrEqual(needed) {
			// Whole lot goes, carrying whatever cost it still holds.
			cost = cost.Add(head.TotalCost)
			needed = needed.Sub(head.Remaining)
			matches = append(matches, Match{
				Rule:          RuleFIFO,
				TransactionID: head.TransactionID,
				AcquiredAt:    head.AcquiredAt,
				Quantity:      head.Remaining,
				Cost:          head.TotalCost,
			})
			q.lots = q.lots[1:]
			continue
		}

		taken := head.TotalCost.Mul(needed).Div(head.Remaining)
		cost = cost.Add(taken)
		head.TotalCost = head.TotalCost.Sub(taken)
		head.Remaining = head.Remaining.Sub(needed)
		matches = append(matches, Match{
			Rule:          RuleFIFO,
			TransactionID: head.TransactionID,
			AcquiredAt:    head.AcquiredAt,
			Quantity:      needed,
			Cost:          taken,
		})
		needed = decimal.Zero
	}

	if len(q.lots) == 0 {
		q.lots = nil
	}
	return cost, needed, matches
}
