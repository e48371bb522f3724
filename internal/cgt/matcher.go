package cgt

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

// DisposalEvent is the realized result of one disposal transaction.
type DisposalEvent struct {
	TransactionID    string          `json:"transaction_id,omitempty"`
	Asset            string          `json:"asset"`
	DisposedAt       time.Time       `json:"disposed_at"`
	Quantity         decimal.Decimal `json:"quantity"`
	Proceeds         decimal.Decimal `json:"proceeds"` // net of Fee
	Fee              decimal.Decimal `json:"fee"`
	MatchedCostBasis decimal.Decimal `json:"matched_cost_basis"`
	GainOrLoss       decimal.Decimal `json:"gain_or_loss"`
	Shortfall        decimal.Decimal `json:"shortfall"` // zero-cost units, TreatAsZeroCostBasis only
	Matches          []Match         `json:"matches,omitempty"`
}

// SkipReason explains why a transaction contributed nothing.
type SkipReason string

const (
	SkipInvalidQuantity SkipReason = "quantity must be positive"
	SkipNegativePrice   SkipReason = "unit price must not be negative"
	SkipNegativeFee     SkipReason = "fee must not be negative"
	SkipMissingAsset    SkipReason = "asset symbol is empty"
	SkipUnknownKind     SkipReason = "unknown transaction kind"
	SkipNoHoldings      SkipReason = "disposal exceeds open holdings"
)

// Skipped is a transaction excluded from the computation.
type Skipped struct {
	Transaction model.Transaction `json:"transaction"`
	Reason      SkipReason        `json:"reason"`
}

// MatchResult is what a Matcher produces from one transaction stream.
type MatchResult struct {
	Events  []DisposalEvent
	Skipped []Skipped
}

// Matcher turns a transaction stream into disposal events. Implementations
// sort their input and build all state afresh on every call.
type Matcher interface {
	Match(txs []model.Transaction) (MatchResult, error)
}

// NewMatcher returns the matcher for strategy.
func NewMatcher(strategy MatchingStrategy, policy UnmatchedPolicy) Matcher {
	if strategy == UKHMRC {
		return NewHMRCMatcher(policy)
	}
	return NewFIFOMatcher(policy)
}

// FIFOMatcher matches disposals against per-asset FIFO lot queues.
type FIFOMatcher struct {
	policy UnmatchedPolicy
	queues map[string]*AssetLotQueue
}

// NewFIFOMatcher returns a matcher applying policy to unmatched disposals.
func NewFIFOMatcher(policy UnmatchedPolicy) *FIFOMatcher {
	return &FIFOMatcher{policy: policy}
}

// Match processes txs in chronological order. Queues from any previous call
// are discarded first.
func (m *FIFOMatcher) Match(txs []model.Transaction) (MatchResult, error) {
	m.queues = make(map[string]*AssetLotQueue)
	result := MatchResult{Events: []DisposalEvent{}}

	for _, tx := range sortChronological(txs) {
		switch tx.Kind {
		case model.KindAcquisition:
			q := m.queues[tx.Asset]
			if q == nil {
				q = NewAssetLotQueue(tx.Asset)
				m.queues[tx.Asset] = q
			}
			if err := q.Enqueue(NewLot(tx)); err != nil {
				result.Skipped = append(result.Skipped, Skipped{Transaction: tx, Reason: SkipInvalidQuantity})
			}

		case model.KindDisposal:
			event, skipped, err := m.dispose(tx)
			if err != nil {
				return MatchResult{}, err
			}
			if skipped {
				result.Skipped = append(result.Skipped, Skipped{Transaction: tx, Reason: SkipNoHoldings})
				continue
			}
			result.Events = append(result.Events, event)
		}
	}
	return result, nil
}

func (m *FIFOMatcher) dispose(tx model.Transaction) (DisposalEvent, bool, error) {
	q := m.queues[tx.Asset]
	held := decimal.Zero
	if q != nil {
		held = q.Held()
	}

	if held.LessThan(tx.Quantity) {
		switch m.policy {
		case Ignore:
			return DisposalEvent{}, true, nil
		case Reject:
			return DisposalEvent{}, false, unmatchedError(tx, tx.Quantity.Sub(held))
		}
	}

	cost, shortfall := decimal.Zero, tx.Quantity
	var matches []Match
	if q != nil {
		cost, shortfall, matches = q.Consume(tx.Quantity)
	}
	return newDisposalEvent(tx, cost, shortfall, matches), false, nil
}

// Holdings returns the lots left open by the last Match call, keyed by asset.
// Assets with nothing left are omitted.
func (m *FIFOMatcher) Holdings() map[string][]Lot {
	out := make(map[string][]Lot)
	for asset, q := range m.queues {
		if q.Len() > 0 {
			out[asset] = q.Lots()
		}
	}
	return out
}

// newDisposalEvent derives proceeds and gain for a matched disposal. A fee
// larger than the gross value floors proceeds at zero.
func newDisposalEvent(tx model.Transaction, cost, shortfall decimal.Decimal, matches []Match) DisposalEvent {
	proceeds := tx.Gross().Sub(tx.Fee)
	if proceeds.IsNegative() {
		proceeds = decimal.Zero
	}
	return DisposalEvent{
		TransactionID:    tx.ID,
		Asset:            tx.Asset,
		DisposedAt:       tx.OccurredAt,
		Quantity:         tx.Quantity,
		Proceeds:         proceeds,
		Fee:              tx.Fee,
		MatchedCostBasis: cost,
		GainOrLoss:       proceeds.Sub(cost),
		Shortfall:        shortfall,
		Matches:          matches,
	}
}

func unmatchedError(tx model.Transaction, shortfall decimal.Decimal) error {
	return &UnmatchedDisposalError{
		TransactionID: tx.ID,
		Asset:         tx.Asset,
		DisposedAt:    tx.OccurredAt,
		Shortfall:     shortfall,
	}
}

// sortChronological returns a stably sorted copy of txs; the caller's slice
// is left as it was.
func sortChronological(txs []model.Transaction) []model.Transaction {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b model.Transaction) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})
	return sorted
}

// screen drops malformed transactions and normalizes asset symbols.
func screen(txs []model.Transaction) ([]model.Transaction, []Skipped) {
	valid := make([]model.Transaction, 0, len(txs))
	var skipped []Skipped
	for _, tx := range txs {
		tx.Asset = strings.ToUpper(strings.TrimSpace(tx.Asset))
		if reason, ok := malformed(tx); ok {
			skipped = append(skipped, Skipped{Transaction: tx, Reason: reason})
			continue
		}
		valid = append(valid, tx)
	}
	return valid, skipped
}

func malformed(tx model.Transaction) (SkipReason, bool) {
	switch {
	case tx.Kind != model.KindAcquisition && tx.Kind != model.KindDisposal:
		return SkipUnknownKind, true
	case tx.Asset == "":
		return SkipMissingAsset, true
	case !tx.Quantity.IsPositive():
		return SkipInvalidQuantity, true
	case tx.UnitPrice.IsNegative():
		return SkipNegativePrice, true
	case tx.Fee.IsNegative():
		return SkipNegativeFee, true
	}
	return "", false
}
