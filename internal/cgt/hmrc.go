package cgt

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

// bedAndBreakfastDays is the window after a disposal in which a
// reacquisition is matched against it.
const bedAndBreakfastDays = 30

// HMRCMatcher applies the UK share-matching order per asset: same-day
// acquisitions, then acquisitions in the following 30 days, then the
// Section 104 pool at average cost.
type HMRCMatcher struct {
	policy UnmatchedPolicy
	pools  map[string]Pool
}

// NewHMRCMatcher returns a matcher applying policy to unmatched disposals.
func NewHMRCMatcher(policy UnmatchedPolicy) *HMRCMatcher {
	return &HMRCMatcher{policy: policy}
}

// Pool is a Section 104 holding: every unit shares the average cost.
type Pool struct {
	Quantity decimal.Decimal `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

func (p *Pool) add(q, cost decimal.Decimal) {
	p.Quantity = p.Quantity.Add(q)
	p.Cost = p.Cost.Add(cost)
}

// take removes up to q units at average cost.
func (p *Pool) take(q decimal.Decimal) (taken, cost decimal.Decimal) {
	if !p.Quantity.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	taken = decimal.Min(q, p.Quantity)
	if taken.Equal(p.Quantity) {
		cost = p.Cost
	} else {
		cost = p.Cost.Mul(taken).Div(p.Quantity)
	}
	p.Quantity = p.Quantity.Sub(taken)
	p.Cost = p.Cost.Sub(cost)
	return taken, cost
}

type hmrcAcquisition struct {
	tx        model.Transaction
	seq       int
	remaining decimal.Decimal
	cost      decimal.Decimal // cost of remaining
}

// match takes up to q units from the acquisition at its own unit cost.
func (a *hmrcAcquisition) match(q decimal.Decimal) (taken, cost decimal.Decimal) {
	taken = decimal.Min(q, a.remaining)
	if taken.Equal(a.remaining) {
		cost = a.cost
	} else {
		cost = a.cost.Mul(taken).Div(a.remaining)
	}
	a.remaining = a.remaining.Sub(taken)
	a.cost = a.cost.Sub(cost)
	return taken, cost
}

type hmrcDisposal struct {
	tx        model.Transaction
	seq       int // position in the sorted stream
	remaining decimal.Decimal
	cost      decimal.Decimal
	matches   []Match
}

func (d *hmrcDisposal) matchAgainst(a *hmrcAcquisition, rule Rule) {
	if !d.remaining.IsPositive() || !a.remaining.IsPositive() {
		return
	}
	taken, cost := a.match(d.remaining)
	d.remaining = d.remaining.Sub(taken)
	d.cost = d.cost.Add(cost)
	d.matches = append(d.matches, Match{
		Rule:          rule,
		TransactionID: a.tx.ID,
		AcquiredAt:    a.tx.OccurredAt,
		Quantity:      taken,
		Cost:          cost,
	})
}

type sequencedTx struct {
	seq int
	tx  model.Transaction
}

type sequencedEvent struct {
	seq   int
	event DisposalEvent
}

// Match processes txs asset by asset and returns events in chronological order.
func (m *HMRCMatcher) Match(txs []model.Transaction) (MatchResult, error) {
	m.pools = make(map[string]Pool)

	var assets []string
	byAsset := make(map[string][]sequencedTx)
	for i, tx := range sortChronological(txs) {
		if _, ok := byAsset[tx.Asset]; !ok {
			assets = append(assets, tx.Asset)
		}
		byAsset[tx.Asset] = append(byAsset[tx.Asset], sequencedTx{seq: i, tx: tx})
	}

	var events []sequencedEvent
	var skipped []Skipped
	for _, asset := range assets {
		// An ignored disposal must not hold on to acquisitions another
		// disposal could use, so the asset is matched again without it.
		excluded := make(map[int]bool)
		for {
			assetEvents, pool, ignored, err := m.matchAsset(byAsset[asset], excluded)
			if err != nil {
				return MatchResult{}, err
			}
			if ignored == nil {
				events = append(events, assetEvents...)
				m.pools[asset] = pool
				break
			}
			excluded[ignored.seq] = true
			skipped = append(skipped, Skipped{Transaction: ignored.tx, Reason: SkipNoHoldings})
		}
	}

	slices.SortFunc(events, func(a, b sequencedEvent) int { return a.seq - b.seq })
	result := MatchResult{Events: make([]DisposalEvent, 0, len(events)), Skipped: skipped}
	for _, e := range events {
		result.Events = append(result.Events, e.event)
	}
	return result, nil
}

// matchAsset runs the three rules over one asset's stream, leaving out the
// excluded disposals. Under Ignore it stops at the first disposal that
// cannot be covered and returns it; nothing matched so far is kept.
func (m *HMRCMatcher) matchAsset(stream []sequencedTx, excluded map[int]bool) ([]sequencedEvent, Pool, *hmrcDisposal, error) {
	var acqs []*hmrcAcquisition
	var disps []*hmrcDisposal
	for _, s := range stream {
		switch s.tx.Kind {
		case model.KindAcquisition:
			acqs = append(acqs, &hmrcAcquisition{
				tx:        s.tx,
				seq:       s.seq,
				remaining: s.tx.Quantity,
				cost:      s.tx.Gross().Add(s.tx.Fee),
			})
		case model.KindDisposal:
			if excluded[s.seq] {
				continue
			}
			disps = append(disps, &hmrcDisposal{
				tx:        s.tx,
				seq:       s.seq,
				remaining: s.tx.Quantity,
				cost:      decimal.Zero,
			})
		}
	}

	for _, d := range disps {
		for _, a := range acqs {
			if sameDay(a.tx.OccurredAt, d.tx.OccurredAt) {
				d.matchAgainst(a, RuleSameDay)
			}
		}
	}
	for _, d := range disps {
		for _, a := range acqs {
			if n := daysBetween(d.tx.OccurredAt, a.tx.OccurredAt); n >= 1 && n <= bedAndBreakfastDays {
				d.matchAgainst(a, RuleBedAndBreakfast)
			}
		}
	}

	// Walk the stream in order, feeding the pool.
	var events []sequencedEvent
	var p Pool
	ai, di := 0, 0
	for ai < len(acqs) || di < len(disps) {
		if ai < len(acqs) && (di >= len(disps) || acqs[ai].seq < disps[di].seq) {
			a := acqs[ai]
			ai++
			p.add(a.remaining, a.cost)
			continue
		}

		d := disps[di]
		di++
		var poolTaken, poolCost decimal.Decimal
		if d.remaining.IsPositive() {
			poolTaken, poolCost = p.take(d.remaining)
		}
		shortfall := d.remaining.Sub(poolTaken)

		if shortfall.IsPositive() {
			switch m.policy {
			case Ignore:
				return nil, Pool{}, d, nil
			case Reject:
				return nil, Pool{}, nil, unmatchedError(d.tx, shortfall)
			}
		}

		matches := d.matches
		if poolTaken.IsPositive() {
			matches = append(matches, Match{Rule: RuleSection104, Quantity: poolTaken, Cost: poolCost})
		}
		events = append(events, sequencedEvent{
			seq:   d.seq,
			event: newDisposalEvent(d.tx, d.cost.Add(poolCost), shortfall, matches),
		})
	}
	return events, p, nil, nil
}

// Pools returns the Section 104 pool left for each asset by the last Match
// call. Empty pools are omitted.
func (m *HMRCMatcher) Pools() map[string]Pool {
	out := make(map[string]Pool)
	for asset, p := range m.pools {
		if p.Quantity.IsPositive() {
			out[asset] = p
		}
	}
	return out
}

func civilDay(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return civilDay(a).Equal(civilDay(b))
}

// daysBetween returns the number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(civilDay(b).Sub(civilDay(a)).Hours() / 24)
}
