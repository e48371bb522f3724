package cgt

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

// Holding is what remains open of one asset after matching.
type Holding struct {
	Asset    string          `json:"asset"`
	Quantity decimal.Decimal `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
	Lots     []Lot           `json:"lots,omitempty"` // PureFIFO only; UKHMRC holds a single pool
}

// Holdings matches txs under p and returns the open position per asset,
// sorted by symbol.
func Holdings(txs []model.Transaction, p Params) ([]Holding, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	valid, _ := screen(txs)

	var out []Holding
	switch p.Matching {
	case UKHMRC:
		m := NewHMRCMatcher(p.Unmatched)
		if _, err := m.Match(valid); err != nil {
			return nil, err
		}
		for asset, pool := range m.Pools() {
			out = append(out, Holding{Asset: asset, Quantity: pool.Quantity, Cost: pool.Cost})
		}
	default:
		m := NewFIFOMatcher(p.Unmatched)
		if _, err := m.Match(valid); err != nil {
			return nil, err
		}
		for asset, lots := range m.Holdings() {
			h := Holding{Asset: asset, Quantity: decimal.Zero, Cost: decimal.Zero, Lots: lots}
			for _, l := range lots {
				h.Quantity = h.Quantity.Add(l.Remaining)
				h.Cost = h.Cost.Add(l.TotalCost)
			}
			out = append(out, h)
		}
	}

	slices.SortFunc(out, func(a, b Holding) int { return strings.Compare(a.Asset, b.Asset) })
	return out, nil
}
