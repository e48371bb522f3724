package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger row as adding to or reducing a holding.
type TransactionKind string

const (
	KindAcquisition TransactionKind = "acquisition"
	KindDisposal    TransactionKind = "disposal"
)

// ParseTransactionKind accepts the canonical names plus the buy/sell aliases
// used by exchange exports.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acquisition", "buy":
		return KindAcquisition, nil
	case "disposal", "sell":
		return KindDisposal, nil
	default:
		return "", fmt.Errorf("unknown transaction kind: %q", s)
	}
}

// Transaction is one acquisition or disposal of a crypto asset, valued in the
// user's local currency.
type Transaction struct {
	ID         string // "TX-YYYYMMDD-NNN"
	Kind       TransactionKind
	Asset      string          // asset symbol, e.g. "BTC"
	Quantity   decimal.Decimal // always positive
	UnitPrice  decimal.Decimal // local currency per unit
	Fee        decimal.Decimal // local currency
	OccurredAt time.Time
	Source     string // importer format or "manual"
	Notes      string
}

// Gross returns quantity * unit price, before fees.
func (t Transaction) Gross() decimal.Decimal {
	return t.Quantity.Mul(t.UnitPrice)
}

// IsAcquisition reports whether t adds to a holding.
func (t Transaction) IsAcquisition() bool { return t.Kind == KindAcquisition }

// IsDisposal reports whether t reduces a holding.
func (t Transaction) IsDisposal() bool { return t.Kind == KindDisposal }
