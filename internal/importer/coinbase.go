package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

// CoinbaseParser parses Coinbase transaction history exports.
// Only trades are imported; receives, sends, rewards and conversions are skipped.
type CoinbaseParser struct{}

const (
	coinbaseTimeFormat = "2006-01-02 15:04:05"

	cbTimestamp = "Timestamp"
	cbType      = "Transaction Type"
	cbAsset     = "Asset"
	cbQuantity  = "Quantity Transacted"
	cbPrice     = "Price at Transaction"
	cbFees      = "Fees and/or Spread"
	cbNotes     = "Notes"
)

var coinbaseRequired = []string{cbTimestamp, cbType, cbAsset, cbQuantity, cbPrice}

var coinbaseKinds = map[string]model.TransactionKind{
	"buy":                 model.KindAcquisition,
	"advanced trade buy":  model.KindAcquisition,
	"sell":                model.KindDisposal,
	"advanced trade sell": model.KindDisposal,
}

// Format returns the parser name.
func (p *CoinbaseParser) Format() string { return "coinbase" }

// Parse reads a Coinbase CSV. Columns are located by header name since
// Coinbase has reordered them between export versions.
func (p *CoinbaseParser) Parse(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading coinbase CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range coinbaseRequired {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var txs []model.Transaction
	for i, rec := range records[1:] {
		tx, ok, err := parseCoinbaseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func parseCoinbaseRow(rec []string, cols map[string]int) (model.Transaction, bool, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	kind, ok := coinbaseKinds[strings.ToLower(field(cbType))]
	if !ok {
		return model.Transaction{}, false, nil
	}

	ts := strings.TrimSuffix(field(cbTimestamp), " UTC")
	occurredAt, err := time.Parse(coinbaseTimeFormat, ts)
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("parsing timestamp %q: %w", field(cbTimestamp), err)
	}

	quantity, err := parseAmount(field(cbQuantity))
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("parsing quantity: %w", err)
	}
	price, err := parseAmount(field(cbPrice))
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("parsing price: %w", err)
	}
	fee, err := parseAmount(field(cbFees))
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("parsing fee: %w", err)
	}

	return model.Transaction{
		Kind:       kind,
		Asset:      strings.ToUpper(field(cbAsset)),
		Quantity:   quantity.Abs(),
		UnitPrice:  price,
		Fee:        fee.Abs(),
		OccurredAt: occurredAt.UTC(),
		Source:     "coinbase",
		Notes:      field(cbNotes),
	}, true, nil
}

// parseAmount strips currency symbols and thousands separators.
// An empty cell is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return -1
	}, s)
	if clean == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, err)
	}
	return d, nil
}
