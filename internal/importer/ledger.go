package importer

import (
	"io"

	"github.com/rsnash92/taxfolio/internal/ledger"
	"github.com/rsnash92/taxfolio/internal/model"
)

// LedgerParser reads files already in the native transactions.csv layout,
// e.g. an export from another taxfolio repo. IDs are dropped so the
// receiving ledger can allocate its own.
type LedgerParser struct{}

// Format returns the parser name.
func (p *LedgerParser) Format() string { return "taxfolio" }

// Parse reads native ledger rows.
func (p *LedgerParser) Parse(r io.Reader) ([]model.Transaction, error) {
	txs, err := ledger.ReadTransactions(r)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].ID = ""
		if txs[i].Source == "" {
			txs[i].Source = "taxfolio"
		}
	}
	return txs, nil
}
