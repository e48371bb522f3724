package ledger

import (
	"fmt"
	"strings"

	"github.com/rsnash92/taxfolio/internal/id"
	"github.com/rsnash92/taxfolio/internal/model"
)

// ValidationError describes a single bad ledger row.
type ValidationError struct {
	Row         int // 1-based, header excluded
	TxID        string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d [%s]: %s", e.Row, e.TxID, e.Description)
}

// ValidateTransactions checks rows before they are written to the ledger.
// The engine tolerates bad rows; the ledger does not accept them.
func ValidateTransactions(txs []model.Transaction) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int)

	for i, tx := range txs {
		row := i + 1
		fail := func(format string, args ...any) {
			errs = append(errs, ValidationError{Row: row, TxID: tx.ID, Description: fmt.Sprintf(format, args...)})
		}

		if _, _, err := id.ParseTxID(tx.ID); err != nil {
			fail("invalid ID: %v", err)
		} else if first, dup := seen[tx.ID]; dup {
			fail("duplicate ID, first used on row %d", first)
		} else {
			seen[tx.ID] = row
		}

		if tx.Kind != model.KindAcquisition && tx.Kind != model.KindDisposal {
			fail("unknown kind %q", tx.Kind)
		}
		if strings.TrimSpace(tx.Asset) == "" {
			fail("asset is empty")
		}
		if !tx.Quantity.IsPositive() {
			fail("quantity %s must be positive", tx.Quantity)
		}
		if tx.UnitPrice.IsNegative() {
			fail("unit price %s is negative", tx.UnitPrice)
		}
		if tx.Fee.IsNegative() {
			fail("fee %s is negative", tx.Fee)
		}
		if tx.OccurredAt.IsZero() {
			fail("timestamp is missing")
		}
	}
	return errs
}

// Join flattens validation errors into one error, or nil.
func Join(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, ve := range errs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
