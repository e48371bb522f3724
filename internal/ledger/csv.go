package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/model"
)

// Header is the CSV header for transactions.csv.
const Header = "id,kind,asset,quantity,unit_price,fee,occurred_at,source,notes"

const (
	numFields     = 9
	timeFormat    = time.RFC3339
	colID         = 0
	colKind       = 1
	colAsset      = 2
	colQuantity   = 3
	colUnitPrice  = 4
	colFee        = 5
	colOccurredAt = 6
	colSource     = 7
	colNotes      = 8
)

// ReadTransactions reads all transactions from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txs []model.Transaction
	for i, rec := range records[1:] {
		tx, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// WriteTransactions writes transactions to a writer, header included.
func WriteTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range txs {
		if err := cw.Write(MarshalTransaction(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendTransactions writes transactions without a header.
func AppendTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)

	for i, tx := range txs {
		if err := cw.Write(MarshalTransaction(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(tx model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = tx.ID
	row[colKind] = string(tx.Kind)
	row[colAsset] = tx.Asset
	row[colQuantity] = tx.Quantity.String()
	row[colUnitPrice] = tx.UnitPrice.String()
	if !tx.Fee.IsZero() {
		row[colFee] = tx.Fee.String()
	}
	row[colOccurredAt] = tx.OccurredAt.UTC().Format(timeFormat)
	row[colSource] = tx.Source
	row[colNotes] = tx.Notes
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	kind, err := model.ParseTransactionKind(record[colKind])
	if err != nil {
		return model.Transaction{}, err
	}

	occurredAt, err := time.Parse(timeFormat, record[colOccurredAt])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing occurred_at %q: %w", record[colOccurredAt], err)
	}

	quantity, err := decimal.NewFromString(record[colQuantity])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing quantity %q: %w", record[colQuantity], err)
	}

	unitPrice, err := decimal.NewFromString(record[colUnitPrice])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing unit_price %q: %w", record[colUnitPrice], err)
	}

	fee := decimal.Zero
	if record[colFee] != "" {
		fee, err = decimal.NewFromString(record[colFee])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing fee %q: %w", record[colFee], err)
		}
	}

	return model.Transaction{
		ID:         record[colID],
		Kind:       kind,
		Asset:      record[colAsset],
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		Fee:        fee,
		OccurredAt: occurredAt,
		Source:     record[colSource],
		Notes:      record[colNotes],
	}, nil
}
