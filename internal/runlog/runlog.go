// Package runlog records each tax computation in logs/run-log.csv so past
// figures can be compared after the ledger changes.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one computation.
type Entry struct {
	Timestamp    time.Time
	User         string
	TaxYear      string
	Strategy     string
	Transactions int
	Events       int
	NetPosition  decimal.Decimal
	EstimatedTax decimal.Decimal
}

// Header is the CSV header for run-log.csv.
const Header = "timestamp,user,tax_year,strategy,transactions,events,net_position,estimated_tax"

const (
	numFields       = 8
	logDir          = "logs"
	logFile         = "logs/run-log.csv"
	colTimestamp    = 0
	colUser         = 1
	colTaxYear      = 2
	colStrategy     = 3
	colTransactions = 4
	colEvents       = 5
	colNetPosition  = 6
	colEstimatedTax = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colUser] = e.User
	row[colTaxYear] = e.TaxYear
	row[colStrategy] = e.Strategy
	row[colTransactions] = strconv.Itoa(e.Transactions)
	row[colEvents] = strconv.Itoa(e.Events)
	row[colNetPosition] = e.NetPosition.String()
	row[colEstimatedTax] = e.EstimatedTax.String()
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	txs, err := strconv.Atoi(record[colTransactions])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing transactions %q: %w", record[colTransactions], err)
	}
	events, err := strconv.Atoi(record[colEvents])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing events %q: %w", record[colEvents], err)
	}
	net, err := decimal.NewFromString(record[colNetPosition])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing net_position %q: %w", record[colNetPosition], err)
	}
	tax, err := decimal.NewFromString(record[colEstimatedTax])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing estimated_tax %q: %w", record[colEstimatedTax], err)
	}

	return Entry{
		Timestamp:    ts,
		User:         record[colUser],
		TaxYear:      record[colTaxYear],
		Strategy:     record[colStrategy],
		Transactions: txs,
		Events:       events,
		NetPosition:  net,
		EstimatedTax: tax,
	}, nil
}

// Append writes entries to <repoRoot>/logs/run-log.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/run-log.csv.
// A missing file yields no entries.
func Read(repoRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(repoRoot, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
