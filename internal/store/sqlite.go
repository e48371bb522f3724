// Package store keeps ledgers for several users in one SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rsnash92/taxfolio/internal/id"
	"github.com/rsnash92/taxfolio/internal/model"
)

// timeLayout is fixed width so occurred_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	user_id     TEXT NOT NULL,
	id          TEXT NOT NULL,
	kind        TEXT NOT NULL,
	asset       TEXT NOT NULL,
	quantity    TEXT NOT NULL,
	unit_price  TEXT NOT NULL,
	fee         TEXT NOT NULL DEFAULT '0',
	occurred_at TEXT NOT NULL,
	source      TEXT,
	notes       TEXT,
	UNIQUE(user_id, id)
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, occurred_at);
`

// SQLiteRepository stores transactions per user. Amounts are TEXT columns
// holding decimal strings so nothing passes through float64.
type SQLiteRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn and ensures the schema.
func Open(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dsn, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Add stores txs for userID. Transactions without an ID get one; rows whose
// ID already exists for the user are ignored. It returns how many rows were inserted.
func (r *SQLiteRepository) Add(ctx context.Context, userID string, txs ...model.Transaction) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("adding transactions: empty user ID")
	}

	existing, err := r.ids(ctx, userID)
	if err != nil {
		return 0, err
	}
	alloc := id.NewAllocator(existing)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions
			(user_id, id, kind, asset, quantity, unit_price, fee, occurred_at, source, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range txs {
		if t.ID == "" {
			t.ID = alloc.Next(t.OccurredAt)
		}
		res, err := stmt.ExecContext(ctx,
			userID, t.ID, string(t.Kind), t.Asset,
			t.Quantity.String(), t.UnitPrice.String(), t.Fee.String(),
			t.OccurredAt.UTC().Format(timeLayout), t.Source, t.Notes,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting %s: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("inserting %s: %w", t.ID, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return inserted, nil
}

func (r *SQLiteRepository) ids(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning ID: %w", err)
		}
		ids = append(ids, s)
	}
	return ids, rows.Err()
}

// Transactions returns userID's transactions in insertion order within each timestamp.
func (r *SQLiteRepository) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, asset, quantity, unit_price, fee, occurred_at, source, notes
		FROM transactions
		WHERE user_id = ?
		ORDER BY occurred_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var (
		t                     model.Transaction
		kind, qty, price, fee string
		occurredAt            string
		source, notes         sql.NullString
	)
	if err := rows.Scan(&t.ID, &kind, &t.Asset, &qty, &price, &fee, &occurredAt, &source, &notes); err != nil {
		return model.Transaction{}, fmt.Errorf("scanning transaction: %w", err)
	}

	var err error
	if t.Kind, err = model.ParseTransactionKind(kind); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	if t.Quantity, err = decimal.NewFromString(qty); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s quantity: %w", t.ID, err)
	}
	if t.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s unit price: %w", t.ID, err)
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s fee: %w", t.ID, err)
	}
	if t.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s occurred_at: %w", t.ID, err)
	}
	t.Source, t.Notes = source.String, notes.String
	return t, nil
}

// Users lists every user with at least one transaction.
func (r *SQLiteRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
