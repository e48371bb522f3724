package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rsnash92/taxfolio/internal/id"
	"github.com/rsnash92/taxfolio/internal/model"
)

// DefaultPath is where a project keeps its ledger, relative to the repo root.
const DefaultPath = "ledger/transactions.csv"

// FileRepository stores one user's transactions in a single CSV file.
type FileRepository struct {
	path string
}

// NewFileRepository returns a repository backed by the CSV file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the backing file.
func (r *FileRepository) Path() string { return r.path }

// Transactions returns every row in the ledger. The file holds a single
// user's ledger, so userID is not consulted. A missing file is an empty ledger.
func (r *FileRepository) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", r.path, err)
	}
	defer f.Close()

	txs, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", r.path, err)
	}
	return txs, nil
}

// Append assigns IDs to transactions that lack one, validates them together
// with the existing rows and appends them. It returns the stored transactions.
func (r *FileRepository) Append(ctx context.Context, txs []model.Transaction) ([]model.Transaction, error) {
	existing, err := r.Transactions(ctx, "")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(existing))
	for _, tx := range existing {
		ids = append(ids, tx.ID)
	}
	alloc := id.NewAllocator(ids)

	added := make([]model.Transaction, len(txs))
	for i, tx := range txs {
		if tx.ID == "" {
			tx.ID = alloc.Next(tx.OccurredAt)
		}
		added[i] = tx
	}

	all := append(existing, added...)
	if err := Join(ValidateTransactions(all)); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendTransactions(f, added); err != nil {
		return nil, fmt.Errorf("appending transactions: %w", err)
	}
	return added, nil
}

// Init writes an empty ledger with only the header. An existing file is left alone.
func (r *FileRepository) Init() error {
	if _, err := os.Stat(r.path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}
	if err := os.WriteFile(r.path, []byte(Header+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// Add appends txs and reports how many were written. It lets the CSV ledger
// stand in wherever the multi-user store is accepted; userID is not consulted.
func (r *FileRepository) Add(ctx context.Context, userID string, txs ...model.Transaction) (int, error) {
	added, err := r.Append(ctx, txs)
	if err != nil {
		return 0, err
	}
	return len(added), nil
}

// Close is a no-op; the file is opened per call.
func (r *FileRepository) Close() error { return nil }
