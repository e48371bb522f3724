package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsnash92/taxfolio/internal/model"
)

func openTemp(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "taxfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func tx(kind model.TransactionKind, asset, qty, price string, at time.Time) model.Transaction {
	return model.Transaction{
		Kind:       kind,
		Asset:      asset,
		Quantity:   decimal.RequireFromString(qty),
		UnitPrice:  decimal.RequireFromString(price),
		Fee:        decimal.RequireFromString("1.25"),
		OccurredAt: at,
		Source:     "test",
	}
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	n, err := repo.Add(ctx, "alice",
		tx(model.KindAcquisition, "BTC", "0.12345678", "50000.01", at),
		tx(model.KindDisposal, "BTC", "0.1", "60000", at.Add(48*time.Hour)),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.Transactions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "TX-20240501-001", got[0].ID)
	assert.Equal(t, model.KindAcquisition, got[0].Kind)
	assert.Equal(t, "0.12345678", got[0].Quantity.String(), "decimals survive exactly")
	assert.Equal(t, "50000.01", got[0].UnitPrice.String())
	assert.Equal(t, "1.25", got[0].Fee.String())
	assert.True(t, at.Equal(got[0].OccurredAt))
	assert.Equal(t, "TX-20240503-001", got[1].ID)
}

func TestSQLiteRepository_DuplicateIDsIgnored(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	a := tx(model.KindAcquisition, "ETH", "1", "2000", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	a.ID = "TX-20240102-001"

	n, err := repo.Add(ctx, "bob", a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Add(ctx, "bob", a)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The same ID under another user is a different row.
	n, err = repo.Add(ctx, "carol", a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteRepository_OrderAndUsers(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Add(ctx, "zed", tx(model.KindAcquisition, "SOL", "3", "100", base))
	require.NoError(t, err)
	_, err = repo.Add(ctx, "amy",
		tx(model.KindAcquisition, "ETH", "1", "2000", base.Add(500*time.Millisecond)),
		tx(model.KindAcquisition, "BTC", "1", "40000", base.Add(250*time.Millisecond)),
		tx(model.KindAcquisition, "ADA", "1", "1", base),
	)
	require.NoError(t, err)

	got, err := repo.Transactions(ctx, "amy")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"ADA", "BTC", "ETH"}, []string{got[0].Asset, got[1].Asset, got[2].Asset})

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "zed"}, users)
}

func TestSQLiteRepository_UnknownUser(t *testing.T) {
	repo := openTemp(t)
	got, err := repo.Transactions(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteRepository_EmptyUser(t *testing.T) {
	repo := openTemp(t)
	_, err := repo.Add(context.Background(), "", tx(model.KindAcquisition, "BTC", "1", "1", time.Now()))
	assert.Error(t, err)
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	repo, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = repo.Add(ctx, "alice", tx(model.KindAcquisition, "BTC", "1", "1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, path)
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.Transactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
