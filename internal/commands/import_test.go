package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsnash92/taxfolio/internal/ledger"
)

func readLedger(t *testing.T, dir string) int {
	t.Helper()
	txs, err := ledger.NewFileRepository(filepath.Join(dir, "ledger", "transactions.csv")).Transactions(t.Context(), "")
	require.NoError(t, err)
	return len(txs)
}

func TestImport_File(t *testing.T) {
	dir := initRepo(t, false)

	out, err := runTaxfolio(t, "import", filepath.Join("..", "..", "testdata", "coinbase.csv"), "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 4 transaction(s) from coinbase.csv")

	txs, err := ledger.NewFileRepository(filepath.Join(dir, "ledger", "transactions.csv")).Transactions(t.Context(), "")
	require.NoError(t, err)
	require.Len(t, txs, 4)
	assert.Equal(t, "TX-20240410-001", txs[0].ID)
	assert.Equal(t, "coinbase", txs[0].Source)
}

func TestImport_ScanDirectory(t *testing.T) {
	dir := initRepo(t, false)

	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "coinbase.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "2024.csv"), data, 0o644))

	out, err := runTaxfolio(t, "import", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 4 transaction(s) from 1 file(s)")
	assert.Equal(t, 4, readLedger(t, dir))

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "2024.csv"))
	assert.NoError(t, err, "file moved to processed")

	out, err = runTaxfolio(t, "import", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No files to import.")
}

func TestImport_NativeFormat(t *testing.T) {
	dir := initRepo(t, false)
	_, err := runTaxfolio(t, "import", filepath.Join("..", "..", "testdata", "transactions.csv"), "--repo", dir, "--format", "taxfolio")
	require.NoError(t, err)
	assert.Equal(t, 6, readLedger(t, dir))
}

func TestImport_UnknownFormat(t *testing.T) {
	dir := initRepo(t, false)
	_, err := runTaxfolio(t, "import", "x.csv", "--repo", dir, "--format", "kraken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: coinbase, taxfolio")
}

func TestImport_NotARepo(t *testing.T) {
	_, err := runTaxfolio(t, "import", "--repo", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a taxfolio repo")
}
