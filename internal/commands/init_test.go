package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runTaxfolio(t, "init", dir, "--git=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized taxfolio repo")

	for _, d := range []string{"ledger", "logs", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	_, err = os.Stat(filepath.Join(dir, "import", ".gitkeep"))
	assert.NoError(t, err)
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runTaxfolio(t, "init", dir, "--git=false", "--user", "alice")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "taxfolio.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "user: alice")
	assert.Contains(t, contents, "currency: GBP")
	assert.Contains(t, contents, "default_tax_year: 2024/25")
}

func TestInit_Ledger(t *testing.T) {
	dir := t.TempDir()
	_, err := runTaxfolio(t, "init", dir, "--git=false")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ledger", "transactions.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,kind,asset,quantity,unit_price,fee,occurred_at,source,notes\n", string(data))
}

func TestInit_SQLite(t *testing.T) {
	dir := t.TempDir()
	out, err := runTaxfolio(t, "init", dir, "--git=false", "--storage", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite storage")

	_, err = os.Stat(filepath.Join(dir, "ledger", "taxfolio.db"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "ledger", "transactions.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestInit_RefusesExisting(t *testing.T) {
	dir := t.TempDir()
	_, err := runTaxfolio(t, "init", dir, "--git=false")
	require.NoError(t, err)

	_, err = runTaxfolio(t, "init", dir, "--git=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInit_BadDriver(t *testing.T) {
	_, err := runTaxfolio(t, "init", t.TempDir(), "--storage", "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
}

func TestInit_Git(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	out, err := runTaxfolio(t, "init", dir, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "csv storage, ")

	log := gitLog(t, dir)
	assert.Contains(t, log, "init: taxfolio repo for alice")

	_, err = runTaxfolio(t, "import", filepath.Join("..", "..", "testdata", "coinbase.csv"), "--repo", dir)
	require.NoError(t, err)
	log = gitLog(t, dir)
	assert.Contains(t, log, "import: 4 transaction(s) from coinbase.csv")
}

func gitLog(t *testing.T, dir string) string {
	t.Helper()
	out, err := exec.Command("git", "-C", dir, "log", "--format=%s").Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}
