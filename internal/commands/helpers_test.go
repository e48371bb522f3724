package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rsnash92/taxfolio/internal/commands"
)

// runTaxfolio executes the CLI in-process and returns what it wrote to stdout.
func runTaxfolio(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runTaxfolioLogs(t, args...)
	return stdout, err
}

// runTaxfolioLogs is runTaxfolio that also returns the log output.
func runTaxfolioLogs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), stderr.String(), err
}

// initRepo creates a repo in a temp dir, optionally seeding the CSV ledger.
func initRepo(t *testing.T, seedLedger bool, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runTaxfolio(t, append([]string{"init", dir, "--git=false"}, extra...)...)
	require.NoError(t, err)

	if seedLedger {
		data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "transactions.csv"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger", "transactions.csv"), data, 0o644))
	}
	return dir
}
