package commands_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYears(t *testing.T) {
	dir := initRepo(t, false)

	out, err := runTaxfolio(t, "years", "--repo", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "TAX YEAR")
	assert.Contains(t, lines[1], "2022/23")
	assert.Contains(t, lines[1], "£12,300.00")
	assert.Contains(t, lines[1], "20%")
	assert.True(t, strings.HasSuffix(lines[3], "*"), "2024/25 is the default")
}

func TestVersion(t *testing.T) {
	out, err := runTaxfolio(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "taxfolio version dev")
}
