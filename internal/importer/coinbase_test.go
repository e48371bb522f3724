package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsnash92/taxfolio/internal/model"
)

func TestCoinbaseParser_Parse(t *testing.T) {
	txs, err := ParseFile(&CoinbaseParser{}, "../../testdata/coinbase.csv")
	require.NoError(t, err)
	require.Len(t, txs, 4, "receive and staking rows are skipped")

	first := txs[0]
	assert.Equal(t, model.KindAcquisition, first.Kind)
	assert.Equal(t, "BTC", first.Asset)
	assert.Equal(t, "0.5", first.Quantity.String())
	assert.Equal(t, "48000", first.UnitPrice.String())
	assert.Equal(t, "12.5", first.Fee.String())
	assert.Equal(t, time.Date(2024, 4, 10, 9, 15, 0, 0, time.UTC), first.OccurredAt)
	assert.Equal(t, "coinbase", first.Source)
	assert.Empty(t, first.ID)

	assert.Equal(t, model.KindAcquisition, txs[1].Kind, "advanced trade buy")
}

func TestCoinbaseParser_Sells(t *testing.T) {
	txs, err := ParseFile(&CoinbaseParser{}, "../../testdata/coinbase.csv")
	require.NoError(t, err)

	sell := txs[2]
	assert.Equal(t, model.KindDisposal, sell.Kind)
	assert.Equal(t, "47000", sell.UnitPrice.String(), "thousands separator stripped")
	assert.Equal(t, "14", sell.Fee.String())

	adv := txs[3]
	assert.Equal(t, model.KindDisposal, adv.Kind)
	assert.Equal(t, "1.5", adv.Quantity.String(), "negative quantity made absolute")
	assert.Equal(t, "ETH", adv.Asset)
}

func TestCoinbaseParser_HeaderOnly(t *testing.T) {
	txs, err := (&CoinbaseParser{}).Parse(strings.NewReader("Timestamp,Transaction Type,Asset,Quantity Transacted,Price at Transaction\n"))
	require.NoError(t, err)
	assert.Nil(t, txs)
}

func TestCoinbaseParser_MissingColumn(t *testing.T) {
	_, err := (&CoinbaseParser{}).Parse(strings.NewReader("Timestamp,Asset\n2024-01-01 00:00:00 UTC,BTC\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "Transaction Type"`)
}

func TestCoinbaseParser_BadRows(t *testing.T) {
	header := "Timestamp,Transaction Type,Asset,Quantity Transacted,Price at Transaction,Fees and/or Spread\n"
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"timestamp", "10/04/2024,Buy,BTC,1,£1,£0", "parsing timestamp"},
		{"quantity", "2024-04-10 09:15:00 UTC,Buy,BTC,1.2.3,£1,£0", "parsing quantity"},
		{"price", "2024-04-10 09:15:00 UTC,Sell,BTC,1,£1.0.0,£0", "parsing price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&CoinbaseParser{}).Parse(strings.NewReader(header + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 2")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"":            "0",
		"£12.50":      "12.5",
		"£47,000.00":  "47000",
		"-1.5":        "-1.5",
		"$1,234.5678": "1234.5678",
	}
	for in, want := range tests {
		got, err := parseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
}

func TestLedgerParser_DropsIDs(t *testing.T) {
	txs, err := ParseFile(&LedgerParser{}, "../../testdata/transactions.csv")
	require.NoError(t, err)
	require.Len(t, txs, 6)
	for _, tx := range txs {
		assert.Empty(t, tx.ID)
		assert.NotEmpty(t, tx.Source)
	}
	assert.Equal(t, "DCA", txs[2].Notes)
}
