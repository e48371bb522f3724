package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsnash92/taxfolio/internal/cgt"
	"github.com/rsnash92/taxfolio/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func event(id, asset, qty, proceeds, fee, cost string) cgt.DisposalEvent {
	return cgt.DisposalEvent{
		TransactionID:    id,
		Asset:            asset,
		DisposedAt:       time.Date(2024, 9, 3, 16, 20, 0, 0, time.UTC),
		Quantity:         dec(qty),
		Proceeds:         dec(proceeds),
		Fee:              dec(fee),
		MatchedCostBasis: dec(cost),
		GainOrLoss:       dec(proceeds).Sub(dec(cost)),
	}
}

func sampleSummary() cgt.TaxSummary {
	return cgt.TaxSummary{
		TotalGains:         dec("292"),
		TotalLosses:        dec("1029"),
		NetPosition:        dec("-737"),
		ExemptionUsed:      decimal.Zero,
		ExemptionRemaining: dec("3000"),
		TaxableAmount:      decimal.Zero,
		EstimatedTax:       decimal.Zero,
		Events: []cgt.DisposalEvent{
			event("TX-20240903-001", "BTC", "0.6", "28186", "14", "29215"),
			event("TX-20241120-001", "ETH", "1.5", "3895", "5", "3603"),
		},
		Skipped: []cgt.Skipped{{
			Transaction: model.Transaction{ID: "TX-20250115-001", Kind: model.KindDisposal, Asset: "SOL"},
			Reason:      cgt.SkipNoHoldings,
		}},
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "£28,186.00", Money(dec("28186"), "GBP"))
	assert.Equal(t, "-£1,029.00", Money(dec("-1029"), "GBP"))
	assert.Equal(t, "£0.01", Money(dec("0.005"), "GBP"))
	assert.Equal(t, "$0.00", Money(decimal.Zero, "USD"))
	assert.Equal(t, "12.35 XYZ", Money(dec("12.345"), "XYZ"))
}

func TestBreakdown(t *testing.T) {
	events := []cgt.DisposalEvent{
		event("3", "ETH", "1", "100", "1", "80"),
		event("1", "BTC", "0.5", "1000", "2", "1200"),
		event("2", "BTC", "0.25", "600", "1", "500"),
	}
	lines := Breakdown(events)
	require.Len(t, lines, 2)

	btc := lines[0]
	assert.Equal(t, "BTC", btc.Asset)
	assert.Equal(t, 2, btc.Disposals)
	assert.Equal(t, "0.75", btc.Quantity.String())
	assert.Equal(t, "1600", btc.Proceeds.String())
	assert.Equal(t, "1700", btc.Cost.String())
	assert.Equal(t, "3", btc.Fees.String())
	assert.Equal(t, "-100", btc.GainOrLoss.String())

	assert.Equal(t, "ETH", lines[1].Asset)
	assert.Empty(t, Breakdown(nil))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleSummary(), "GBP"))
	out := buf.String()

	assert.Contains(t, out, "Total gains:")
	assert.Contains(t, out, "£292.00")
	assert.Contains(t, out, "-£737.00")
	assert.Contains(t, out, "Exemption remaining:  £3,000.00")
	assert.Contains(t, out, "TX-20240903-001")
	assert.Contains(t, out, "-£1,029.00")
	assert.Contains(t, out, "Skipped 1 transaction(s):")
	assert.Contains(t, out, string(cgt.SkipNoHoldings))
}

func TestWriteText_Empty(t *testing.T) {
	var buf bytes.Buffer
	s := cgt.TaxSummary{Events: []cgt.DisposalEvent{}}
	require.NoError(t, WriteText(&buf, s, "GBP"))
	assert.NotContains(t, buf.String(), "DATE")
	assert.NotContains(t, buf.String(), "Skipped")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Breakdown(sampleSummary().Events)))

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, rows, 3)
	assert.Equal(t, "asset,disposals,quantity,proceeds,cost,fees,gain_or_loss", rows[0])
	assert.Equal(t, "BTC,1,0.6,28186,29215,14,-1029", rows[1])
	assert.Equal(t, "ETH,1,1.5,3895,3603,5,292", rows[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleSummary()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "292", got["total_gains"])
	assert.Equal(t, "-737", got["net_position"])
	assert.Len(t, got["events"], 2)
	assert.Len(t, got["assets"], 2)
	assert.Len(t, got["skipped"], 1)
}

func TestWriteHoldings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHoldings(&buf, nil, "GBP"))
	assert.Equal(t, "No open holdings.\n", buf.String())

	buf.Reset()
	holdings := []cgt.Holding{
		{Asset: "BTC", Quantity: dec("0.15"), Cost: dec("7803.75"), Lots: []cgt.Lot{{}}},
		{Asset: "ETH", Quantity: dec("2.5"), Cost: dec("6005")},
	}
	require.NoError(t, WriteHoldings(&buf, holdings, "GBP"))
	out := buf.String()
	assert.Contains(t, out, "£7,803.75")
	assert.Contains(t, out, "pool")
	assert.Contains(t, out, "0.15")
}
