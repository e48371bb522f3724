package cgt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsnash92/taxfolio/internal/model"
)

func TestHoldings_FIFO(t *testing.T) {
	txs := []model.Transaction{
		acq("eth", "4", "2400", "8", day(2)),
		acq("BTC", "1", "1000", "0", day(1)),
		acq("BTC", "1", "3000", "0", day(3)),
		disp("BTC", "1.5", "4000", "0", day(4)),
	}
	holdings, err := Holdings(txs, Params{})
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	btc := holdings[0]
	assert.Equal(t, "BTC", btc.Asset)
	assert.Equal(t, "0.5", btc.Quantity.String())
	assert.Equal(t, "1500", btc.Cost.String())
	require.Len(t, btc.Lots, 1)

	eth := holdings[1]
	assert.Equal(t, "ETH", eth.Asset, "symbols are normalized")
	assert.Equal(t, "9608", eth.Cost.String())
}

func TestHoldings_HMRCPool(t *testing.T) {
	txs := []model.Transaction{
		acq("BTC", "1", "1000", "0", day(1)),
		acq("BTC", "1", "3000", "0", day(3)),
		disp("BTC", "1.5", "4000", "0", day(40)),
	}
	holdings, err := Holdings(txs, Params{Matching: UKHMRC})
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "0.5", holdings[0].Quantity.String())
	assert.Equal(t, "1000", holdings[0].Cost.String(), "average cost 2000 per unit")
	assert.Empty(t, holdings[0].Lots)
}

func TestHoldings_FullyDisposed(t *testing.T) {
	txs := []model.Transaction{
		acq("BTC", "1", "1000", "0", day(1)),
		disp("BTC", "1", "1200", "0", day(2)),
	}
	holdings, err := Holdings(txs, Params{})
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestHoldings_Reject(t *testing.T) {
	_, err := Holdings([]model.Transaction{disp("BTC", "1", "1", "0", day(1))}, Params{Unmatched: Reject})
	assert.ErrorIs(t, err, ErrUnmatchedDisposal)
}
