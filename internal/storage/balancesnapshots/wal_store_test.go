package balancesnapshots

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

func TestWALStore_Latest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)

	_, ok, err := store.Latest()
	require.NoError(t, err)
	assert.False(t, ok)

	for _, total := range []string{"1000", "1050.5"} {
		require.NoError(t, store.Save(domain.WalletSnapshot{
			Quote:      "USDT",
			TotalValue: decimal.RequireFromString(total),
			Assets: []domain.AssetValue{
				{Asset: "USDT", Balance: decimal.RequireFromString(total), PriceInQuote: decimal.NewFromInt(1)},
			},
		}))
	}

	latest, ok, err := store.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.TotalValue.Equal(decimal.RequireFromString("1050.5")))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	latest, ok, err = reopened.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	usdt, found := latest.Asset("USDT")
	require.True(t, found)
	assert.True(t, usdt.Balance.Equal(decimal.RequireFromString("1050.5")))
}

func TestWALStore_SaveRequiresQuote(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Save(domain.WalletSnapshot{}))

	var nilStore *WALStore
	_, _, err = nilStore.Latest()
	assert.Error(t, err)
}
