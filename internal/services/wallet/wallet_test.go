package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type staticSource struct {
	balances []domain.Balance
	err      error
}

func (s staticSource) Balances(ctx context.Context) ([]domain.Balance, error) {
	return s.balances, s.err
}

type memoryStore struct {
	saved []domain.WalletSnapshot
}

func (m *memoryStore) Save(snapshot domain.WalletSnapshot) error {
	m.saved = append(m.saved, snapshot)
	return nil
}

func (m *memoryStore) Latest() (domain.WalletSnapshot, bool, error) {
	if len(m.saved) == 0 {
		return domain.WalletSnapshot{}, false, nil
	}
	return m.saved[len(m.saved)-1], true, nil
}

func TestService_Load(t *testing.T) {
	svc := NewService(staticSource{balances: []domain.Balance{
		{Asset: "BTC", Free: dec("0.1")},
		{Asset: "BNB", Free: decimal.Zero, Locked: decimal.Zero},
		{Asset: "USDT", Free: dec("250")},
	}}, nil, "usdt", zap.NewNop())

	w, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, w, 2)
	assert.True(t, w.Holds("BTC"))
	assert.False(t, w.Holds("BNB"))

	_, err = NewService(staticSource{err: errors.New("401")}, nil, "USDT", zap.NewNop()).Load(context.Background())
	assert.Error(t, err)
}

func TestValue(t *testing.T) {
	w := domain.NewWallet([]domain.Balance{
		{Asset: "BTC", Free: dec("0.01"), Locked: dec("0.01")},
		{Asset: "USDT", Free: dec("500")},
		{Asset: "OBSCURE", Free: dec("1000")},
	})
	prices := map[string]decimal.Decimal{"BTC": dec("25000")}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	snap, unpriced := Value(w, prices, "USDT", at)

	assert.Equal(t, []string{"OBSCURE"}, unpriced)
	assert.True(t, snap.TotalValue.Equal(dec("1000")))
	assert.Equal(t, at, snap.Timestamp)
	require.Len(t, snap.Assets, 2)

	assert.Equal(t, "BTC", snap.Assets[0].Asset)
	assert.True(t, snap.Assets[0].Balance.Equal(dec("0.02")))
	assert.True(t, snap.Assets[0].ValueInQuote.Equal(dec("500")))
	assert.True(t, snap.Assets[0].Percentage.Equal(dec("50")))

	assert.Equal(t, "USDT", snap.Assets[1].Asset)
	assert.True(t, snap.Assets[1].PriceInQuote.Equal(dec("1")))
}

func TestCompare(t *testing.T) {
	previous := domain.WalletSnapshot{Assets: []domain.AssetValue{
		{Asset: "BTC", Balance: dec("0.02"), ValueInQuote: dec("500")},
		{Asset: "ETH", Balance: dec("1"), ValueInQuote: dec("3000")},
	}}
	current := domain.WalletSnapshot{Assets: []domain.AssetValue{
		{Asset: "BTC", Balance: dec("0.03"), ValueInQuote: dec("600")},
		{Asset: "SOL", Balance: dec("2"), ValueInQuote: dec("300")},
	}}

	out := Compare(current, previous)

	btc, ok := out.Asset("BTC")
	require.True(t, ok)
	assert.True(t, btc.ValueChange.Equal(dec("100")))
	assert.True(t, btc.ValueChangePercent.Equal(dec("20")))
	assert.True(t, btc.VolumeChange.Equal(dec("0.01")))

	sol, ok := out.Asset("SOL")
	require.True(t, ok)
	assert.True(t, sol.ValueChange.Equal(dec("300")))
	assert.True(t, sol.ValueChangePercent.IsZero())

	// input is left untouched
	assert.True(t, current.Assets[0].ValueChange.IsZero())
}

func TestService_SnapshotTracksChanges(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(nil, store, "USDT", zap.NewNop())

	w := domain.NewWallet([]domain.Balance{{Asset: "BTC", Free: dec("0.1")}})

	first, err := svc.Snapshot(w, map[string]decimal.Decimal{"BTC": dec("20000")})
	require.NoError(t, err)
	assert.True(t, first.TotalValue.Equal(dec("2000")))

	second, err := svc.Snapshot(w, map[string]decimal.Decimal{"BTC": dec("22000")})
	require.NoError(t, err)

	btc, ok := second.Asset("BTC")
	require.True(t, ok)
	assert.True(t, btc.ValueChange.Equal(dec("200")))
	assert.True(t, btc.ValueChangePercent.Equal(dec("10")))
	assert.Len(t, store.saved, 2)
}
