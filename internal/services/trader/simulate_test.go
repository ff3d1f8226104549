package trader

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func buyIntent(qty, price string) domain.OrderIntent {
	return domain.OrderIntent{
		Coin:     "BTC",
		Pair:     domain.NewPair("BTC", "USDT"),
		Side:     domain.SideBuy,
		Quantity: d(qty),
		Price:    d(price),
	}
}

func TestSimulateTrader_NewSimulateTrader(t *testing.T) {
	trader, err := NewSimulateTrader("USDT", decimal.NewFromInt(1000), zap.NewNop())
	require.NoError(t, err)

	balances, err := trader.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "USDT", balances[0].Asset)
	assert.True(t, balances[0].Free.Equal(decimal.NewFromInt(1000)))

	_, err = NewSimulateTrader("", decimal.Zero, zap.NewNop())
	assert.Error(t, err)
	_, err = NewSimulateTrader("USDT", decimal.NewFromInt(-1), zap.NewNop())
	assert.Error(t, err)
}

func TestSimulateTrader_BuyThenSell(t *testing.T) {
	trader, err := NewSimulateTrader("USDT", decimal.NewFromInt(1000), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	conf, err := trader.Execute(ctx, buyIntent("0.01", "50000"))
	require.NoError(t, err)
	assert.Equal(t, "1", conf.OrderID)
	assert.True(t, conf.QuoteQuantity.Equal(d("500")))
	assert.True(t, trader.GetBalance("BTC").Equal(d("0.01")))
	assert.True(t, trader.GetBalance("USDT").Equal(d("500")))

	sell := buyIntent("0.004", "55000")
	sell.Side = domain.SideSell
	conf, err = trader.Execute(ctx, sell)
	require.NoError(t, err)
	assert.Equal(t, "2", conf.OrderID)
	assert.True(t, trader.GetBalance("BTC").Equal(d("0.006")))
	assert.True(t, trader.GetBalance("USDT").Equal(d("720")))
}

func TestSimulateTrader_InsufficientBalance(t *testing.T) {
	trader, err := NewSimulateTrader("USDT", decimal.NewFromInt(100), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = trader.Execute(ctx, buyIntent("0.01", "50000"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient USDT balance")

	sell := buyIntent("0.01", "50000")
	sell.Side = domain.SideSell
	_, err = trader.Execute(ctx, sell)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient BTC balance")

	// nothing moved
	assert.True(t, trader.GetBalance("USDT").Equal(d("100")))
}

func TestSimulateTrader_ProtectedBuy(t *testing.T) {
	trader, err := NewSimulateTrader("USDT", decimal.NewFromInt(1000), zap.NewNop())
	require.NoError(t, err)

	intent := buyIntent("0.001", "50000")
	intent.Triggers = &domain.TriggerPrices{TakeProfitText: "52500.00", StopLossText: "48500.00"}

	conf, err := trader.Execute(context.Background(), intent)
	require.NoError(t, err)
	assert.NotEmpty(t, conf.ProtectionListID)
	assert.NotEmpty(t, conf.TakeProfitOrderID)
	assert.NotEmpty(t, conf.StopLossOrderID)

	balances, err := trader.Balances(context.Background())
	require.NoError(t, err)
	wallet := domain.NewWallet(balances)
	assert.True(t, wallet.Free("BTC").IsZero())
	assert.True(t, wallet.Locked("BTC").Equal(d("0.001")))
	assert.True(t, trader.GetBalance("BTC").Equal(d("0.001")))
}

func TestSimulateTrader_CancelReleasesLockedBalance(t *testing.T) {
	trader, err := NewSimulateTrader("USDT", decimal.NewFromInt(1000), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	intent := buyIntent("0.002", "50000")
	intent.Triggers = &domain.TriggerPrices{TakeProfitText: "52500.00", StopLossText: "48500.00"}
	_, err = trader.Execute(ctx, intent)
	require.NoError(t, err)

	sell := buyIntent("0.002", "50000")
	sell.Side = domain.SideSell
	_, err = trader.Execute(ctx, sell)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient BTC balance")

	require.NoError(t, trader.CancelOpenOrders(ctx, sell.Pair))
	balances, err := trader.Balances(ctx)
	require.NoError(t, err)
	assert.True(t, domain.NewWallet(balances).Free("BTC").Equal(d("0.002")))
	assert.True(t, domain.NewWallet(balances).Locked("BTC").IsZero())

	_, err = trader.Execute(ctx, sell)
	require.NoError(t, err)
	assert.True(t, trader.GetBalance("BTC").IsZero())
	assert.True(t, trader.GetBalance("USDT").Equal(d("1000")))

	// nothing left to cancel
	assert.NoError(t, trader.CancelOpenOrders(ctx, sell.Pair))
}

func TestSimulateTrader_RejectsNonPositiveQuantity(t *testing.T) {
	trader, err := NewSimulateTrader("USDT", decimal.NewFromInt(1000), zap.NewNop())
	require.NoError(t, err)

	_, err = trader.Execute(context.Background(), buyIntent("0", "50000"))
	assert.Error(t, err)
}
