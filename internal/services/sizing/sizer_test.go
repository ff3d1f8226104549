package sizing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

func btcParams(t *testing.T) domain.FilterParams {
	t.Helper()
	params, err := ExtractFilters(btcFilters())
	require.NoError(t, err)
	return params
}

func TestValidateQuantity_InclusiveBounds(t *testing.T) {
	minQty, maxQty, minNotional := d("0.001"), d("100"), d("10")

	assert.NoError(t, ValidateQuantity(minQty, minQty, maxQty, d("10000"), minNotional))
	assert.NoError(t, ValidateQuantity(maxQty, minQty, maxQty, d("1"), minNotional))
	assert.NoError(t, ValidateQuantity(d("0.5"), minQty, maxQty, d("20"), minNotional))
}

func TestValidateQuantity_Violations(t *testing.T) {
	minQty, maxQty, minNotional := d("0.001"), d("100"), d("10")

	err := ValidateQuantity(d("0.0009"), minQty, maxQty, d("50000"), minNotional)
	var below *domain.BelowMinQuantityError
	require.ErrorAs(t, err, &below)
	assert.True(t, below.Quantity.Equal(d("0.0009")))
	assert.True(t, below.MinQty.Equal(minQty))

	err = ValidateQuantity(d("100.001"), minQty, maxQty, d("1"), minNotional)
	var above *domain.AboveMaxQuantityError
	require.ErrorAs(t, err, &above)
	assert.True(t, above.MaxQty.Equal(maxQty))

	err = ValidateQuantity(d("0.001"), minQty, maxQty, d("9999"), minNotional)
	var notional *domain.BelowMinNotionalError
	require.ErrorAs(t, err, &notional)
	assert.True(t, notional.Notional.Equal(d("9.999")))
	assert.True(t, notional.MinNotional.Equal(minNotional))

	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
	assert.Contains(t, err.Error(), "below the minimum notional value of 10")
}

func TestValidateQuantity_ZeroMaxQty(t *testing.T) {
	assert.NoError(t, ValidateQuantity(d("1000000"), d("0.001"), decimal.Zero, d("1"), d("10")))

	err := ValidateQuantity(d("0.0001"), d("0.001"), decimal.Zero, d("50000"), d("10"))
	var below *domain.BelowMinQuantityError
	assert.ErrorAs(t, err, &below)
}

func TestSizeBuy(t *testing.T) {
	params := btcParams(t)

	qty, err := SizeBuy(d("50000"), params, d("1000"))
	require.NoError(t, err)
	assert.True(t, qty.Equal(d("0.02")), "got %s", qty)
}

func TestSizeBuy_BudgetBelowNotional(t *testing.T) {
	params := btcParams(t)

	_, err := SizeBuy(d("50000"), params, d("1"))

	var notional *domain.BelowMinNotionalError
	require.ErrorAs(t, err, &notional)
	assert.True(t, notional.Notional.Equal(d("1")))
	assert.True(t, notional.MinNotional.Equal(d("10")))
}

func TestSizeBuy_RoundingReachesNotional(t *testing.T) {
	params := btcParams(t)
	params.LotSize = domain.LotSizeFilter{MinQty: d("1"), MaxQty: d("1000"), StepSize: d("1")}

	tests := []struct {
		name         string
		budget       string
		want         string
		wantNotional string
	}{
		{name: "half up lifts to minimum", budget: "9.6", want: "10"},
		{name: "exactly half rounds up", budget: "9.5", want: "10"},
		{name: "rounds down below minimum", budget: "9.4", wantNotional: "9"},
		{name: "rounds to zero", budget: "0.4", wantNotional: "0.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, err := SizeBuy(d("1"), params, d(tt.budget))
			if tt.wantNotional == "" {
				require.NoError(t, err)
				assert.True(t, qty.Equal(d(tt.want)), "got %s", qty)
				return
			}

			var notional *domain.BelowMinNotionalError
			require.ErrorAs(t, err, &notional)
			assert.True(t, notional.Notional.Equal(d(tt.wantNotional)), "got %s", notional.Notional)
		})
	}
}

func TestSizeBuy_ZeroMaxQtyIsUnbounded(t *testing.T) {
	params := btcParams(t)
	params.LotSize.MaxQty = decimal.Zero

	qty, err := SizeBuy(d("50000"), params, d("10000000"))
	require.NoError(t, err)
	assert.True(t, qty.Equal(d("200")), "got %s", qty)
}

func TestSizeBuy_NoClamping(t *testing.T) {
	params := btcParams(t)

	// 11 / 50000 rounds to 0 on a 0.001 step.
	_, err := SizeBuy(d("50000"), params, d("11"))
	var below *domain.BelowMinQuantityError
	require.ErrorAs(t, err, &below)

	// 10_000_000 / 50000 = 200 > maxQty.
	_, err = SizeBuy(d("50000"), params, d("10000000"))
	var above *domain.AboveMaxQuantityError
	require.ErrorAs(t, err, &above)
}

func TestSizeBuy_InvalidInput(t *testing.T) {
	params := btcParams(t)

	_, err := SizeBuy(decimal.Zero, params, d("100"))
	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "price", invalid.Field)

	_, err = SizeBuy(d("100"), params, d("-1"))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "budget", invalid.Field)
}

func TestSizeSell(t *testing.T) {
	params := btcParams(t)

	tests := []struct {
		name      string
		available string
		want      string
	}{
		{name: "balance covers budget", available: "0.05", want: "0.02"},
		{name: "balance caps quantity", available: "0.0157", want: "0.015"},
		{name: "balance exactly on step", available: "0.012", want: "0.012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, err := SizeSell(d("50000"), params, d("1000"), d(tt.available))
			require.NoError(t, err)
			assert.True(t, qty.Equal(d(tt.want)), "got %s", qty)
			assert.True(t, qty.LessThanOrEqual(d(tt.available)))
		})
	}
}

func TestSizeSell_DustBalance(t *testing.T) {
	params := btcParams(t)

	_, err := SizeSell(d("50000"), params, d("1000"), d("0.0004"))
	var below *domain.BelowMinQuantityError
	require.ErrorAs(t, err, &below)

	// 0.001 * 5000 = 5 < 10
	_, err = SizeSell(d("5000"), params, d("1000"), d("0.0019"))
	var notional *domain.BelowMinNotionalError
	require.ErrorAs(t, err, &notional)
}

func TestSizeSell_NeverExceedsBalance(t *testing.T) {
	params := btcParams(t)

	for _, available := range []string{"0.0199", "0.0205", "0.0101", "0.0011"} {
		qty, err := SizeSell(d("50000"), params, d("1000"), d(available))
		require.NoError(t, err, available)
		assert.True(t, qty.LessThanOrEqual(d(available)), "qty %s exceeds %s", qty, available)
	}
}

func TestComputeTriggerPrices(t *testing.T) {
	params := btcParams(t)

	tests := []struct {
		name     string
		tpBps    string
		slBps    string
		wantTP   string
		wantSL   string
		wantTPBp string
		wantSLBp string
	}{
		{name: "within range", tpBps: "500", slBps: "300", wantTP: "52500.00", wantSL: "48500.00", wantTPBp: "500", wantSLBp: "300"},
		{name: "clamped to max delta", tpBps: "5000", slBps: "2500", wantTP: "60000.00", wantSL: "40000.00", wantTPBp: "2000", wantSLBp: "2000"},
		{name: "clamped to min delta", tpBps: "1", slBps: "5", wantTP: "50050.00", wantSL: "49950.00", wantTPBp: "10", wantSLBp: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := ComputeTriggerPrices(d("50000"), d(tt.tpBps), d(tt.slBps), params)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTP, tp.TakeProfitText)
			assert.Equal(t, tt.wantSL, tp.StopLossText)
			assert.True(t, tp.TakeProfitDeltaBps.Equal(d(tt.wantTPBp)))
			assert.True(t, tp.StopLossDeltaBps.Equal(d(tt.wantSLBp)))
		})
	}
}

func TestComputeTriggerPrices_ZeroMaxDelta(t *testing.T) {
	params := btcParams(t)
	params.TrailingDelta = domain.TrailingDeltaFilter{MinAbove: d("10"), MinBelow: d("10")}

	tests := []struct {
		name   string
		tpBps  string
		slBps  string
		wantTP string
		wantSL string
	}{
		{name: "configured deltas kept", tpBps: "500", slBps: "300", wantTP: "52500.00", wantSL: "48500.00"},
		{name: "large deltas kept", tpBps: "5000", slBps: "2500", wantTP: "75000.00", wantSL: "37500.00"},
		{name: "minimum still applies", tpBps: "1", slBps: "5", wantTP: "50050.00", wantSL: "49950.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := ComputeTriggerPrices(d("50000"), d(tt.tpBps), d(tt.slBps), params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTP, tp.TakeProfitText)
			assert.Equal(t, tt.wantSL, tp.StopLossText)
		})
	}
}

func TestComputeTriggerPrices_PriceBounds(t *testing.T) {
	params := btcParams(t)
	params.Price.MaxPrice = d("51000")
	params.Price.MinPrice = d("49000")

	tp, err := ComputeTriggerPrices(d("50000"), d("500"), d("300"), params)
	require.NoError(t, err)
	assert.Equal(t, "51000.00", tp.TakeProfitText)
	assert.Equal(t, "49000.00", tp.StopLossText)
}

func TestComputeTriggerPrices_RoundsToTick(t *testing.T) {
	params := btcParams(t)

	// 123.456 * 1.05 = 129.6288, 123.456 * 0.97 = 119.75232
	tp, err := ComputeTriggerPrices(d("123.456"), d("500"), d("300"), params)
	require.NoError(t, err)
	assert.Equal(t, "129.63", tp.TakeProfitText)
	assert.Equal(t, "119.75", tp.StopLossText)
	assert.True(t, tp.TakeProfit.Equal(d("129.63")))
}

func TestSizer_BuildBuyIntent(t *testing.T) {
	md := domain.MarketData{
		Coin:    "BTC",
		Pair:    domain.NewPair("btc", "usdt"),
		Price:   d("50000"),
		Filters: btcFilters(),
	}

	s := NewSizer(Protection{Enabled: true, Trailing: true, TakeProfitBps: d("500"), StopLossBps: d("300")})
	intent, err := s.BuildBuyIntent(md, d("1000"))
	require.NoError(t, err)

	assert.Equal(t, domain.SideBuy, intent.Side)
	assert.Equal(t, "BTCUSDT", intent.Pair.Symbol())
	assert.True(t, intent.Quantity.Equal(d("0.02")))
	assert.True(t, intent.StepSize.Equal(d("0.001")))
	require.True(t, intent.HasProtection())
	assert.Equal(t, "52500.00", intent.Triggers.TakeProfitText)
	require.NotNil(t, intent.TrailingDeltaBps)
	assert.True(t, intent.TrailingDeltaBps.Equal(d("300")))

	unprotected, err := NewSizer(Protection{}).BuildBuyIntent(md, d("1000"))
	require.NoError(t, err)
	assert.False(t, unprotected.HasProtection())
}

func TestSizer_BuildIntentErrors(t *testing.T) {
	s := NewSizer(Protection{})

	md := domain.MarketData{
		Coin:    "BTC",
		Pair:    domain.NewPair("BTC", "USDT"),
		Price:   d("50000"),
		Filters: without(btcFilters(), domain.FilterLotSize),
	}
	_, err := s.BuildBuyIntent(md, d("1000"))
	var missing *domain.MissingFilterError
	require.ErrorAs(t, err, &missing)

	md.Filters = btcFilters()
	intent, err := s.BuildSellIntent(md, d("1000"), d("0.0157"))
	require.NoError(t, err)
	assert.Equal(t, domain.SideSell, intent.Side)
	assert.True(t, intent.Quantity.Equal(d("0.015")))
	assert.False(t, intent.HasProtection())

	_, err = s.BuildSellIntent(md, d("1000"), d("0.0001"))
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}
