package sizing

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

var basisPoints = decimal.NewFromInt(10000)

// SizeBuy computes the quantity bought with budget at price.
// The result is step-aligned and validated, never clamped into range.
func SizeBuy(price decimal.Decimal, params domain.FilterParams, budget decimal.Decimal) (decimal.Decimal, error) {
	desired, err := desiredQuantity(price, params, budget)
	if err != nil {
		return decimal.Zero, err
	}

	lot := params.LotSize
	if err := ValidateQuantity(desired, lot.MinQty, lot.MaxQty, price, params.Notional.MinNotional); err != nil {
		return decimal.Zero, err
	}

	return desired, nil
}

// SizeSell computes the quantity sold for budget at price, capped by the available balance.
// The balance is floored to the step so the order never exceeds what the wallet holds.
func SizeSell(price decimal.Decimal, params domain.FilterParams, budget, available decimal.Decimal) (decimal.Decimal, error) {
	if available.IsNegative() {
		return decimal.Zero, &domain.InvalidInputError{Field: "available balance", Value: available}
	}

	desired, err := desiredQuantity(price, params, budget)
	if err != nil {
		return decimal.Zero, err
	}

	lot := params.LotSize
	held, err := FloorToStep(available, lot.StepSize)
	if err != nil {
		return decimal.Zero, err
	}

	quantity := decimal.Min(desired, held)
	if err := ValidateQuantity(quantity, lot.MinQty, lot.MaxQty, price, params.Notional.MinNotional); err != nil {
		return decimal.Zero, err
	}

	return quantity, nil
}

// desiredQuantity is budget/price rounded half-up to the lot step. A quantity
// that rounds to zero on a budget below the minimum notional fails here with the
// budget as the offending value; everything else is left to ValidateQuantity.
func desiredQuantity(price decimal.Decimal, params domain.FilterParams, budget decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, &domain.InvalidInputError{Field: "price", Value: price}
	}
	if budget.IsNegative() {
		return decimal.Zero, &domain.InvalidInputError{Field: "budget", Value: budget}
	}

	quantity, err := RoundToStep(budget.Div(price), params.LotSize.StepSize)
	if err != nil {
		return decimal.Zero, err
	}
	if quantity.IsZero() && budget.LessThan(params.Notional.MinNotional) {
		return decimal.Zero, &domain.BelowMinNotionalError{Notional: budget, MinNotional: params.Notional.MinNotional}
	}

	return quantity, nil
}

// ComputeTriggerPrices derives take-profit and stop-loss prices from price.
// Deltas are clamped into the trailing delta filter range, prices into the price
// filter range, then rounded to the tick. A zero maximum is treated as unbounded.
func ComputeTriggerPrices(price, takeProfitBps, stopLossBps decimal.Decimal, params domain.FilterParams) (domain.TriggerPrices, error) {
	if !price.IsPositive() {
		return domain.TriggerPrices{}, &domain.InvalidInputError{Field: "price", Value: price}
	}

	td := params.TrailingDelta
	tpBps := clamp(takeProfitBps, td.MinAbove, td.MaxAbove)
	slBps := clamp(stopLossBps, td.MinBelow, td.MaxBelow)

	tp := price.Mul(decimal.NewFromInt(1).Add(tpBps.Div(basisPoints)))
	sl := price.Mul(decimal.NewFromInt(1).Sub(slBps.Div(basisPoints)))

	tp = clampPrice(tp, params.Price)
	sl = clampPrice(sl, params.Price)

	tick := params.Price.TickSize
	tp, err := RoundToStep(tp, tick)
	if err != nil {
		return domain.TriggerPrices{}, errors.Wrap(err, "failed to round take profit price")
	}
	sl, err = RoundToStep(sl, tick)
	if err != nil {
		return domain.TriggerPrices{}, errors.Wrap(err, "failed to round stop loss price")
	}

	tpText, err := FormatPrice(tp, tick)
	if err != nil {
		return domain.TriggerPrices{}, err
	}
	slText, err := FormatPrice(sl, tick)
	if err != nil {
		return domain.TriggerPrices{}, err
	}

	return domain.TriggerPrices{
		TakeProfit:         tp,
		StopLoss:           sl,
		TakeProfitText:     tpText,
		StopLossText:       slText,
		TakeProfitDeltaBps: tpBps,
		StopLossDeltaBps:   slBps,
	}, nil
}

// clamp bounds v to [lo, hi]; a zero hi leaves v unbounded above.
func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if hi.IsPositive() {
		v = decimal.Min(hi, v)
	}
	return decimal.Max(lo, v)
}

func clampPrice(p decimal.Decimal, f domain.PriceFilter) decimal.Decimal {
	if f.MinPrice.IsPositive() && p.LessThan(f.MinPrice) {
		p = f.MinPrice
	}
	if f.MaxPrice.IsPositive() && p.GreaterThan(f.MaxPrice) {
		p = f.MaxPrice
	}
	return p
}

// Protection settings for the orders placed after a buy fills.
type Protection struct {
	Enabled       bool
	Trailing      bool
	TakeProfitBps decimal.Decimal
	StopLossBps   decimal.Decimal
}

// Sizer builds order intents from fresh market data.
type Sizer struct {
	protection Protection
}

// NewSizer creates a Sizer.
func NewSizer(protection Protection) *Sizer {
	return &Sizer{protection: protection}
}

// BuildBuyIntent sizes a buy of budget quote units of md.Coin.
func (s *Sizer) BuildBuyIntent(md domain.MarketData, budget decimal.Decimal) (domain.OrderIntent, error) {
	params, err := ExtractFilters(md.Filters)
	if err != nil {
		return domain.OrderIntent{}, errors.Wrapf(err, "failed to extract filters for %s", md.Pair.Symbol())
	}

	quantity, err := SizeBuy(md.Price, params, budget)
	if err != nil {
		return domain.OrderIntent{}, errors.Wrapf(err, "failed to size buy for %s", md.Pair.Symbol())
	}

	intent := domain.OrderIntent{
		Coin:     md.Coin,
		Pair:     md.Pair,
		Side:     domain.SideBuy,
		Quantity: quantity,
		Price:    md.Price,
		StepSize: params.LotSize.StepSize,
	}
	if !s.protection.Enabled {
		return intent, nil
	}

	triggers, err := ComputeTriggerPrices(md.Price, s.protection.TakeProfitBps, s.protection.StopLossBps, params)
	if err != nil {
		return domain.OrderIntent{}, errors.Wrapf(err, "failed to compute trigger prices for %s", md.Pair.Symbol())
	}
	intent.Triggers = &triggers
	if s.protection.Trailing {
		delta := triggers.StopLossDeltaBps
		intent.TrailingDeltaBps = &delta
	}

	return intent, nil
}

// BuildSellIntent sizes a sell of budget quote units of md.Coin, limited by available.
func (s *Sizer) BuildSellIntent(md domain.MarketData, budget, available decimal.Decimal) (domain.OrderIntent, error) {
	params, err := ExtractFilters(md.Filters)
	if err != nil {
		return domain.OrderIntent{}, errors.Wrapf(err, "failed to extract filters for %s", md.Pair.Symbol())
	}

	quantity, err := SizeSell(md.Price, params, budget, available)
	if err != nil {
		return domain.OrderIntent{}, errors.Wrapf(err, "failed to size sell for %s", md.Pair.Symbol())
	}

	return domain.OrderIntent{
		Coin:     md.Coin,
		Pair:     md.Pair,
		Side:     domain.SideSell,
		Quantity: quantity,
		Price:    md.Price,
		StepSize: params.LotSize.StepSize,
	}, nil
}
