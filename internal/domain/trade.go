package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TriggerPrices protective order levels derived from the filled price.
type TriggerPrices struct {
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
	// TakeProfitText and StopLossText are formatted with the symbol's tick precision.
	TakeProfitText string
	StopLossText   string
	// Deltas actually applied after clamping to the trailing delta filter, in basis points.
	TakeProfitDeltaBps decimal.Decimal
	StopLossDeltaBps   decimal.Decimal
}

// OrderIntent a fully sized and validated order ready for placement.
type OrderIntent struct {
	Coin     string
	Pair     Pair
	Side     Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
	// StepSize is the symbol's lot step, used to size protective orders.
	StepSize decimal.Decimal
	// Triggers is set on buys that must be followed by protective orders.
	Triggers *TriggerPrices
	// TrailingDeltaBps is set when protective orders trail instead of using fixed levels.
	TrailingDeltaBps *decimal.Decimal
}

// HasProtection reports whether protective orders must follow the market order.
func (o OrderIntent) HasProtection() bool {
	return o.Side == SideBuy && o.Triggers != nil
}

// Notional returns quantity*price.
func (o OrderIntent) Notional() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}

// String returns a human-readable string representation.
func (o OrderIntent) String() string {
	s := fmt.Sprintf("%s %s qty: %s price: %s", o.Pair.String(), o.Side, o.Quantity.String(), o.Price.String())
	if o.Triggers != nil {
		s += fmt.Sprintf(" tp: %s sl: %s", o.Triggers.TakeProfitText, o.Triggers.StopLossText)
	}
	return s
}

// OrderConfirmation what the exchange reported for an executed intent.
type OrderConfirmation struct {
	OrderID           string
	ClientOrderID     string
	Side              Side
	ExecutedQuantity  decimal.Decimal
	QuoteQuantity     decimal.Decimal
	TakeProfitOrderID string
	StopLossOrderID   string
	// ProtectionListID is the exchange order list holding the take profit and stop loss legs.
	ProtectionListID string
	Timestamp        time.Time
}
