package domain

import "github.com/shopspring/decimal"

// FilterKind identifies an exchange symbol filter.
type FilterKind string

const (
	FilterPrice         FilterKind = "PRICE_FILTER"
	FilterLotSize       FilterKind = "LOT_SIZE"
	FilterNotional      FilterKind = "NOTIONAL"
	FilterMinNotional   FilterKind = "MIN_NOTIONAL"
	FilterTrailingDelta FilterKind = "TRAILING_DELTA"
)

// FilterRecord is a raw filter entry as returned by the exchange.
// The "filterType" key holds the kind, other keys hold numeric strings
// or JSON numbers.
type FilterRecord map[string]any

// Kind returns the filter type of the record.
func (r FilterRecord) Kind() FilterKind {
	s, _ := r["filterType"].(string)
	return FilterKind(s)
}

// PriceFilter bounds and granularity of an order price.
type PriceFilter struct {
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	TickSize decimal.Decimal
}

// LotSizeFilter bounds and granularity of an order quantity.
type LotSizeFilter struct {
	MinQty   decimal.Decimal
	MaxQty   decimal.Decimal
	StepSize decimal.Decimal
}

// NotionalFilter lower bound of quantity*price.
type NotionalFilter struct {
	MinNotional decimal.Decimal
}

// TrailingDeltaFilter allowed trigger distances in basis points.
type TrailingDeltaFilter struct {
	MinAbove decimal.Decimal
	MaxAbove decimal.Decimal
	MinBelow decimal.Decimal
	MaxBelow decimal.Decimal
}

// FilterParams all trading constraints of a symbol.
type FilterParams struct {
	Price         PriceFilter
	LotSize       LotSizeFilter
	Notional      NotionalFilter
	TrailingDelta TrailingDeltaFilter
}
