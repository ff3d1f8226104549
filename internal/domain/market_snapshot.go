package domain

import "github.com/shopspring/decimal"

// MarketData everything the bot knows about a coin for one decision cycle.
type MarketData struct {
	// Coin base asset symbol.
	Coin string
	// Pair coin against the configured quote asset.
	Pair Pair
	// Price latest traded price.
	Price decimal.Decimal
	// Filters raw symbol filters as reported by the exchange.
	Filters []FilterRecord
	// Candles most recent candles, oldest first.
	Candles []Candle
}

// LatestClose returns the close of the newest candle.
func (m MarketData) LatestClose() (decimal.Decimal, bool) {
	if len(m.Candles) == 0 {
		return decimal.Zero, false
	}
	return m.Candles[len(m.Candles)-1].Close, true
}
