package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle single OHLCV candlestick.
type Candle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// OpenPrice returns the opening price.
func (c Candle) OpenPrice() decimal.Decimal {
	return c.Open
}

// ClosePrice returns the closing price.
func (c Candle) ClosePrice() decimal.Decimal {
	return c.Close
}
