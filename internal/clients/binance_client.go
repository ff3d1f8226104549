package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	client := binance.NewClient(apiKey, apiSecret)
	return client
}

// NewExchangeClient returns a *SimulateClient for dry runs and an
// authenticated *binance.Client otherwise.
func NewExchangeClient(dryRun bool, apiKey, apiSecret string, quoteBalance decimal.Decimal) any {
	if dryRun {
		return NewSimulateClient(quoteBalance)
	}
	return NewBinanceClient(apiKey, apiSecret)
}
