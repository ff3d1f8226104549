package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// SimulateClient wraps a real exchange client for market data while orders
// and balances stay local.
type SimulateClient struct {
	// use Binance public API for real market data
	binanceClient *binance.Client
	quoteBalance  decimal.Decimal
}

// NewSimulateClient creates a new simulate client starting with quoteBalance.
func NewSimulateClient(quoteBalance decimal.Decimal) *SimulateClient {
	// create client without API keys for public data only
	client := binance.NewClient("", "")
	return &SimulateClient{
		binanceClient: client,
		quoteBalance:  quoteBalance,
	}
}

// GetBinanceClient returns the underlying Binance client.
func (c *SimulateClient) GetBinanceClient() *binance.Client {
	return c.binanceClient
}

// QuoteBalance returns the simulated starting balance of the quote asset.
func (c *SimulateClient) QuoteBalance() decimal.Decimal {
	return c.quoteBalance
}
