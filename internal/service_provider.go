package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/internal/clients"
	"github.com/vadiminshakov/coinrank/internal/services/market/collector"
	"github.com/vadiminshakov/coinrank/internal/services/trader"
	"github.com/vadiminshakov/coinrank/internal/services/wallet"
)

// serviceProvider defines a factory interface for creating platform-specific services.
type serviceProvider interface {
	Exchange() collector.Exchange
	Balances() wallet.BalanceSource
	Trader() orderExecutor
}

// newServiceProvider creates a new service provider based on the client type.
// This is the single point of truth for dispatching to platform-specific implementations.
func newServiceProvider(client any, quote string, logger *zap.Logger) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c, logger: logger}, nil
	case *clients.SimulateClient:
		sim, err := trader.NewSimulateTrader(quote, c.QuoteBalance(), logger)
		if err != nil {
			return nil, err
		}
		return &simulateProvider{client: c, sim: sim}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
	logger *zap.Logger
}

func (p *binanceProvider) Exchange() collector.Exchange {
	return collector.NewBinanceExchange(p.client)
}
func (p *binanceProvider) Balances() wallet.BalanceSource {
	return wallet.NewBinanceBalances(p.client)
}
func (p *binanceProvider) Trader() orderExecutor {
	return trader.NewBinanceTrader(trader.NewBinanceOrders(p.client), wallet.NewBinanceBalances(p.client), p.logger)
}

// simulateProvider reads public market data and trades against a local wallet.
type simulateProvider struct {
	client *clients.SimulateClient
	sim    *trader.SimulateTrader
}

func (p *simulateProvider) Exchange() collector.Exchange {
	return collector.NewBinanceExchange(p.client.GetBinanceClient())
}
func (p *simulateProvider) Balances() wallet.BalanceSource {
	return p.sim
}
func (p *simulateProvider) Trader() orderExecutor {
	return p.sim
}
