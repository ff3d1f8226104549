package wallet

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// BinanceBalances reads spot balances from the Binance account endpoint.
type BinanceBalances struct {
	client *binance.Client
}

// NewBinanceBalances creates a BinanceBalances.
func NewBinanceBalances(client *binance.Client) *BinanceBalances {
	return &BinanceBalances{client: client}
}

// Balances returns every spot balance.
func (b *BinanceBalances) Balances(ctx context.Context) ([]domain.Balance, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get binance account balance")
	}

	balances := make([]domain.Balance, 0, len(account.Balances))
	for _, balance := range account.Balances {
		free, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse free balance of %s", balance.Asset)
		}
		locked, err := decimal.NewFromString(balance.Locked)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse locked balance of %s", balance.Asset)
		}
		balances = append(balances, domain.Balance{Asset: balance.Asset, Free: free, Locked: locked})
	}

	return balances, nil
}
