package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Balance holdings of a single asset.
type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// Total returns free plus locked.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// Wallet balances keyed by upper-cased asset symbol.
type Wallet map[string]Balance

// NewWallet builds a wallet from balances, dropping empty ones.
func NewWallet(balances []Balance) Wallet {
	w := make(Wallet, len(balances))
	for _, b := range balances {
		if !b.Total().IsPositive() {
			continue
		}
		b.Asset = strings.ToUpper(b.Asset)
		w[b.Asset] = b
	}
	return w
}

// Holds reports whether the wallet has a positive balance of coin.
func (w Wallet) Holds(coin string) bool {
	b, ok := w[strings.ToUpper(coin)]
	return ok && b.Total().IsPositive()
}

// Free returns the free balance of an asset, zero when absent.
func (w Wallet) Free(asset string) decimal.Decimal {
	return w[strings.ToUpper(asset)].Free
}

// Locked returns the balance of an asset held by open orders, zero when absent.
func (w Wallet) Locked(asset string) decimal.Decimal {
	return w[strings.ToUpper(asset)].Locked
}

// AssetValue a valued wallet line.
type AssetValue struct {
	Asset              string          `json:"asset"`
	Balance            decimal.Decimal `json:"balance"`
	PriceInQuote       decimal.Decimal `json:"price_in_quote"`
	ValueInQuote       decimal.Decimal `json:"value_in_quote"`
	Percentage         decimal.Decimal `json:"percentage"`
	ValueChange        decimal.Decimal `json:"value_change"`
	ValueChangePercent decimal.Decimal `json:"value_change_percent"`
	VolumeChange       decimal.Decimal `json:"volume_change"`
}

// WalletSnapshot wallet valuation at a point in time.
type WalletSnapshot struct {
	Timestamp  time.Time       `json:"ts"`
	Quote      string          `json:"quote"`
	Assets     []AssetValue    `json:"assets"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Asset looks up a valued line by asset symbol.
func (s WalletSnapshot) Asset(asset string) (AssetValue, bool) {
	for _, a := range s.Assets {
		if a.Asset == asset {
			return a, true
		}
	}
	return AssetValue{}, false
}
