// Package wallet loads account balances and values them in the quote asset.
package wallet

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// BalanceSource provides the account balances.
type BalanceSource interface {
	Balances(ctx context.Context) ([]domain.Balance, error)
}

type snapshotStore interface {
	Save(snapshot domain.WalletSnapshot) error
	Latest() (domain.WalletSnapshot, bool, error)
}

// Service loads and values the wallet.
type Service struct {
	source BalanceSource
	store  snapshotStore
	quote  string
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. store may be nil, snapshots are then neither
// persisted nor compared.
func NewService(source BalanceSource, store snapshotStore, quote string, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		store:  store,
		quote:  strings.ToUpper(quote),
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the current non-empty balances.
func (s *Service) Load(ctx context.Context) (domain.Wallet, error) {
	balances, err := s.source.Balances(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load balances")
	}
	return domain.NewWallet(balances), nil
}

// Snapshot values wallet at prices (keyed by coin), compares it with the last
// stored snapshot and stores the result.
func (s *Service) Snapshot(wallet domain.Wallet, prices map[string]decimal.Decimal) (domain.WalletSnapshot, error) {
	current, unpriced := Value(wallet, prices, s.quote, s.now())
	for _, asset := range unpriced {
		s.logger.Debug("asset left out of valuation, no price", zap.String("asset", asset))
	}

	if s.store == nil {
		return current, nil
	}

	previous, ok, err := s.store.Latest()
	if err != nil {
		return domain.WalletSnapshot{}, errors.Wrap(err, "failed to read previous wallet snapshot")
	}
	if ok {
		current = Compare(current, previous)
	}

	if err := s.store.Save(current); err != nil {
		return domain.WalletSnapshot{}, errors.Wrap(err, "failed to save wallet snapshot")
	}

	return current, nil
}

// Value prices every asset of wallet in quote. The quote asset is worth 1.
// Assets without a price are returned separately and left out.
func Value(wallet domain.Wallet, prices map[string]decimal.Decimal, quote string, at time.Time) (domain.WalletSnapshot, []string) {
	var (
		assets   []domain.AssetValue
		unpriced []string
	)

	for asset, b := range wallet {
		price := decimal.NewFromInt(1)
		if asset != quote {
			p, ok := prices[asset]
			if !ok {
				unpriced = append(unpriced, asset)
				continue
			}
			price = p
		}

		assets = append(assets, domain.AssetValue{
			Asset:        asset,
			Balance:      b.Total(),
			PriceInQuote: price,
			ValueInQuote: b.Total().Mul(price),
		})
	}

	total := lo.Reduce(assets, func(acc decimal.Decimal, a domain.AssetValue, _ int) decimal.Decimal {
		return acc.Add(a.ValueInQuote)
	}, decimal.Zero)
	if total.IsPositive() {
		for i := range assets {
			assets[i].Percentage = assets[i].ValueInQuote.Div(total).Mul(hundred).Round(2)
		}
	}

	sort.Slice(assets, func(i, j int) bool {
		if !assets[i].ValueInQuote.Equal(assets[j].ValueInQuote) {
			return assets[i].ValueInQuote.GreaterThan(assets[j].ValueInQuote)
		}
		return assets[i].Asset < assets[j].Asset
	})
	sort.Strings(unpriced)

	return domain.WalletSnapshot{
		Timestamp:  at,
		Quote:      quote,
		Assets:     assets,
		TotalValue: total,
	}, unpriced
}

// Compare fills the change fields of current relative to previous.
// Assets new since previous show their full value and balance as change.
func Compare(current, previous domain.WalletSnapshot) domain.WalletSnapshot {
	out := current
	out.Assets = make([]domain.AssetValue, len(current.Assets))

	for i, a := range current.Assets {
		prev, ok := previous.Asset(a.Asset)
		if ok {
			a.ValueChange = a.ValueInQuote.Sub(prev.ValueInQuote)
			a.VolumeChange = a.Balance.Sub(prev.Balance)
			if prev.ValueInQuote.IsPositive() {
				a.ValueChangePercent = a.ValueChange.Div(prev.ValueInQuote).Mul(hundred).Round(2)
			}
		} else {
			a.ValueChange = a.ValueInQuote
			a.VolumeChange = a.Balance
		}
		out.Assets[i] = a
	}

	return out
}
