package internal

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/config"
	"github.com/vadiminshakov/coinrank/internal/instrumentation"
	"github.com/vadiminshakov/coinrank/internal/services/market/collector"
	"github.com/vadiminshakov/coinrank/internal/services/market/indicators"
	"github.com/vadiminshakov/coinrank/internal/services/ranking"
	"github.com/vadiminshakov/coinrank/internal/services/scoring"
	"github.com/vadiminshakov/coinrank/internal/services/sizing"
	"github.com/vadiminshakov/coinrank/internal/services/wallet"
	"github.com/vadiminshakov/coinrank/internal/storage/balancesnapshots"
	"github.com/vadiminshakov/coinrank/internal/storage/decisions"
	"github.com/vadiminshakov/coinrank/pkg/retrier"
)

// DecisionsDir is where decision events are kept under the WAL root.
func DecisionsDir(walDir string) string {
	return filepath.Join(walDir, "decisions")
}

// BalanceDir is where wallet snapshots are kept under the WAL root.
func BalanceDir(walDir string) string {
	return filepath.Join(walDir, "balance")
}

// NewTradingBot wires a bot for client, which is either a *binance.Client or
// a *clients.SimulateClient.
func NewTradingBot(conf config.Config, client any, metrics *instrumentation.Metrics, logger *zap.Logger) (*TradingBot, error) {
	if metrics == nil {
		return nil, errors.New("metrics are required")
	}

	provider, err := newServiceProvider(client, conf.Quote, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service provider")
	}

	scorer, err := scoring.NewScorer(conf.Scoring)
	if err != nil {
		return nil, err
	}

	snapshots, err := balancesnapshots.NewWALStore(BalanceDir(conf.WALDir))
	if err != nil {
		return nil, err
	}

	decisionStore, err := decisions.NewWALStore(DecisionsDir(conf.WALDir))
	if err != nil {
		_ = snapshots.Close()
		return nil, err
	}

	r := retrier.New(retrier.DefaultPolicy(),
		retrier.WithRetryIf(collector.Retryable),
		retrier.WithWaitFor(collector.RateLimitWait),
		retrier.WithOnRetry(func(attempt int, err error) {
			logger.Warn("retrying exchange call", zap.Int("attempt", attempt), zap.Error(err))
		}),
	)

	marketCollector := collector.NewCollector(provider.Exchange(), collector.Options{
		Quote:       conf.Quote,
		Interval:    conf.KlineInterval,
		Limit:       conf.KlineLimit,
		Concurrency: conf.FetchConcurrency,
	}, r, logger.Named("collector"))

	return &TradingBot{
		cfg:        conf,
		collector:  marketCollector,
		wallet:     wallet.NewService(provider.Balances(), snapshots, conf.Quote, logger.Named("wallet")),
		indicators: indicators.Calculate,
		engine:     ranking.NewEngine(scorer, conf.Thresholds, logger.Named("ranking")),
		sizer: sizing.NewSizer(sizing.Protection{
			Enabled:       conf.ProtectBuys,
			Trailing:      conf.TrailingStop,
			TakeProfitBps: conf.TakeProfitBps,
			StopLossBps:   conf.StopLossBps,
		}),
		trader:    provider.Trader(),
		decisions: decisionStore,
		metrics:   metrics,
		logger:    logger,
		closers:   []func() error{decisionStore.Close, snapshots.Close},
	}, nil
}
