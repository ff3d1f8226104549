package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/config"
	"github.com/vadiminshakov/coinrank/internal/domain"
	"github.com/vadiminshakov/coinrank/internal/instrumentation"
	"github.com/vadiminshakov/coinrank/internal/services/market/collector"
	"github.com/vadiminshakov/coinrank/internal/services/ranking"
)

// Processing stages, used in logs, metric labels and decision events.
const (
	StageMarket     = "market"
	StageIndicators = "indicators"
	StageScoring    = "scoring"
	StageDecision   = "decision"
	StageSizing     = "sizing"
	StageOrder      = "order"
)

type marketCollector interface {
	Collect(ctx context.Context, coins []string) (collector.Result, error)
}

type walletService interface {
	Load(ctx context.Context) (domain.Wallet, error)
	Snapshot(wallet domain.Wallet, prices map[string]decimal.Decimal) (domain.WalletSnapshot, error)
}

type decisionEngine interface {
	Evaluate(entries []ranking.Entry, wallet domain.Wallet) ([]domain.ScoredCoin, []ranking.Exclusion)
}

type intentBuilder interface {
	BuildBuyIntent(md domain.MarketData, budget decimal.Decimal) (domain.OrderIntent, error)
	BuildSellIntent(md domain.MarketData, budget, available decimal.Decimal) (domain.OrderIntent, error)
}

type orderExecutor interface {
	Execute(ctx context.Context, intent domain.OrderIntent) (domain.OrderConfirmation, error)
	CancelOpenOrders(ctx context.Context, pair domain.Pair) error
}

type decisionRecorder interface {
	Save(event domain.DecisionEvent) error
}

type indicatorFunc func(candles []domain.Candle) (domain.IndicatorSnapshot, error)

// CoinFailure a coin dropped from the cycle.
type CoinFailure struct {
	Coin  string
	Stage string
	Err   error
}

// OrderOutcome an order placed in the cycle. Err is set for failed orders and
// for buys whose protective orders were not placed.
type OrderOutcome struct {
	Intent       domain.OrderIntent
	Confirmation domain.OrderConfirmation
	Err          error
}

// CycleReport what a single decision cycle did.
type CycleReport struct {
	CycleID  string
	Started  time.Time
	Duration time.Duration
	Ranked   []domain.ScoredCoin
	Failures []CoinFailure
	Orders   []OrderOutcome
	Snapshot *domain.WalletSnapshot
}

// TradingBot runs decision cycles over the configured coins.
type TradingBot struct {
	cfg        config.Config
	collector  marketCollector
	wallet     walletService
	indicators indicatorFunc
	engine     decisionEngine
	sizer      intentBuilder
	trader     orderExecutor
	decisions  decisionRecorder
	metrics    *instrumentation.Metrics
	logger     *zap.Logger
	closers    []func() error
}

// Close releases the bot's stores.
func (b *TradingBot) Close() error {
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run executes a cycle immediately and then every poll interval until ctx is done.
// With a zero poll interval it runs a single cycle.
func (b *TradingBot) Run(ctx context.Context) error {
	if b.cfg.PollInterval <= 0 {
		_, err := b.RunCycle(ctx)
		return err
	}

	b.logger.Info("Starting trading loop",
		zap.Strings("coins", b.cfg.Coins),
		zap.Duration("poll_interval", b.cfg.PollInterval))

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := b.RunCycle(ctx); err != nil {
			b.logger.Error("Decision cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			b.logger.Info("Context done, stopping trading bot run loop.")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle loads the wallet, collects market data, scores and ranks the coins,
// then places sells followed by buys. A coin failing at any stage is logged and
// skipped; only wallet or exchange-wide failures abort the cycle.
func (b *TradingBot) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{CycleID: uuid.NewString(), Started: time.Now()}
	logger := b.logger.With(zap.String("cycle", report.CycleID))
	defer func() {
		report.Duration = time.Since(report.Started)
		b.metrics.RecordCycle(report.Duration)
	}()

	wallet, err := b.wallet.Load(ctx)
	if err != nil {
		return report, errors.Wrap(err, "failed to load wallet")
	}

	result, err := b.collector.Collect(ctx, b.cfg.Coins)
	if err != nil {
		return report, errors.Wrap(err, "failed to collect market data")
	}
	for _, f := range result.Failures {
		b.fail(logger, &report, f.Coin, StageMarket, f.Err)
	}

	markets := make(map[string]domain.MarketData, len(result.Data))
	entries := make([]ranking.Entry, 0, len(result.Data))
	for _, md := range result.Data {
		snap, err := b.indicators(md.Candles)
		if err != nil {
			b.fail(logger, &report, md.Coin, StageIndicators, err)
			continue
		}
		markets[md.Coin] = md
		entries = append(entries, ranking.Entry{Coin: md.Coin, Snapshot: snap})
	}

	ranked, excluded := b.engine.Evaluate(entries, wallet)
	for _, ex := range excluded {
		b.fail(logger, &report, ex.Coin, StageScoring, ex.Err)
	}
	report.Ranked = ranked

	for i, sc := range ranked {
		b.metrics.RecordScore(sc.Coin, sc.Score)
		logger.Info("coin ranked",
			zap.Int("rank", i+1),
			zap.String("coin", sc.Coin),
			zap.Float64("score", sc.Score),
			zap.String("action", sc.Action.String()))
		b.record(logger, domain.DecisionEvent{
			CycleID: report.CycleID,
			Coin:    sc.Coin,
			Score:   sc.Score,
			Action:  sc.Action,
			Stage:   StageDecision,
		})
	}

	if snapshot, err := b.wallet.Snapshot(wallet, result.Prices()); err != nil {
		logger.Warn("failed to save wallet snapshot", zap.Error(err))
	} else {
		report.Snapshot = &snapshot
		logger.Info("wallet valued",
			zap.String("quote", snapshot.Quote),
			zap.String("total", snapshot.TotalValue.String()))
	}

	quoteFree := wallet.Free(b.cfg.Quote)

	for _, sc := range ranked {
		if sc.Action != domain.ActionSell {
			continue
		}
		// balance locked by protective orders is sellable once they are cancelled
		locked := wallet.Locked(sc.Coin)
		intent, err := b.sizer.BuildSellIntent(markets[sc.Coin], b.cfg.OrderValue, wallet.Free(sc.Coin).Add(locked))
		if err != nil {
			b.fail(logger, &report, sc.Coin, StageSizing, err)
			continue
		}
		if locked.IsPositive() {
			if err := b.trader.CancelOpenOrders(ctx, intent.Pair); err != nil {
				b.fail(logger, &report, sc.Coin, StageOrder, err)
				continue
			}
			logger.Info("protective orders cancelled before sell",
				zap.String("coin", sc.Coin),
				zap.String("released", locked.String()))
		}
		if outcome, ok := b.place(ctx, logger, &report, sc, intent); ok {
			quoteFree = quoteFree.Add(outcome.Confirmation.QuoteQuantity)
		}
	}

	buys := 0
	for _, sc := range ranked {
		if sc.Action != domain.ActionBuy {
			continue
		}
		if buys >= b.cfg.MaxBuysPerCycle {
			logger.Info("buy limit reached", zap.String("coin", sc.Coin), zap.Int("limit", b.cfg.MaxBuysPerCycle))
			break
		}
		if quoteFree.LessThan(b.cfg.OrderValue) {
			logger.Info("not enough quote balance to buy",
				zap.String("coin", sc.Coin),
				zap.String("free", quoteFree.String()),
				zap.String("order_value", b.cfg.OrderValue.String()))
			break
		}

		intent, err := b.sizer.BuildBuyIntent(markets[sc.Coin], b.cfg.OrderValue)
		if err != nil {
			b.fail(logger, &report, sc.Coin, StageSizing, err)
			continue
		}
		if outcome, ok := b.place(ctx, logger, &report, sc, intent); ok {
			buys++
			quoteFree = quoteFree.Sub(outcome.Confirmation.QuoteQuantity)
		}
	}

	logger.Info("cycle finished",
		zap.Int("ranked", len(report.Ranked)),
		zap.Int("failed", len(report.Failures)),
		zap.Int("orders", len(report.Orders)))

	return report, nil
}

// place executes intent. ok reports whether the market order filled, which is
// also the case when only its protective orders failed.
func (b *TradingBot) place(
	ctx context.Context,
	logger *zap.Logger,
	report *CycleReport,
	sc domain.ScoredCoin,
	intent domain.OrderIntent,
) (OrderOutcome, bool) {
	side := string(intent.Side)
	conf, err := b.trader.Execute(ctx, intent)
	outcome := OrderOutcome{Intent: intent, Confirmation: conf, Err: err}

	event := domain.DecisionEvent{
		CycleID:  report.CycleID,
		Coin:     sc.Coin,
		Score:    sc.Score,
		Action:   sc.Action,
		Stage:    StageOrder,
		Side:     side,
		Quantity: intent.Quantity.String(),
		Price:    intent.Price.String(),
		OrderID:  conf.OrderID,
	}

	var protection *domain.ProtectionError
	switch {
	case err == nil:
		b.metrics.RecordOrder(side, "filled")
		logger.Info("order placed", zap.String("coin", sc.Coin), zap.Stringer("intent", intent), zap.String("order_id", conf.OrderID))
	case errors.As(err, &protection):
		b.metrics.RecordOrder(side, "unprotected")
		b.metrics.RecordProtectionFailure()
		logger.Error("order filled without protective orders",
			zap.String("coin", sc.Coin),
			zap.String("order_id", protection.OrderID),
			zap.Error(err))
		event.ErrorKind = domain.ErrorKind(err)
		event.Error = err.Error()
	default:
		b.metrics.RecordOrder(side, "failed")
		b.metrics.RecordCoinFailure(StageOrder, domain.ErrorKind(err))
		logger.Warn("order failed", zap.String("coin", sc.Coin), zap.Stringer("intent", intent), zap.Error(err))
		event.ErrorKind = domain.ErrorKind(err)
		event.Error = err.Error()
		report.Failures = append(report.Failures, CoinFailure{Coin: sc.Coin, Stage: StageOrder, Err: err})
	}

	b.record(logger, event)
	report.Orders = append(report.Orders, outcome)

	return outcome, err == nil || protection != nil
}

func (b *TradingBot) fail(logger *zap.Logger, report *CycleReport, coin, stage string, err error) {
	kind := domain.ErrorKind(err)
	logger.Warn("coin skipped",
		zap.String("coin", coin),
		zap.String("stage", stage),
		zap.String("kind", kind),
		zap.Error(err))
	b.metrics.RecordCoinFailure(stage, kind)
	b.record(logger, domain.DecisionEvent{
		CycleID:   report.CycleID,
		Coin:      coin,
		Stage:     stage,
		ErrorKind: kind,
		Error:     err.Error(),
	})
	report.Failures = append(report.Failures, CoinFailure{Coin: coin, Stage: stage, Err: err})
}

func (b *TradingBot) record(logger *zap.Logger, event domain.DecisionEvent) {
	if b.decisions == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := b.decisions.Save(event); err != nil {
		logger.Warn("failed to record decision", zap.String("coin", event.Coin), zap.Error(err))
	}
}
