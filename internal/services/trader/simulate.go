package trader

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// SimulateTrader is a spot simulator filling every order at the intent price.
// It also serves as the balance source in dry runs. Protective orders are not
// triggered, they only lock the bought quantity until cancelled.
type SimulateTrader struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	wallet  map[string]decimal.Decimal
	locked  map[string]decimal.Decimal
	orderID int64
	now     func() time.Time
}

// NewSimulateTrader creates a SimulateTrader holding quoteBalance of quote.
func NewSimulateTrader(quote string, quoteBalance decimal.Decimal, logger *zap.Logger) (*SimulateTrader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if quote == "" {
		return nil, errors.New("quote asset is required for SimulateTrader")
	}
	if quoteBalance.IsNegative() {
		return nil, fmt.Errorf("simulated %s balance must not be negative, got %s", quote, quoteBalance)
	}

	t := &SimulateTrader{
		logger: logger,
		wallet: map[string]decimal.Decimal{quote: quoteBalance},
		locked: make(map[string]decimal.Decimal),
		now:    time.Now,
	}
	logger.Info("simulate init", zap.String("quote", quote), zap.String("balance", quoteBalance.String()))

	return t, nil
}

// Execute fills intent against the simulated wallet.
func (t *SimulateTrader) Execute(ctx context.Context, intent domain.OrderIntent) (domain.OrderConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderConfirmation{}, err
	}
	if !intent.Quantity.IsPositive() {
		return domain.OrderConfirmation{}, fmt.Errorf("%s amount must be positive, got %s", intent.Side, intent.Quantity)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	base, quote := intent.Pair.From, intent.Pair.To
	notional := intent.Notional()

	switch intent.Side {
	case domain.SideBuy:
		if t.wallet[quote].LessThan(notional) {
			return domain.OrderConfirmation{}, errors.Errorf("insufficient %s balance: have %s need %s",
				quote, t.wallet[quote], notional)
		}
		t.wallet[quote] = t.wallet[quote].Sub(notional)
		t.wallet[base] = t.wallet[base].Add(intent.Quantity)
	case domain.SideSell:
		if t.wallet[base].LessThan(intent.Quantity) {
			return domain.OrderConfirmation{}, errors.Errorf("insufficient %s balance: have %s need %s",
				base, t.wallet[base], intent.Quantity)
		}
		t.wallet[base] = t.wallet[base].Sub(intent.Quantity)
		t.wallet[quote] = t.wallet[quote].Add(notional)
	default:
		return domain.OrderConfirmation{}, fmt.Errorf("unknown side: %s", intent.Side)
	}

	t.orderID++
	confirmation := domain.OrderConfirmation{
		OrderID:          strconv.FormatInt(t.orderID, 10),
		ClientOrderID:    "sim-" + strconv.FormatInt(t.orderID, 10),
		Side:             intent.Side,
		ExecutedQuantity: intent.Quantity,
		QuoteQuantity:    notional,
		Timestamp:        t.now(),
	}

	fields := []zap.Field{
		zap.String("id", confirmation.OrderID),
		zap.String("coin", intent.Coin),
		zap.String("side", string(intent.Side)),
		zap.String("amount", intent.Quantity.String()),
		zap.String("price", intent.Price.String()),
	}
	if intent.HasProtection() {
		t.wallet[base] = t.wallet[base].Sub(intent.Quantity)
		t.locked[base] = t.locked[base].Add(intent.Quantity)
		confirmation.ProtectionListID = "sim-oco-" + confirmation.OrderID
		confirmation.TakeProfitOrderID = "sim-tp-" + confirmation.OrderID
		confirmation.StopLossOrderID = "sim-sl-" + confirmation.OrderID
		fields = append(fields,
			zap.String("take_profit", intent.Triggers.TakeProfitText),
			zap.String("stop_loss", intent.Triggers.StopLossText))
	}
	t.logger.Info("Simulated order executed", fields...)

	return confirmation, nil
}

// CancelOpenOrders releases the base balance locked by protective orders on pair.
func (t *SimulateTrader) CancelOpenOrders(ctx context.Context, pair domain.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	released, ok := t.locked[pair.From]
	if !ok {
		return nil
	}
	t.wallet[pair.From] = t.wallet[pair.From].Add(released)
	delete(t.locked, pair.From)

	t.logger.Info("Simulated open orders cancelled",
		zap.String("symbol", pair.Symbol()),
		zap.String("released", released.String()))

	return nil
}

// Balances returns the simulated wallet, sorted by asset.
func (t *SimulateTrader) Balances(ctx context.Context) ([]domain.Balance, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	balances := make([]domain.Balance, 0, len(t.wallet)+len(t.locked))
	for asset, free := range t.wallet {
		balances = append(balances, domain.Balance{Asset: asset, Free: free, Locked: t.locked[asset]})
	}
	for asset, locked := range t.locked {
		if _, ok := t.wallet[asset]; !ok {
			balances = append(balances, domain.Balance{Asset: asset, Locked: locked})
		}
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Asset < balances[j].Asset })

	return balances, nil
}

// GetBalance returns the simulated balance of currency, free plus locked.
func (t *SimulateTrader) GetBalance(currency string) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.wallet[currency].Add(t.locked[currency])
}
