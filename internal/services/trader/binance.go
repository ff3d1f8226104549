package trader

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/internal/domain"
	"github.com/vadiminshakov/coinrank/internal/services/sizing"
)

const (
	binanceMarketClientPrefix     = "coinrank-mk-"
	binanceProtectionListPrefix   = "coinrank-oco-"
	binanceStopLossClientPrefix   = "coinrank-sl-"
	binanceTakeProfitClientPrefix = "coinrank-tp-"

	// Binance rejects newClientOrderId longer than this
	maxClientOrderIDLen = 36

	// returned by cancel when the symbol has no open orders
	codeUnknownOrder = -2011
)

// OrderRequest parameters of a single spot order.
type OrderRequest struct {
	Symbol        string
	Side          binance.SideType
	Type          binance.OrderType
	Quantity      string
	StopPrice     string
	TrailingDelta string
	ClientOrderID string
}

// OCORequest parameters of a one-cancels-the-other pair: a limit maker leg at
// TakeProfitPrice and a stop loss leg triggered at StopPrice, sharing Quantity.
type OCORequest struct {
	Symbol                  string
	Side                    binance.SideType
	Quantity                string
	TakeProfitPrice         string
	StopPrice               string
	ListClientOrderID       string
	TakeProfitClientOrderID string
	StopClientOrderID       string
}

type orderPlacer interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*binance.CreateOrderResponse, error)
	PlaceOCO(ctx context.Context, req OCORequest) (*binance.CreateOCOResponse, error)
	CancelOpenOrders(ctx context.Context, symbol string) error
}

type balanceReader interface {
	Balances(ctx context.Context) ([]domain.Balance, error)
}

// BinanceOrders places spot orders through the Binance REST API.
type BinanceOrders struct {
	client *binance.Client
}

// NewBinanceOrders creates a BinanceOrders.
func NewBinanceOrders(client *binance.Client) *BinanceOrders {
	return &BinanceOrders{client: client}
}

// PlaceOrder submits req.
func (o *BinanceOrders) PlaceOrder(ctx context.Context, req OrderRequest) (*binance.CreateOrderResponse, error) {
	svc := o.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(req.Side).
		Type(req.Type).
		Quantity(req.Quantity).
		NewClientOrderID(req.ClientOrderID)
	if req.StopPrice != "" {
		svc = svc.StopPrice(req.StopPrice)
	}
	if req.TrailingDelta != "" {
		svc = svc.TrailingDelta(req.TrailingDelta)
	}
	return svc.Do(ctx)
}

// PlaceOCO submits req as a single order list. Without a stop limit price the
// stop leg is a STOP_LOSS market order.
func (o *BinanceOrders) PlaceOCO(ctx context.Context, req OCORequest) (*binance.CreateOCOResponse, error) {
	return o.client.NewCreateOCOService().
		Symbol(req.Symbol).
		Side(req.Side).
		Quantity(req.Quantity).
		Price(req.TakeProfitPrice).
		StopPrice(req.StopPrice).
		ListClientOrderID(req.ListClientOrderID).
		LimitClientOrderID(req.TakeProfitClientOrderID).
		StopClientOrderID(req.StopClientOrderID).
		Do(ctx)
}

// CancelOpenOrders cancels every open order and order list on symbol.
// A symbol without open orders is not an error.
func (o *BinanceOrders) CancelOpenOrders(ctx context.Context, symbol string) error {
	_, err := o.client.NewCancelOpenOrdersService().Symbol(symbol).Do(ctx)
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeUnknownOrder {
		return nil
	}
	return err
}

// BinanceTrader executes order intents on Binance spot.
type BinanceTrader struct {
	orders   orderPlacer
	balances balanceReader
	logger   *zap.Logger
	now      func() time.Time
}

// NewBinanceTrader creates a BinanceTrader. balances is read after a buy fills
// to size its protective orders.
func NewBinanceTrader(orders orderPlacer, balances balanceReader, logger *zap.Logger) *BinanceTrader {
	return &BinanceTrader{orders: orders, balances: balances, logger: logger, now: time.Now}
}

// Execute places a market order for intent. Buys carrying trigger prices are
// followed by protective sell orders; a failure there is returned as
// *domain.ProtectionError since the market order is already filled.
func (t *BinanceTrader) Execute(ctx context.Context, intent domain.OrderIntent) (domain.OrderConfirmation, error) {
	side := binance.SideTypeBuy
	if intent.Side == domain.SideSell {
		side = binance.SideTypeSell
	}

	clientOrderID := newClientOrderID(binanceMarketClientPrefix)
	resp, err := t.orders.PlaceOrder(ctx, OrderRequest{
		Symbol:        intent.Pair.Symbol(),
		Side:          side,
		Type:          binance.OrderTypeMarket,
		Quantity:      intent.Quantity.String(),
		ClientOrderID: clientOrderID,
	})
	if err != nil {
		return domain.OrderConfirmation{}, errors.Wrapf(err, "failed to place binance %s order for %s", intent.Side, intent.Coin)
	}

	confirmation := domain.OrderConfirmation{
		OrderID:          strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID:    clientOrderID,
		Side:             intent.Side,
		ExecutedQuantity: parseOrDefault(resp.ExecutedQuantity, intent.Quantity),
		QuoteQuantity:    parseOrDefault(resp.CummulativeQuoteQuantity, intent.Notional()),
		Timestamp:        t.now(),
	}
	if resp.TransactTime > 0 {
		confirmation.Timestamp = time.UnixMilli(resp.TransactTime)
	}

	t.logger.Info("binance order filled",
		zap.String("coin", intent.Coin),
		zap.String("side", string(intent.Side)),
		zap.String("order_id", confirmation.OrderID),
		zap.String("executed", confirmation.ExecutedQuantity.String()),
		zap.String("quote", confirmation.QuoteQuantity.String()))

	if !intent.HasProtection() {
		return confirmation, nil
	}

	if err := t.protect(ctx, intent, &confirmation); err != nil {
		return confirmation, &domain.ProtectionError{Coin: intent.Coin, OrderID: confirmation.OrderID, Err: err}
	}

	return confirmation, nil
}

// CancelOpenOrders cancels the open orders on pair, releasing the balance they lock.
func (t *BinanceTrader) CancelOpenOrders(ctx context.Context, pair domain.Pair) error {
	if err := t.orders.CancelOpenOrders(ctx, pair.Symbol()); err != nil {
		return errors.Wrapf(err, "failed to cancel open orders on %s", pair.Symbol())
	}
	t.logger.Info("open orders cancelled", zap.String("symbol", pair.Symbol()))
	return nil
}

// protect places the take profit and stop loss as one OCO list. A trailing stop
// cannot be part of the list and is placed alone.
func (t *BinanceTrader) protect(ctx context.Context, intent domain.OrderIntent, confirmation *domain.OrderConfirmation) error {
	quantity, err := t.protectedQuantity(ctx, intent, confirmation.ExecutedQuantity)
	if err != nil {
		return err
	}

	if intent.TrailingDeltaBps != nil {
		id, err := t.placeTrailingStop(ctx, intent, quantity)
		if err != nil {
			return err
		}
		confirmation.StopLossOrderID = id
		return nil
	}

	req := OCORequest{
		Symbol:                  intent.Pair.Symbol(),
		Side:                    binance.SideTypeSell,
		Quantity:                quantity.String(),
		TakeProfitPrice:         intent.Triggers.TakeProfitText,
		StopPrice:               intent.Triggers.StopLossText,
		ListClientOrderID:       newClientOrderID(binanceProtectionListPrefix),
		TakeProfitClientOrderID: newClientOrderID(binanceTakeProfitClientPrefix),
		StopClientOrderID:       newClientOrderID(binanceStopLossClientPrefix),
	}
	resp, err := t.orders.PlaceOCO(ctx, req)
	if err != nil {
		return errors.Wrap(err, "failed to place binance OCO order")
	}

	confirmation.ProtectionListID = strconv.FormatInt(resp.OrderListID, 10)
	for _, o := range resp.Orders {
		switch o.ClientOrderID {
		case req.TakeProfitClientOrderID:
			confirmation.TakeProfitOrderID = strconv.FormatInt(o.OrderID, 10)
		case req.StopClientOrderID:
			confirmation.StopLossOrderID = strconv.FormatInt(o.OrderID, 10)
		}
	}

	t.logger.Info("protective orders placed",
		zap.String("symbol", req.Symbol),
		zap.String("quantity", req.Quantity),
		zap.String("take_profit", req.TakeProfitPrice),
		zap.String("stop_loss", req.StopPrice),
		zap.Int64("order_list_id", resp.OrderListID))

	return nil
}

// protectedQuantity is the executed quantity capped by the free base balance
// and floored to the lot step. A commission paid in the base asset leaves less
// free than was executed.
func (t *BinanceTrader) protectedQuantity(ctx context.Context, intent domain.OrderIntent, executed decimal.Decimal) (decimal.Decimal, error) {
	quantity := executed
	if !quantity.IsPositive() {
		quantity = intent.Quantity
	}

	balances, err := t.balances.Balances(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read balance for protective orders")
	}
	free := domain.NewWallet(balances).Free(intent.Pair.From)
	quantity = decimal.Min(quantity, free)

	if intent.StepSize.IsPositive() {
		if quantity, err = sizing.FloorToStep(quantity, intent.StepSize); err != nil {
			return decimal.Zero, err
		}
	}
	if !quantity.IsPositive() {
		return decimal.Zero, errors.Errorf("no free %s left to protect, executed %s", intent.Pair.From, executed)
	}

	return quantity, nil
}

func (t *BinanceTrader) placeTrailingStop(ctx context.Context, intent domain.OrderIntent, quantity decimal.Decimal) (string, error) {
	req := OrderRequest{
		Symbol:        intent.Pair.Symbol(),
		Side:          binance.SideTypeSell,
		Type:          binance.OrderTypeStopLoss,
		Quantity:      quantity.String(),
		TrailingDelta: intent.TrailingDeltaBps.StringFixed(0),
		ClientOrderID: newClientOrderID(binanceStopLossClientPrefix),
	}

	resp, err := t.orders.PlaceOrder(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "failed to place binance trailing stop order")
	}

	t.logger.Info("trailing stop placed",
		zap.String("symbol", req.Symbol),
		zap.String("quantity", req.Quantity),
		zap.String("trailing_delta", req.TrailingDelta),
		zap.Int64("order_id", resp.OrderID))

	return strconv.FormatInt(resp.OrderID, 10), nil
}

func newClientOrderID(prefix string) string {
	id := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > maxClientOrderIDLen {
		id = id[:maxClientOrderIDLen]
	}
	return id
}

func parseOrDefault(s string, fallback decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil || !v.IsPositive() {
		return fallback
	}
	return v
}
