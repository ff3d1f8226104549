// Command coinrank scores a watch list of coins with technical indicators,
// ranks them and trades the extremes on Binance spot (or a local simulator).
//
// Usage:
//
//	coinrank --config config.yaml
//	coinrank --setup             (interactive wizard writing --config)
//	coinrank --history 20        (print recent decisions and exit)
//
// Required environment variables for live trading (dry_run: false):
//
//	BINANCE_API_KEY, BINANCE_API_SECRET
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/config"
	"github.com/vadiminshakov/coinrank/internal"
	"github.com/vadiminshakov/coinrank/internal/clients"
	"github.com/vadiminshakov/coinrank/internal/domain"
	"github.com/vadiminshakov/coinrank/internal/instrumentation"
	"github.com/vadiminshakov/coinrank/internal/setup"
	"github.com/vadiminshakov/coinrank/internal/storage/decisions"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if flags.Setup {
		if err := setup.RunTUI(flags.ConfigPath); err != nil {
			log.Fatal(err)
		}
	}

	if flags.History > 0 {
		if err := printHistory(flags.ConfigPath, flags.History); err != nil {
			log.Fatal(err)
		}
		return
	}

	conf, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)
	if conf.MetricsAddr != "" {
		go serveMetrics(conf.MetricsAddr, logger)
	}

	client := clients.NewExchangeClient(conf.DryRun, conf.Credentials.APIKey, conf.Credentials.APISecret, conf.SimulateQuoteBalance)

	bot, err := internal.NewTradingBot(conf, client, metrics, logger)
	if err != nil {
		logger.Fatal("failed to create trading bot", zap.Error(err))
	}
	defer func() {
		if err := bot.Close(); err != nil {
			logger.Warn("failed to close trading bot", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("coinrank started",
		zap.Strings("coins", conf.Coins),
		zap.String("quote", conf.Quote),
		zap.Bool("dry_run", conf.DryRun))

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("trading bot stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("metrics server starting", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}

func printHistory(configPath string, n int) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	conf, err := config.Parse(data)
	if err != nil {
		return err
	}

	store, err := decisions.NewWALStore(internal.DecisionsDir(conf.WALDir))
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.Recent(n)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		action, score := "", ""
		if e.Stage == internal.StageDecision || e.Stage == internal.StageOrder {
			action, score = e.Action.String(), fmt.Sprintf("%.2f", e.Score)
		}
		order := ""
		if e.Side != "" {
			order = fmt.Sprintf("%s %s @ %s %s", e.Side, e.Quantity, e.Price, e.OrderID)
		}
		rows = append(rows, []string{
			e.Timestamp.Format(time.RFC3339), e.Coin, e.Stage, action, score, order, errorText(e),
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "COIN", "STAGE", "ACTION", "SCORE", "ORDER", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err = fmt.Fprintln(os.Stdout, t.Render())
	return err
}

func errorText(e domain.DecisionEvent) string {
	if e.Error == "" {
		return ""
	}
	return e.ErrorKind + ": " + e.Error
}
