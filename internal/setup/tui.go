package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/coinrank/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	mode          string
	quote         string
	coins         string
	klineInterval string
	pollInterval  string
	orderValue    string
	maxBuys       string
	takeProfitBps string
	stopLossBps   string
	protect       bool
	trailing      bool
	sellThreshold string
	buyThreshold  string
}

func defaultAnswers() answers {
	return answers{
		mode:          "simulate",
		quote:         "USDT",
		coins:         "BTC,ETH,BNB,SOL",
		klineInterval: "1h",
		pollInterval:  "1h",
		orderValue:    "20",
		maxBuys:       "1",
		takeProfitBps: "500",
		stopLossBps:   "300",
		protect:       true,
		sellThreshold: "30",
		buyThreshold:  "70",
	}
}

func header(step string) {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("COINRANK CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("COINRANK CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Rank your coins, trade the extremes.\n"))

	fmt.Println(stepStyle.Render("STEP 1: MODE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should orders be placed?").
				Options(
					huh.NewOption("Simulation (dry run)", "simulate"),
					huh.NewOption("Binance (live)", "binance"),
				).
				Value(&a.mode),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 2: COINS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quote asset").
				Value(&a.quote).
				Validate(notEmpty("quote asset")),
			huh.NewInput().
				Title("Coins to rank").
				Description("Comma separated base assets (e.g. BTC,ETH,SOL)").
				Value(&a.coins).
				Validate(func(s string) error {
					if len(splitCoins(s)) == 0 {
						return fmt.Errorf("at least one coin is required")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 3: TIMING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Kline interval").
				Options(huh.NewOptions("15m", "30m", "1h", "4h", "1d")...).
				Value(&a.klineInterval),
			huh.NewInput().
				Title("Poll interval").
				Description("Duration string (e.g. 30m, 1h). 0 runs a single cycle").
				Value(&a.pollInterval).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 4: ORDERS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Order value").
				Description("Quote amount spent per buy (e.g. 20)").
				Value(&a.orderValue).
				Validate(positiveDecimal),
			huh.NewInput().
				Title("Max buys per cycle").
				Value(&a.maxBuys).
				Validate(nonNegativeInt),
			huh.NewConfirm().
				Title("Place take profit and stop loss after each buy?").
				Value(&a.protect),
			huh.NewInput().
				Title("Take profit, basis points").
				Description("500 = 5%").
				Value(&a.takeProfitBps).
				Validate(nonNegativeDecimal),
			huh.NewInput().
				Title("Stop loss, basis points").
				Description("300 = 3%").
				Value(&a.stopLossBps).
				Validate(nonNegativeDecimal),
			huh.NewConfirm().
				Title("Trail the stop loss?").
				Value(&a.trailing),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 5: THRESHOLDS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sell at or below score").
				Value(&a.sellThreshold),
			huh.NewInput().
				Title("Buy at or above score").
				Value(&a.buyThreshold),
		),
	).Run()
	if err != nil {
		return err
	}

	cfgTmp, err := buildConfig(a)
	if err != nil {
		return err
	}

	header("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Mode: %s\nCoins: %s/%s\nInterval: %s every %s\nOrder: %s %s, max %s per cycle\nThresholds: sell <= %s, buy >= %s\n",
		a.mode, strings.Join(cfgTmp.Coins, ","), cfgTmp.Quote, a.klineInterval, a.pollInterval,
		a.orderValue, cfgTmp.Quote, a.maxBuys, a.sellThreshold, a.buyThreshold,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	msg := fmt.Sprintf("\n✓ Configuration saved to %s\nStarting bot...", path)
	if a.mode == "binance" {
		msg += "\nBINANCE_API_KEY and BINANCE_API_SECRET must be set (environment or .env)."
	}
	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(msg))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

// buildConfig turns wizard answers into the yaml layout and checks it would load.
func buildConfig(a answers) (config.ConfigTmp, error) {
	pollInterval, err := time.ParseDuration(a.pollInterval)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid poll interval: %w", err)
	}
	maxBuys, err := strconv.Atoi(a.maxBuys)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid max buys per cycle: %w", err)
	}

	dryRun := a.mode != "binance"
	protect := a.protect

	tmp := config.ConfigTmp{
		Quote:           strings.ToUpper(strings.TrimSpace(a.quote)),
		Coins:           splitCoins(a.coins),
		KlineInterval:   a.klineInterval,
		PollInterval:    pollInterval,
		OrderValue:      a.orderValue,
		MaxBuysPerCycle: &maxBuys,
		TakeProfitBps:   a.takeProfitBps,
		StopLossBps:     a.stopLossBps,
		ProtectBuys:     &protect,
		TrailingStop:    a.trailing,
		SellThreshold:   a.sellThreshold,
		BuyThreshold:    a.buyThreshold,
		DryRun:          &dryRun,
	}

	cfg, err := config.FromTmp(tmp)
	if err != nil {
		return config.ConfigTmp{}, err
	}
	// credentials are read at startup, not stored
	cfg.DryRun = true
	if err := cfg.Validate(); err != nil {
		return config.ConfigTmp{}, err
	}

	return tmp, nil
}

func splitCoins(s string) []string {
	coins := lo.Map(strings.Split(s, ","), func(c string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(c))
	})
	return lo.Uniq(lo.Compact(coins))
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		return nil
	}
}

func positiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func nonNegativeDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
