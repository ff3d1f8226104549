// Package ranking orders scored coins and maps scores to trading actions.
package ranking

import (
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// Thresholds score boundaries for selling and buying. Sell must be below Buy.
type Thresholds struct {
	Sell float64
	Buy  float64
}

// DefaultThresholds sell under 30, buy over 70.
func DefaultThresholds() Thresholds {
	return Thresholds{Sell: 30, Buy: 70}
}

// Validate reports inverted thresholds.
func (t Thresholds) Validate() error {
	if t.Sell >= t.Buy {
		return &domain.InvertedThresholdsError{Sell: t.Sell, Buy: t.Buy}
	}
	return nil
}

// Decide maps a score to an action. Scores strictly below Sell sell held
// coins, strictly above Buy buy regardless of holdings.
func Decide(t Thresholds, score float64, held bool) domain.Action {
	switch {
	case score < t.Sell:
		if held {
			return domain.ActionSell
		}
		return domain.ActionDoNotBuy
	case score > t.Buy:
		return domain.ActionBuy
	case held:
		return domain.ActionHold
	default:
		return domain.ActionDoNotBuy
	}
}

// Candidate a coin with its composite score, in input order.
type Candidate struct {
	Coin  string
	Score float64
}

// Rank sorts candidates by score, highest first. Equal scores keep input order.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

type scoreCalculator interface {
	CalculateScore(snap domain.IndicatorSnapshot) (float64, error)
}

// Entry indicators of one coin, passed in a deterministic order.
type Entry struct {
	Coin     string
	Snapshot domain.IndicatorSnapshot
}

// Exclusion a coin left out of ranking and why.
type Exclusion struct {
	Coin string
	Err  error
}

// Engine scores, ranks and decides.
type Engine struct {
	scorer     scoreCalculator
	thresholds Thresholds
	logger     *zap.Logger
}

// NewEngine creates an Engine. Inverted thresholds are logged, not rejected:
// the engine keeps working and every coin ends up selling, skipped or bought.
func NewEngine(scorer scoreCalculator, thresholds Thresholds, logger *zap.Logger) *Engine {
	if err := thresholds.Validate(); err != nil {
		logger.Warn("decision thresholds are inverted",
			zap.Float64("sell", thresholds.Sell),
			zap.Float64("buy", thresholds.Buy),
			zap.Error(err))
	}

	return &Engine{
		scorer:     scorer,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Thresholds returns the thresholds in use.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Decide maps a coin's score to an action given the current wallet.
func (e *Engine) Decide(coin string, score float64, wallet domain.Wallet) domain.Action {
	return Decide(e.thresholds, score, wallet.Holds(coin))
}

// Evaluate scores every entry, ranks the ones that scored and attaches actions.
// Coins that cannot be scored are returned as exclusions instead of being zero-filled.
func (e *Engine) Evaluate(entries []Entry, wallet domain.Wallet) ([]domain.ScoredCoin, []Exclusion) {
	var (
		candidates = make([]Candidate, 0, len(entries))
		excluded   []Exclusion
	)

	for _, entry := range entries {
		score, err := e.scorer.CalculateScore(entry.Snapshot)
		if err != nil {
			excluded = append(excluded, Exclusion{Coin: entry.Coin, Err: err})
			continue
		}
		candidates = append(candidates, Candidate{Coin: entry.Coin, Score: score})
	}

	ranked := lo.Map(Rank(candidates), func(c Candidate, _ int) domain.ScoredCoin {
		return domain.ScoredCoin{
			Coin:   c.Coin,
			Score:  c.Score,
			Action: e.Decide(c.Coin, c.Score, wallet),
		}
	})

	return ranked, excluded
}
