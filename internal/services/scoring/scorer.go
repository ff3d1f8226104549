package scoring

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// DefaultBonus magnitude for boolean and categorical terms.
const DefaultBonus = 8.0

// Config scoring setup. Formulas are averaged with equal weight.
type Config struct {
	Formulas []Formula
	Bonus    float64
	Params   map[Formula]Params
}

// DefaultParams hand-tuned constants for every formula.
func DefaultParams() map[Formula]Params {
	return map[Formula]Params{
		FormulaRSIMACD: {
			Weights:    map[Term]float64{TermRSI: 1.2, TermSMA: -1.8, TermMACDHistogram: 2.5},
			Normalizer: 1.5,
		},
		FormulaRSISMA: {
			Weights:    map[Term]float64{TermRSI: 1.7, TermSMA: -2.5},
			Normalizer: 2,
		},
		FormulaSMAHeavy: {
			Weights:    map[Term]float64{TermSMA: -3.5, TermRSI: 0.8},
			Normalizer: 2,
		},
		FormulaVolatility: {
			Weights:    map[Term]float64{TermATR: -0.8, TermSMA: -1.5, TermBollingerWidth: 0.7},
			Normalizer: 2,
		},
		FormulaEMAStochastic: {
			Weights:    map[Term]float64{TermEMA: 0.8, TermRSI: 1.5, TermATR: -0.7},
			Normalizer: 1.8,
		},
		FormulaDeviation: {
			Weights:    map[Term]float64{TermSMADeviation: -1.8, TermBollingerDeviation: -2.7, TermRSI: 1.3},
			Normalizer: 1.8,
		},
		FormulaMarketCondition: {
			Weights:    map[Term]float64{TermRSI: 1.8, TermATR: -0.8, TermSMA: -0.8, TermConditionPivot: 1.8},
			Normalizer: 2,
		},
	}
}

// DefaultConfig all formulas with default params.
func DefaultConfig() Config {
	return Config{
		Formulas: AllFormulas(),
		Bonus:    DefaultBonus,
		Params:   DefaultParams(),
	}
}

// Validate checks every enabled formula has a positive normalizer and only known terms.
func (c Config) Validate() error {
	if len(c.Formulas) == 0 {
		return errors.New("at least one scoring formula must be enabled")
	}
	if dup := lo.FindDuplicates(c.Formulas); len(dup) > 0 {
		return fmt.Errorf("scoring formula %s is enabled twice", dup[0])
	}
	if c.Bonus < 0 {
		return fmt.Errorf("scoring bonus must not be negative, got %v", c.Bonus)
	}

	for _, f := range c.Formulas {
		if _, ok := formulaNames[f]; !ok {
			return fmt.Errorf("unknown scoring formula %d", int(f))
		}
		p, ok := c.Params[f]
		if !ok {
			return fmt.Errorf("no params for scoring formula %s", f)
		}
		if p.Normalizer <= 0 {
			return fmt.Errorf("normalizer of scoring formula %s must be positive, got %v", f, p.Normalizer)
		}
		known := f.Terms()
		for term := range p.Weights {
			if !lo.Contains(known, term) {
				return fmt.Errorf("scoring formula %s has no term %q", f, term)
			}
		}
	}

	return nil
}

// Scorer computes composite scores.
type Scorer struct {
	cfg Config
}

// NewScorer validates cfg and creates a Scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scoring config")
	}
	return &Scorer{cfg: cfg}, nil
}

// Formulas returns the enabled formulas.
func (s *Scorer) Formulas() []Formula {
	return s.cfg.Formulas
}

// Score evaluates a single formula.
func (s *Scorer) Score(f Formula, snap domain.IndicatorSnapshot) (float64, error) {
	p, ok := s.cfg.Params[f]
	if !ok {
		return 0, fmt.Errorf("scoring formula %s is not configured", f)
	}
	return f.Score(snap, p, s.cfg.Bonus)
}

// CalculateScore is the unweighted mean of all enabled formulas.
// Any missing indicator fails the whole score.
func (s *Scorer) CalculateScore(snap domain.IndicatorSnapshot) (float64, error) {
	var sum float64
	for _, f := range s.cfg.Formulas {
		v, err := s.Score(f, snap)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to score with %s", f)
		}
		sum += v
	}

	return sum / float64(len(s.cfg.Formulas)), nil
}
