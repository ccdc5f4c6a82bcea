// Package risk composes feature, utilization, payback, and cooldown signals
// into a final score and tier decision (spec.md §4.5).
package risk

import "fmt"

// Config holds the risk engine's weights, penalties, and tier policy.
// Constructed once at start-up; weights not summing to 1 fail fast
// (ConfigInvalid per spec.md §7).
type Config struct {
	BalanceWeight, IncomeSpendWeight, NSFWeight float64
	BalanceNegCap                               float64
	NSFPenalty                                  float64
	PaybackPenalty                              float64
	UtilPenaltyHigh, UtilPenaltyMedium          float64

	TierALimit, TierBLimit, TierCLimit, TierDLimit int64
	TierAMinScore, TierBMinScore, TierCMinScore    float64
}

// ErrConfigInvalid signals risk weights that do not sum to 1.0 (±0.01).
type ErrConfigInvalid struct{ Sum float64 }

func (e *ErrConfigInvalid) Error() string {
	return fmt.Sprintf("config_invalid: risk weights must sum to 1.0 (±0.01), got %v", e.Sum)
}

// NewConfig validates cfg's weights.
func NewConfig(cfg Config) (Config, error) {
	sum := cfg.BalanceWeight + cfg.IncomeSpendWeight + cfg.NSFWeight
	if diff := sum - 1.0; diff > 0.01 || diff < -0.01 {
		return Config{}, &ErrConfigInvalid{Sum: sum}
	}
	return cfg, nil
}
