// Package utilization computes a Gaussian-weighted composite utilization
// score from recent debit activity against an inferred paycheck (spec.md §4.2).
package utilization

import (
	"math"
	"sort"
	"time"

	"github.com/geraldco/bnpl-decision-gateway/internal/feature"
	txdomain "github.com/geraldco/bnpl-decision-gateway/internal/transaction/domain"
)

// The asymmetric Gaussian sigma pairs used at scoring time. These are fixed
// per spec.md §4.2. The UTIL_SIGMA/BURN_SIGMA values loaded by
// internal/config are not passed to the analyzer and have no effect here.
const (
	utilSigmaLeft, utilSigmaRight = 0.5, 0.25
	burnSigmaLeft, burnSigmaRight = 10.0, 30.0
)

// Label buckets the composite score into a risk category.
type Label string

const (
	LabelHealthy      Label = "healthy"
	LabelMediumRisk   Label = "medium-risk"
	LabelHighRisk     Label = "high-risk"
	LabelVeryHighRisk Label = "very-high-risk"
	LabelCriticalRisk Label = "critical-risk"
	LabelUnknown      Label = "unknown"
)

// PaycheckInfo describes an inferred recurring paycheck.
type PaycheckInfo struct {
	AvgPaycheckCents int64
	PeriodDays       int
	Confidence       float64
}

// Config holds the weighted Gaussian parameters. Weights must sum to 1.0
// (checked at construction, producing ConfigInvalid per spec.md §7).
type Config struct {
	UtilMu, UtilWeight    float64
	BurnMu, BurnWeight    float64
	SpendMu, SpendSigma, SpendWeight float64
	LabelHealthy, LabelMedium, LabelHigh, LabelVeryHigh float64
}

// ErrConfigInvalid signals weights that do not sum to 1.0 (±0.01).
type ErrConfigInvalid struct{ Sum float64 }

func (e *ErrConfigInvalid) Error() string {
	return "config_invalid: utilization weights must sum to 1.0"
}

// NewConfig validates cfg's weights and returns it, or ErrConfigInvalid.
func NewConfig(cfg Config) (Config, error) {
	sum := cfg.UtilWeight + cfg.BurnWeight + cfg.SpendWeight
	if diff := sum - 1.0; diff > 0.01 || diff < -0.01 {
		return Config{}, &ErrConfigInvalid{Sum: sum}
	}
	return cfg, nil
}

// Result is the utilization analysis outcome.
type Result struct {
	UtilizationPct    *float64
	AvgDailySpendCents *int64
	BurnDays          *float64
	Label             Label
	CompositeScore    float64
	CycleStart        time.Time
	CycleEnd          time.Time
}

// Analyze computes the utilization Result for the given normalized
// transactions and inferred paycheck.
func Analyze(cfg Config, txs []txdomain.Transaction, pc PaycheckInfo) Result {
	if pc.Confidence < 0.3 || pc.AvgPaycheckCents == 0 || pc.PeriodDays == 0 {
		return emptyResult()
	}
	if len(txs) == 0 {
		return emptyResult()
	}

	sorted := make([]txdomain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return truncateToDay(sorted[i].Date).Before(truncateToDay(sorted[j].Date))
	})
	txs = sorted

	lastDay := truncateToDay(txs[len(txs)-1].Date)
	cycleStart := lastDay.AddDate(0, 0, -pc.PeriodDays)

	var totalDebits int64
	for _, t := range txs {
		d := truncateToDay(t.Date)
		if t.Type == txdomain.TransactionDebit && !d.Before(cycleStart) {
			totalDebits += t.AmountCents
		}
	}

	var utilization *float64
	if pc.AvgPaycheckCents > 0 {
		u := float64(totalDebits) / float64(pc.AvgPaycheckCents)
		utilization = &u
	}

	daysInCycle := int(lastDay.Sub(cycleStart).Hours() / 24)
	if daysInCycle < 1 {
		daysInCycle = 1
	}
	avgDailySpend := float64(totalDebits) / float64(daysInCycle)

	var burnDays *float64
	if avgDailySpend > 0 {
		b := float64(pc.AvgPaycheckCents) / avgDailySpend
		burnDays = &b
	}

	var dailySpendRatio float64
	if pc.AvgPaycheckCents > 0 {
		dailySpendRatio = avgDailySpend / float64(pc.AvgPaycheckCents)
	}

	utilScore := asymmetricGaussian(derefOrZero(utilization), cfg.UtilMu, utilSigmaLeft, utilSigmaRight)
	burnScore := asymmetricGaussian(derefOrZero(burnDays), cfg.BurnMu, burnSigmaLeft, burnSigmaRight)
	spendScore := gaussian(dailySpendRatio, cfg.SpendMu, cfg.SpendSigma)

	composite := 100.0 * (cfg.UtilWeight*utilScore + cfg.BurnWeight*burnScore + cfg.SpendWeight*spendScore)

	label := LabelUnknown
	if utilization != nil {
		label = scoreToLabel(cfg, composite)
	}

	avgDailySpendCents := int64(avgDailySpend)

	return Result{
		UtilizationPct:     utilization,
		AvgDailySpendCents: &avgDailySpendCents,
		BurnDays:           burnDays,
		Label:              label,
		CompositeScore:     composite,
		CycleStart:         cycleStart,
		CycleEnd:           lastDay,
	}
}

// InferPaycheck derives a PaycheckInfo from extracted Features. No recurring-
// deposit detector is specified, so this treats MonthlyIncomeCents over a
// fixed 30-day period as the paycheck estimate, with low confidence when no
// income was observed at all.
func InferPaycheck(f feature.Features) PaycheckInfo {
	if f.MonthlyIncomeCents <= 0 {
		return PaycheckInfo{AvgPaycheckCents: 300_000, PeriodDays: 30, Confidence: 0}
	}
	return PaycheckInfo{AvgPaycheckCents: int64(f.MonthlyIncomeCents), PeriodDays: 30, Confidence: 0.8}
}

func emptyResult() Result {
	return Result{Label: LabelUnknown, CompositeScore: 0}
}

// scoreToLabel applies non-strict thresholds, first match wins.
func scoreToLabel(cfg Config, score float64) Label {
	switch {
	case score >= cfg.LabelHealthy:
		return LabelHealthy
	case score >= cfg.LabelMedium:
		return LabelMediumRisk
	case score >= cfg.LabelHigh:
		return LabelHighRisk
	case score >= cfg.LabelVeryHigh:
		return LabelVeryHighRisk
	default:
		return LabelCriticalRisk
	}
}

func gaussian(value, mu, sigma float64) float64 {
	exponent := -((value - mu) * (value - mu)) / (2 * sigma * sigma)
	return math.Exp(exponent)
}

func asymmetricGaussian(value, mu, sigmaLeft, sigmaRight float64) float64 {
	sigma := sigmaLeft
	if value > mu {
		sigma = sigmaRight
	}
	exponent := -((value - mu) * (value - mu)) / (2 * sigma * sigma)
	return math.Exp(exponent)
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
