package risk

import (
	"github.com/geraldco/bnpl-decision-gateway/internal/cooldown"
	"github.com/geraldco/bnpl-decision-gateway/internal/feature"
	"github.com/geraldco/bnpl-decision-gateway/internal/payback"
	"github.com/geraldco/bnpl-decision-gateway/internal/utilization"
)

// Tier is the discrete risk bucket that determines the credit limit.
type Tier string

const (
	TierA    Tier = "Tier A"
	TierB    Tier = "Tier B"
	TierC    Tier = "Tier C"
	TierD    Tier = "Tier D"
	TierDeny Tier = "Deny"
)

// ReasonCode enumerates the structured explainability events contributing
// to a decision, replacing the free-form "reasons" strings of the source
// implementation with a tagged record (spec.md §9).
type ReasonCode string

const (
	ReasonBalanceScore     ReasonCode = "balance_score"
	ReasonIncomeSpendScore ReasonCode = "income_spend_score"
	ReasonNSFScore         ReasonCode = "nsf_score"
	ReasonUtilPenalty      ReasonCode = "utilization_penalty"
	ReasonPaybackPenalty   ReasonCode = "payback_penalty"
	ReasonCooldown         ReasonCode = "cooldown_active"
	ReasonEmptyTransactions ReasonCode = "empty_transactions"
)

// Reason is one structured explainability event.
type Reason struct {
	Code    ReasonCode `json:"code"`
	Detail  string     `json:"detail"`
	Value   float64    `json:"value"`
}

// Factors is the structured explainability blob persisted alongside a
// Decision (spec.md §3 risk_factors).
type Factors struct {
	BalanceScore     float64              `json:"balance_score"`
	IncomeSpendScore float64              `json:"income_spend_score"`
	NSFScore         float64              `json:"nsf_score"`
	BaseScore        float64              `json:"base_score"`
	UtilPenalty      float64              `json:"util_penalty"`
	PaybackPenalty   float64              `json:"payback_penalty"`
	FinalScore       float64              `json:"final_score"`
	UtilLabel        utilization.Label    `json:"utilization_label"`
	PaybackLabel     payback.Label        `json:"payback_label"`
	InCooldown       bool                 `json:"in_cooldown"`
	Reasons          []Reason             `json:"reasons"`
}

// Outcome is the risk engine's final decision signal.
type Outcome struct {
	FinalScore float64
	Tier       Tier
	LimitCents int64
	Factors    Factors
}

// Inputs bundles the upstream signals the engine composes.
type Inputs struct {
	Features feature.Features
	Util     utilization.Result
	Payback  payback.Result
	Cooldown cooldown.Result
}

// clamp constrains x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Evaluate computes component scores, penalties, final score, and tier for
// in, per the authoritative policy table in spec.md §4.5.
func Evaluate(cfg Config, in Inputs) Outcome {
	balanceScore := balanceScore(cfg, in.Features.AvgDailyBalanceCents)
	incomeSpendScore := incomeSpendScore(in.Features.MonthlyIncomeCents, in.Features.MonthlySpendCents)
	nsfScore := nsfScore(cfg, in.Features.NSFCount)

	base := cfg.BalanceWeight*balanceScore + cfg.IncomeSpendWeight*incomeSpendScore + cfg.NSFWeight*nsfScore

	utilPenalty := 0.0
	switch in.Util.Label {
	case utilization.LabelHighRisk, utilization.LabelVeryHighRisk, utilization.LabelCriticalRisk:
		utilPenalty = cfg.UtilPenaltyHigh
	case utilization.LabelMediumRisk:
		utilPenalty = cfg.UtilPenaltyMedium
	}

	paybackPenalty := 0.0
	if in.Payback.Label == payback.LabelNegative {
		paybackPenalty = cfg.PaybackPenalty
	}

	finalScore := clamp(base-utilPenalty-paybackPenalty, 0, 100)

	tier, limit := selectTier(cfg, in, finalScore)

	reasons := []Reason{
		{Code: ReasonBalanceScore, Value: balanceScore},
		{Code: ReasonIncomeSpendScore, Value: incomeSpendScore},
		{Code: ReasonNSFScore, Value: nsfScore},
	}
	if utilPenalty > 0 {
		reasons = append(reasons, Reason{Code: ReasonUtilPenalty, Value: utilPenalty, Detail: string(in.Util.Label)})
	}
	if paybackPenalty > 0 {
		reasons = append(reasons, Reason{Code: ReasonPaybackPenalty, Value: paybackPenalty, Detail: string(in.Payback.Label)})
	}
	if in.Cooldown.InCooldown {
		reasons = append(reasons, Reason{Code: ReasonCooldown, Detail: "advance cooldown active"})
	}

	return Outcome{
		FinalScore: finalScore,
		Tier:       tier,
		LimitCents: limit,
		Factors: Factors{
			BalanceScore:     balanceScore,
			IncomeSpendScore: incomeSpendScore,
			NSFScore:         nsfScore,
			BaseScore:        base,
			UtilPenalty:      utilPenalty,
			PaybackPenalty:   paybackPenalty,
			FinalScore:       finalScore,
			UtilLabel:        in.Util.Label,
			PaybackLabel:     in.Payback.Label,
			InCooldown:       in.Cooldown.InCooldown,
			Reasons:          reasons,
		},
	}
}

func balanceScore(cfg Config, avgDailyBalance float64) float64 {
	if avgDailyBalance >= 0 {
		return 100
	}
	adb := -avgDailyBalance
	negCap := cfg.BalanceNegCap
	if negCap <= 0 {
		negCap = 10_000
	}
	score := 100 * (1 - minF(adb, negCap)/negCap)
	return clamp(score, 0, 100)
}

func incomeSpendScore(monthlyIncome, monthlySpend float64) float64 {
	if monthlySpend <= 0 {
		return 100
	}
	return clamp(100*monthlyIncome/monthlySpend, 0, 100)
}

func nsfScore(cfg Config, nsfCount int) float64 {
	penalty := cfg.NSFPenalty
	if penalty == 0 {
		penalty = 25
	}
	return clamp(100-float64(nsfCount)*penalty, 0, 100)
}

// selectTier applies the authoritative tier policy table, first match wins.
func selectTier(cfg Config, in Inputs, finalScore float64) (Tier, int64) {
	if in.Cooldown.InCooldown {
		return TierDeny, 0
	}

	paybackOK := in.Payback.Label == payback.LabelPositive || in.Payback.Label == payback.LabelNeutral
	utilOK := in.Util.Label == utilization.LabelHealthy || in.Util.Label == utilization.LabelMediumRisk

	if finalScore >= cfg.TierAMinScore && utilOK && paybackOK {
		return TierA, cfg.TierALimit
	}
	if finalScore >= cfg.TierBMinScore && paybackOK {
		return TierB, cfg.TierBLimit
	}
	if finalScore >= cfg.TierCMinScore {
		return TierC, cfg.TierCLimit
	}
	return TierD, cfg.TierDLimit
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
