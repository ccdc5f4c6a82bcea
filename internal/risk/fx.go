package risk

import (
	appconfig "github.com/geraldco/bnpl-decision-gateway/internal/config"
	"go.uber.org/fx"
)

// FromAppConfig maps the process configuration into a validated risk Config.
func FromAppConfig(cfg appconfig.Config) (Config, error) {
	return NewConfig(Config{
		BalanceWeight:     cfg.Risk.BalanceWeight,
		IncomeSpendWeight: cfg.Risk.IncomeSpendWeight,
		NSFWeight:         cfg.Risk.NSFWeight,
		BalanceNegCap:     cfg.Risk.BalanceNegCap,
		NSFPenalty:        cfg.Risk.NSFPenalty,
		PaybackPenalty:    cfg.Risk.PaybackPenalty,
		UtilPenaltyHigh:   cfg.Risk.UtilPenaltyHigh,
		UtilPenaltyMedium: cfg.Risk.UtilPenaltyMedium,
		TierALimit:        cfg.Tier.LimitA,
		TierBLimit:        cfg.Tier.LimitB,
		TierCLimit:        cfg.Tier.LimitC,
		TierDLimit:        cfg.Tier.LimitD,
		TierAMinScore:     cfg.Tier.MinScoreA,
		TierBMinScore:     cfg.Tier.MinScoreB,
		TierCMinScore:     cfg.Tier.MinScoreC,
	})
}

// Module wires the validated risk Config into the fx graph.
var Module = fx.Module("risk",
	fx.Provide(FromAppConfig),
)
