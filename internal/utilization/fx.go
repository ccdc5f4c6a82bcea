package utilization

import (
	appconfig "github.com/geraldco/bnpl-decision-gateway/internal/config"
	"go.uber.org/fx"
)

// FromAppConfig maps the process configuration into a validated Config.
func FromAppConfig(cfg appconfig.Config) (Config, error) {
	return NewConfig(Config{
		UtilMu:        cfg.Util.UtilMu,
		UtilWeight:    cfg.Util.UtilWeight,
		BurnMu:        cfg.Util.BurnMu,
		BurnWeight:    cfg.Util.BurnWeight,
		SpendMu:       cfg.Util.SpendMu,
		SpendSigma:    cfg.Util.SpendSigma,
		SpendWeight:   cfg.Util.SpendWeight,
		LabelHealthy:  cfg.Util.LabelHealthy,
		LabelMedium:   cfg.Util.LabelMedium,
		LabelHigh:     cfg.Util.LabelHigh,
		LabelVeryHigh: cfg.Util.LabelVeryHigh,
	})
}

// Module wires the validated utilization Config into the fx graph.
var Module = fx.Module("utilization",
	fx.Provide(FromAppConfig),
)
