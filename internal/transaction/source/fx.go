package source

import (
	"github.com/geraldco/bnpl-decision-gateway/internal/config"
	"go.uber.org/fx"
)

// Module wires the bank transaction source into the fx graph.
var Module = fx.Module("transaction_source",
	fx.Provide(func(cfg config.Config) Source {
		return New(cfg.BankAPIURL)
	}),
)
