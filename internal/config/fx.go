package config

import "go.uber.org/fx"

// Module wires process configuration for the gateway.
var Module = fx.Module("config",
	fx.Provide(Load),
)
