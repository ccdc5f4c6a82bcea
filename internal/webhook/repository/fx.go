package repository

import "go.uber.org/fx"

// Module wires the webhook repository into the fx graph.
var Module = fx.Module("webhook.repository",
	fx.Provide(New),
)
