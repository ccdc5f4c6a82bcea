package repository

import "go.uber.org/fx"

// Module wires the decision repository into the fx graph.
var Module = fx.Module("decision.repository",
	fx.Provide(New),
)
