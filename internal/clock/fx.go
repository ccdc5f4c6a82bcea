package clock

import "go.uber.org/fx"

// Module provides the production wall-clock Clock to the fx graph.
var Module = fx.Module("clock",
	fx.Provide(func() Clock { return Real{} }),
)
