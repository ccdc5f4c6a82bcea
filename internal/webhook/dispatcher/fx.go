package dispatcher

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/geraldco/bnpl-decision-gateway/internal/observability/metrics"
)

// Module wires the webhook dispatcher into the fx graph.
var Module = fx.Module("webhook.dispatcher",
	fx.Provide(func(store Store, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
		return New(store, log, m)
	}),
)
