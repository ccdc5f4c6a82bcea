// Command gateway boots the BNPL decision gateway: it wires configuration,
// persistence, scoring, the decision orchestrator, the webhook dispatcher,
// and the HTTP surface, applying schema migrations before serving traffic.
package main

import (
	"go.uber.org/fx"

	"github.com/geraldco/bnpl-decision-gateway/internal/clock"
	"github.com/geraldco/bnpl-decision-gateway/internal/config"
	"github.com/geraldco/bnpl-decision-gateway/internal/db"
	"github.com/geraldco/bnpl-decision-gateway/internal/decision"
	"github.com/geraldco/bnpl-decision-gateway/internal/idempotency"
	"github.com/geraldco/bnpl-decision-gateway/internal/logger"
	"github.com/geraldco/bnpl-decision-gateway/internal/migration"
	"github.com/geraldco/bnpl-decision-gateway/internal/observability/metrics"
	"github.com/geraldco/bnpl-decision-gateway/internal/risk"
	"github.com/geraldco/bnpl-decision-gateway/internal/server"
	txsource "github.com/geraldco/bnpl-decision-gateway/internal/transaction/source"
	"github.com/geraldco/bnpl-decision-gateway/internal/utilization"
	"github.com/geraldco/bnpl-decision-gateway/internal/webhook"
)

func main() {
	app := fx.New(
		logger.Module,
		config.Module,
		clock.Module,
		metrics.Module,
		db.Module,
		txsource.Module,
		risk.Module,
		utilization.Module,
		idempotency.Module,
		webhook.Module,
		decision.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}
