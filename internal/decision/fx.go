// Package decision composes the decision repository and orchestrator
// submodules for fx.
package decision

import (
	"go.uber.org/fx"

	"github.com/geraldco/bnpl-decision-gateway/internal/decision/repository"
	"github.com/geraldco/bnpl-decision-gateway/internal/decision/service"
)

// Module wires the decision subsystem, binding the concrete repository to
// the orchestrator's Repository capability interface.
var Module = fx.Module("decision",
	repository.Module,
	fx.Provide(func(r *repository.Repository) service.Repository { return r }),
	service.Module,
)
