// Package webhook composes the outbound webhook repository and dispatcher
// submodules for fx.
package webhook

import (
	"go.uber.org/fx"

	"github.com/geraldco/bnpl-decision-gateway/internal/webhook/dispatcher"
	"github.com/geraldco/bnpl-decision-gateway/internal/webhook/repository"
)

// Module wires the webhook subsystem, binding the concrete repository to
// the dispatcher's Store capability interface.
var Module = fx.Module("webhook",
	repository.Module,
	fx.Provide(func(r *repository.Repository) dispatcher.Store { return r }),
	dispatcher.Module,
)
