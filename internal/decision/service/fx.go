package service

import (
	"go.uber.org/fx"

	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
)

// Module wires the decision orchestrator into the fx graph, binding the
// concrete Service behind decisiondomain.Service.
var Module = fx.Module("decision.service",
	fx.Provide(New),
	fx.Provide(func(s *Service) decisiondomain.Service { return s }),
)
