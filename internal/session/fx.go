package session

import (
	"github.com/fitretto/gymbill/internal/session/repository"
	"github.com/fitretto/gymbill/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session.service",
	fx.Provide(
		repository.New,
		service.New,
	),
)
