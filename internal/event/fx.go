package event

import (
	"github.com/fitretto/gymbill/internal/event/repository"
	"github.com/fitretto/gymbill/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(
		repository.New,
		service.New,
	),
)
