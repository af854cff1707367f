package subscription

import (
	"github.com/fitretto/gymbill/internal/subscription/repository"
	"github.com/fitretto/gymbill/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(
		repository.New,
		service.New,
	),
)
