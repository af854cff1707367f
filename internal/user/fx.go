package user

import (
	"github.com/fitretto/gymbill/internal/stripeapi"
	"github.com/fitretto/gymbill/internal/user/domain"
	"github.com/fitretto/gymbill/internal/user/repository"
	"github.com/fitretto/gymbill/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(
		repository.New,
		func(c *stripeapi.Client) domain.CustomerGateway { return c },
		service.New,
	),
)
