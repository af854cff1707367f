package invoice

import (
	"github.com/fitretto/gymbill/internal/invoice/repository"
	"github.com/fitretto/gymbill/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		repository.New,
		service.New,
	),
)
