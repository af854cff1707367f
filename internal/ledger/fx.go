package ledger

import (
	"github.com/fitretto/gymbill/internal/ledger/repository"
	"github.com/fitretto/gymbill/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(
		repository.New,
		service.New,
	),
)
