package webhook

import (
	"github.com/fitretto/gymbill/internal/stripeapi"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.engine",
	fx.Provide(
		func(c *stripeapi.Client) ProcessorGateway { return c },
		New,
	),
)
