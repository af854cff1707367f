package stripeapi

import "go.uber.org/fx"

var Module = fx.Module("stripeapi",
	fx.Provide(NewClient),
)
