package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time so expiry logic can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// Module provides the system clock.
var Module = fx.Provide(NewSystemClock)

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
