package clock

import "go.uber.org/fx"

// Module provides the wall clock. Tests swap in FixedClock directly.
var Module = fx.Module("clock",
	fx.Provide(func() Clock {
		return SystemClock{}
	}),
)
