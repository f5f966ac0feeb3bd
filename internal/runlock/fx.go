package runlock

import "go.uber.org/fx"

var Module = fx.Module("runlock",
	fx.Provide(NewClient),
	fx.Provide(New),
)
