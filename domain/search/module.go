package search

import (
	"go.uber.org/fx"
)

// Module provides the search domain
var Module = fx.Module("search",
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
