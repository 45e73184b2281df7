package bundles

import (
	"go.uber.org/fx"
)

// Module provides the bundles domain. The Syncer dependency is satisfied by
// the graph module.
var Module = fx.Module("bundles",
	fx.Provide(NewRepository),
	fx.Provide(NewArchiver),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
