package graph

import (
	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/domain/bundles"
)

// Module provides the graph domain and binds the service as the syncer the
// bundles domain invokes after writes
var Module = fx.Module("graph",
	fx.Provide(NewStore),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Provide(provideSyncer),
	fx.Invoke(RegisterRoutes),
)

func provideSyncer(s *Service) bundles.Syncer {
	return s
}
