package health

import (
	"go.uber.org/fx"
)

// Module provides the health and diagnostics endpoints
var Module = fx.Module("health",
	fx.Provide(NewHandler),
	fx.Provide(NewMetricsHandler),
	fx.Invoke(RegisterRoutes),
)
