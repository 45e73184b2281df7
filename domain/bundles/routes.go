package bundles

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers bundle routes
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	bundles := e.Group("/api/bundles")
	{
		bundles.GET("", handler.GetContent)
		bundles.GET("/version", handler.GetVersion)
		bundles.GET("/versions", handler.ListVersions)
		bundles.GET("/:version/download", handler.Download)
		bundles.PUT("", handler.Create)
		bundles.PUT("/:version", handler.Replace)
	}
}
