package search

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers search routes
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	e.GET("/api/search", handler.Search)
}
