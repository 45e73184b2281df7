package graph

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers graph routes
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	g := e.Group("/api/graph")
	{
		g.GET("/adjacent", handler.GetAdjacent)
		g.GET("/edges", handler.GetEdges)
		g.POST("/resync", handler.Resync)
	}
}
