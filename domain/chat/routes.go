package chat

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers chat routes
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/chat")
	{
		g.POST("", h.Chat)
		g.POST("/stream", h.ChatStream)
	}
}
