package graph

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With(logger.Scope("graph.handler")),
	}
}

// GetAdjacent returns a node and its one-hop neighborhood
func (h *Handler) GetAdjacent(c echo.Context) error {
	stixID := c.QueryParam("stix_id")
	if stixID == "" {
		return apperror.NewBadRequest("stix_id query parameter is required")
	}

	adjacency, err := h.service.Adjacent(c.Request().Context(), stixID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adjacency)
}

// GetEdges returns every edge touching a node, for visualization clients
func (h *Handler) GetEdges(c echo.Context) error {
	stixID := c.QueryParam("stix_id")
	if stixID == "" {
		return apperror.NewBadRequest("stix_id query parameter is required")
	}

	edges, err := h.service.EdgesTouching(c.Request().Context(), stixID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EdgesResponse{Edges: edges})
}

// Resync rebuilds the projection from the current stored bundle
func (h *Handler) Resync(c echo.Context) error {
	stats, err := h.service.Resync(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
