package search

import (
	"log/slog"
	"net/http"
	"strconv"

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
		log:     log.With(logger.Scope("search.handler")),
	}
}

// Search handles GET /api/search?q=<query>&top_k=<n>
func (h *Handler) Search(c echo.Context) error {
	topK := DefaultTopK
	if raw := c.QueryParam("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > MaxTopK {
			return apperror.NewBadRequest("top_k must be an integer between 1 and 100")
		}
		topK = parsed
	}

	resp, err := h.service.Search(c.Request().Context(), c.QueryParam("q"), topK)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
