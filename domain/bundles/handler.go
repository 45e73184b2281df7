package bundles

import (
	"fmt"
	"io"
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
		log:     log.With(logger.Scope("bundles.handler")),
	}
}

// GetVersion returns the version of the currently loaded bundle
func (h *Handler) GetVersion(c echo.Context) error {
	version, err := h.service.GetCurrentVersion(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, VersionResponse{Version: version})
}

// GetContent serves a stored bundle with its metadata. With no ?version=
// query the current one is returned.
func (h *Handler) GetContent(c echo.Context) error {
	resp, err := h.service.GetContent(c.Request().Context(), c.QueryParam("version"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListVersions(c echo.Context) error {
	resp, err := h.service.ListVersions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Download serves the raw bundle document as a JSON attachment
func (h *Handler) Download(c echo.Context) error {
	resp, err := h.service.GetContent(c.Request().Context(), c.Param("version"))
	if err != nil {
		return err
	}

	c.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="bundle-%s.json"`, resp.Version),
	)
	return c.Blob(http.StatusOK, "application/json", resp.Content)
}

// Create ingests a new bundle; the version key comes from the document's
// spec_version field
func (h *Handler) Create(c echo.Context) error {
	raw, err := h.readBody(c)
	if err != nil {
		return err
	}

	resp, err := h.service.Create(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// Replace stores a bundle under the version named in the path, overwriting
// any previous document for it
func (h *Handler) Replace(c echo.Context) error {
	raw, err := h.readBody(c)
	if err != nil {
		return err
	}

	resp, err := h.service.Replace(c.Request().Context(), c.Param("version"), raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// readBody reads the raw request body so the stored document is exactly
// what the client sent, not a re-serialization
func (h *Handler) readBody(c echo.Context) ([]byte, error) {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, apperror.NewBadRequest("failed to read request body")
	}
	if len(raw) == 0 {
		return nil, apperror.NewBadRequest("request body is required")
	}
	return raw, nil
}
