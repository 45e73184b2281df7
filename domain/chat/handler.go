package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/logger"
	"github.com/stixgraph/stixgraph/pkg/sse"
)

// Handler serves the chat endpoints.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler builds the chat handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log.With(logger.Scope("chat.handler")),
	}
}

// Chat handles POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	resp, err := h.svc.Chat(c.Request().Context(), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// ChatStream handles POST /api/chat/stream. The request is validated before
// the SSE headers go out so bad requests still get JSON errors; failures
// after that point become error events on the stream.
func (h *Handler) ChatStream(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if err := validateRequest(&req); err != nil {
		return err
	}
	if !h.svc.Enabled() {
		return apperror.ErrLLMUnavailable
	}

	w := sse.NewWriter(c.Response().Writer)
	if err := w.Start(); err != nil {
		return apperror.NewInternal("failed to start SSE stream", err)
	}
	if err := w.WriteData(sse.NewMetaEvent(h.svc.Model())); err != nil {
		// Stream already started, nothing useful left to send
		return nil
	}

	resp, err := h.svc.ChatStream(c.Request().Context(), &req, func(token string) {
		w.WriteData(sse.NewTokenEvent(token))
	})
	if err != nil {
		w.WriteData(sse.NewErrorEvent(publicMessage(err)))
		w.WriteData(sse.NewDoneEvent("", h.svc.Model()))
		w.Close()
		return nil
	}

	w.WriteData(sse.NewDoneEvent(resp.Reply, resp.Model))
	w.Close()
	return nil
}

// publicMessage extracts the client-safe message from an error, leaving
// internal detail to the logs.
func publicMessage(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
