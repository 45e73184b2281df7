package apperror

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// codeForStatus maps statuses of plain echo errors (route misses, bind
// failures) onto taxonomy codes. Unmapped statuses return "".
func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusConflict:
		return "duplicate_version"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	case http.StatusServiceUnavailable:
		return "store_unavailable"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return ""
	}
}

// HTTPErrorHandler renders every error as {"error": {"code", "message"}}.
// Production and test servers both install it, so handler tests observe
// the real wire format.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := map[string]any{
			"code":    "internal_error",
			"message": "An internal error occurred",
		}

		switch e := err.(type) {
		case *Error:
			status = e.HTTPStatus
			body["code"] = e.Code
			body["message"] = e.Message
			if len(e.Details) > 0 {
				body["details"] = e.Details
			}

		case *echo.HTTPError:
			status = e.Code
			switch msg := e.Message.(type) {
			case map[string]any:
				// Pre-built envelope; lift its error fields.
				if inner, ok := msg["error"].(map[string]any); ok {
					for k, v := range inner {
						body[k] = v
					}
				}
			case string:
				body["message"] = msg
				if code := codeForStatus(status); code != "" {
					body["code"] = code
				}
			}
		}

		if status >= 500 {
			log.Error("request ended in server error",
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(status)
			return
		}
		c.JSON(status, map[string]any{"error": body})
	}
}
