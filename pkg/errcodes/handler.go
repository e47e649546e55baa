package errcodes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

// statusClientClosedRequest is the de facto status for a caller that hung up
// before the response (a scan or manual sync can run for a while).
const statusClientClosedRequest = 499

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is an Echo error handler that uses HTTP errors accordingly, and any
// generic error will be interpreted as an internal server error.
func (h *Handler) Handle(err error, c echo.Context) {
	// errutils counts deadline errors as network timeouts, so context errors
	// are sorted out first.
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if !interrupted && errutils.IsIgnorableErr(err) {
		logger.FromEchoContext(c).Err(err).Warn("broken pipe")
		return
	}

	httpCode, payload := Payload(err)

	switch httpCode {
	case http.StatusInternalServerError:
		logger.FromEchoContext(c).Err(err).Error("server error")
	case statusClientClosedRequest, http.StatusGatewayTimeout:
		logger.FromEchoContext(c).Err(err).Warn("request interrupted")
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(httpCode, payload); err != nil {
		logger.FromEchoContext(c).Err(errors.WithStack(err)).Error("error handler json error")
	}
}

// Payload returns the status and the `{"error": {...}}` body for err. Handlers
// that add fields to an error response build on it.
func Payload(err error) (int, map[string]interface{}) {
	code := ""
	msg := ""
	httpCode := http.StatusInternalServerError

	var he *echo.HTTPError
	var e *Error
	switch {
	case errors.As(err, &e):
		httpCode = e.HTTPCode
		code = e.Code
		msg = e.Message
	case errors.As(err, &he):
		httpCode = he.Code
		msg = fmt.Sprint(he.Message)
		code = strcase.ToSnake(msg)
	case errors.Is(err, context.Canceled):
		httpCode = statusClientClosedRequest
		code = "request_canceled"
		msg = "Request canceled."
	case errors.Is(err, context.DeadlineExceeded):
		httpCode = http.StatusGatewayTimeout
		code = "timeout"
		msg = "The request timed out."
	}

	// Internal server errors that aren't Echo errors or custom errors
	if httpCode == http.StatusInternalServerError && msg == "" {
		code = "internal_server_error"
		msg = "Internal Server Error"
	}

	return httpCode, map[string]interface{}{
		"error": map[string]interface{}{
			"code":        code,
			"message":     msg,
			"status_code": httpCode,
		},
	}
}
