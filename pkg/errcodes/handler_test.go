package errcodes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}

func handle(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHandler().Handle(err, c)

	body := errorBody{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHandler_Handle(t *testing.T) {
	t.Run("renders custom errors even when wrapped", func(t *testing.T) {
		code, body := handle(t, errors.WithStack(NotFound("Catalog entry")))
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "not_found", body.Error.Code)
		assert.Equal(t, "Catalog entry not found.", body.Error.Message)
		assert.Equal(t, http.StatusNotFound, body.Error.StatusCode)
	})

	t.Run("renders echo errors with a snake cased code", func(t *testing.T) {
		code, body := handle(t, echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"))
		assert.Equal(t, http.StatusMethodNotAllowed, code)
		assert.Equal(t, "method_not_allowed", body.Error.Code)
	})

	t.Run("hides generic errors behind a 500", func(t *testing.T) {
		code, body := handle(t, errors.New("secret database detail"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "internal_server_error", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "secret")
	})

	t.Run("renders upstream failures as bad gateway", func(t *testing.T) {
		code, body := handle(t, UpstreamUnavailable("Steam"))
		assert.Equal(t, http.StatusBadGateway, code)
		assert.Equal(t, "upstream_unavailable", body.Error.Code)
	})

	t.Run("renders non-string echo messages", func(t *testing.T) {
		code, body := handle(t, echo.NewHTTPError(http.StatusBadRequest, errors.New("bad range")))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "bad range", body.Error.Message)
	})

	t.Run("separates cancellation and timeouts from server errors", func(t *testing.T) {
		code, body := handle(t, errors.Wrap(context.Canceled, "scan steam"))
		assert.Equal(t, 499, code)
		assert.Equal(t, "request_canceled", body.Error.Code)

		code, body = handle(t, errors.WithStack(context.DeadlineExceeded))
		assert.Equal(t, http.StatusGatewayTimeout, code)
		assert.Equal(t, "timeout", body.Error.Code)
	})
}

func TestError_Is(t *testing.T) {
	err := errors.WithStack(Conflict("A catalog sync is already running."))
	assert.True(t, errors.Is(err, Conflict("A catalog sync is already running.")))
	assert.False(t, errors.Is(err, Conflict("something else")))
}
