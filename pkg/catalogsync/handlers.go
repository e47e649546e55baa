package catalogsync

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/binder"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	syncer *Syncer
}

func (h *handler) trigger(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	// force rides on the query string of a bodiless POST.
	binder.AllowEmptyBody(c)
	params := TriggerQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	res, err := h.syncer.Run(ctx, params.Force, NewLogger(log))
	if err == nil {
		return errors.WithStack(c.JSON(http.StatusOK, res))
	}
	if errors.Is(err, context.Canceled) {
		return errors.WithStack(err)
	}

	var apiErr error
	switch {
	case upstream.IsAuthError(err):
		apiErr = errcodes.UpstreamAuthFailed("Metadata provider")
	case upstream.IsError(err), errors.Is(err, ErrTooManyFailures):
		apiErr = errcodes.UpstreamUnavailable("Metadata provider")
	default:
		return errors.WithStack(err)
	}
	if res == nil {
		return apiErr
	}

	// Keep what the run got through: counts and diagnostics ride along
	// with the error.
	status, body := errcodes.Payload(apiErr)
	body["result"] = res
	return errors.WithStack(c.JSON(status, body))
}
