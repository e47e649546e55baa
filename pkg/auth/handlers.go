package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/pkg/errors"
)

type handler struct{}

func (h *handler) me(c echo.Context) error {
	user := User(c)
	if user == nil {
		return errcodes.Unauthorized("Authentication required")
	}
	return errors.WithStack(c.JSON(http.StatusOK, user))
}
