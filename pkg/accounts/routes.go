package accounts

import (
	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/secrets"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers source account routes. The group must
// already run auth.Middleware.Authenticate.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, enc *secrets.Encryptor) {
	h := &handler{
		accountService: NewService(db, enc),
	}

	g.GET("", h.list)
	g.PUT("/:source", h.save)
	g.DELETE("/:source", h.delete)
}
