package library

import (
	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/accounts"
	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/resolver"
	"github.com/ludotheque/ludotheque/pkg/secrets"
	"github.com/ludotheque/ludotheque/pkg/sources"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers library routes. The group must already run
// auth.Middleware.Authenticate.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	catalogService := catalog.NewService(db)
	h := &handler{
		libraryService: NewService(db),
		catalogService: catalogService,
		resolver:       resolver.New(catalogService),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/commit", h.commit)
	g.GET("/ignored", h.listIgnored)
	g.POST("/ignored/restore", h.restoreIgnored)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

// RegisterScanRoutesWithGroup registers the read-only platform scan under a
// /sources group.
func RegisterScanRoutesWithGroup(g *echo.Group, db *bun.DB, enc *secrets.Encryptor, registry *sources.Registry) {
	h := &scanHandler{
		libraryService: NewService(db),
		accountService: accounts.NewService(db, enc),
		registry:       registry,
	}

	g.GET("/:source/scan", h.scan)
}
