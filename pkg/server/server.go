package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ludotheque/ludotheque/pkg/accounts"
	"github.com/ludotheque/ludotheque/pkg/auth"
	"github.com/ludotheque/ludotheque/pkg/binder"
	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/catalogsync"
	"github.com/ludotheque/ludotheque/pkg/config"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/joblogs"
	"github.com/ludotheque/ludotheque/pkg/jobs"
	"github.com/ludotheque/ludotheque/pkg/library"
	"github.com/ludotheque/ludotheque/pkg/secrets"
	"github.com/ludotheque/ludotheque/pkg/sources"
	"github.com/ludotheque/ludotheque/pkg/testutils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// New builds the HTTP server. The syncer is shared with the worker so the
// manual trigger and scheduled runs contend for the same lock.
func New(cfg *config.Config, db *bun.DB, syncer *catalogsync.Syncer) (*http.Server, error) {
	e, err := newEcho(cfg, db, syncer)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, syncer *catalogsync.Syncer) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	enc, err := secrets.NewEncryptor(cfg.CredentialSecret)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authService := auth.NewService(db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	registerProtectedRoutes(e, db, cfg, enc, syncer, authMiddleware)

	if cfg.IsTest() {
		testutils.RegisterRoutes(e, db, authService)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

// registerProtectedRoutes registers every route that needs an identified
// caller. Data is always scoped to that caller inside the handlers.
func registerProtectedRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, enc *secrets.Encryptor, syncer *catalogsync.Syncer, authMiddleware *auth.Middleware) {
	authGroup := e.Group("/auth")
	authGroup.Use(authMiddleware.Authenticate)
	auth.RegisterRoutesWithGroup(authGroup)

	// Library routes
	libraryGroup := e.Group("/library")
	libraryGroup.Use(authMiddleware.Authenticate)
	library.RegisterRoutesWithGroup(libraryGroup, db)

	// Source scans
	registry := sources.NewRegistry(sources.Config{
		SteamAPIKey:              cfg.SteamAPIKey,
		SteamBaseURL:             cfg.SteamBaseURL,
		XboxBaseURL:              cfg.XboxBaseURL,
		RetroAchievementsBaseURL: cfg.RetroAchievementsBaseURL,
		Timeout:                  cfg.SourceRequestTimeout,
	})
	sourcesGroup := e.Group("/sources")
	sourcesGroup.Use(authMiddleware.Authenticate)
	library.RegisterScanRoutesWithGroup(sourcesGroup, db, enc, registry)

	// Linked platform accounts
	accountsGroup := e.Group("/accounts")
	accountsGroup.Use(authMiddleware.Authenticate)
	accounts.RegisterRoutesWithGroup(accountsGroup, db, enc)

	// Catalog routes
	catalogGroup := e.Group("/catalog")
	catalogGroup.Use(authMiddleware.Authenticate)
	catalog.RegisterRoutesWithGroup(catalogGroup, db)

	// Manual sync trigger
	syncGroup := e.Group("/sync")
	syncGroup.Use(authMiddleware.Authenticate)
	catalogsync.RegisterRoutesWithGroup(syncGroup, syncer)

	// Jobs routes
	jobsGroup := e.Group("/jobs")
	jobsGroup.Use(authMiddleware.Authenticate)
	jobs.RegisterRoutesWithGroup(jobsGroup, db)
	joblogs.RegisterRoutes(jobsGroup, db)

	// Config routes
	configGroup := e.Group("/config")
	configGroup.Use(authMiddleware.Authenticate)
	config.RegisterRoutesWithGroup(configGroup, cfg)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
