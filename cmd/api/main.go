package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/ludotheque/ludotheque/pkg/catalogsync"
	"github.com/ludotheque/ludotheque/pkg/config"
	"github.com/ludotheque/ludotheque/pkg/cursor"
	"github.com/ludotheque/ludotheque/pkg/database"
	"github.com/ludotheque/ludotheque/pkg/migrations"
	"github.com/ludotheque/ludotheque/pkg/server"
	"github.com/ludotheque/ludotheque/pkg/version"
	"github.com/ludotheque/ludotheque/pkg/worker"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting ludotheque", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}
	log.Info("config loaded", logger.Data{
		"catalog_sync_enabled":     cfg.CatalogSyncEnabled,
		"igdb_credentials_present": cfg.IGDBCredentialsPresent(),
		"has_steam_api_key":        cfg.SteamAPIKey != "",
	})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	pending, err := migrations.Pending(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if len(pending) > 0 {
		log.Info("applying migrations", logger.Data{"pending": pending.String()})
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	// One locker per process: the HTTP trigger and the worker share it.
	syncer := catalogsync.NewFromConfig(cfg, db, cursor.NewLocker())

	wrkr := worker.New(cfg, db, syncer)

	srv, err := server.New(cfg, db, syncer)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"port": actualPort})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
