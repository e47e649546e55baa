package catalogsync

import (
	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/config"
	"github.com/ludotheque/ludotheque/pkg/cursor"
	"github.com/ludotheque/ludotheque/pkg/igdb"
	"github.com/uptrace/bun"
)

// NewFromConfig wires a Syncer against the configured metadata provider. The
// locker must be shared by everything in the process that can start a sync.
func NewFromConfig(cfg *config.Config, db *bun.DB, locker *cursor.Locker) *Syncer {
	client := igdb.New(igdb.Config{
		ClientID:     cfg.IGDBClientID,
		ClientSecret: cfg.IGDBClientSecret,
		BaseURL:      cfg.IGDBBaseURL,
		TokenURL:     cfg.IGDBTokenURL,
		Timeout:      cfg.SourceRequestTimeout,
	})

	return New(client, catalog.NewService(db), cursor.NewService(db), locker, Options{
		Interval:        cfg.CatalogSyncInterval,
		Lookback:        cfg.CatalogSyncLookback(),
		PageSize:        cfg.CatalogSyncPageSize,
		MaxPages:        cfg.CatalogSyncMaxPages,
		RequestInterval: cfg.CatalogSyncRequestInterval,
		Backoff:         cfg.CatalogSyncBackoff,
		ErrorThreshold:  cfg.CatalogSyncErrorThreshold,
	})
}
