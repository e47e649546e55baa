package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE catalog_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				slug TEXT NOT NULL,
				external_id INTEGER,
				steam_app_id INTEGER,
				title TEXT NOT NULL,
				title_normalized TEXT,
				cover_url TEXT,
				screenshots TEXT,
				description TEXT,
				developer TEXT,
				publisher TEXT,
				genres TEXT,
				platforms TEXT,
				release_date DATETIME,
				release_year INTEGER,
				critic_score_a REAL,
				critic_score_b REAL
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		indexes := []string{
			`CREATE UNIQUE INDEX ux_catalog_entries_slug ON catalog_entries (slug)`,
			`CREATE UNIQUE INDEX ux_catalog_entries_external_id ON catalog_entries (external_id) WHERE external_id IS NOT NULL`,
			`CREATE INDEX ix_catalog_entries_title_normalized ON catalog_entries (title_normalized)`,
			`CREATE INDEX ix_catalog_entries_steam_app_id ON catalog_entries (steam_app_id)`,
		}
		for _, stmt := range indexes {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}

		_, err = db.Exec(`
			CREATE TABLE sync_cursors (
				job_name TEXT PRIMARY KEY,
				watermark DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)
		`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"sync_cursors", "catalog_entries"} {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
