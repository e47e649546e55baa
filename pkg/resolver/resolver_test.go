package resolver

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/migrations"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func date(y int) *time.Time {
	d := time.Date(y, 6, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

func upsert(t *testing.T, svc *catalog.Service, rec catalog.ExternalRecord) *models.CatalogEntry {
	t.Helper()
	res, err := svc.Upsert(context.Background(), rec)
	require.NoError(t, err)
	return res.Entry
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("catalog adds resolve by id without title matching", func(t *testing.T) {
		svc := catalog.NewService(setupTestDB(t))
		target := upsert(t, svc, catalog.ExternalRecord{ExternalID: 1, Slug: "outer-wilds", Title: "Outer Wilds"})
		upsert(t, svc, catalog.ExternalRecord{ExternalID: 2, Slug: "hades", Title: "Hades"})

		entry := &models.LibraryEntry{
			Source:   models.SourceCatalog,
			SourceID: models.CatalogSourceIDPrefix + strconv.Itoa(target.ID),
			Title:    "Hades",
		}

		ce, err := New(svc).Resolve(ctx, entry)
		require.NoError(t, err)
		require.NotNil(t, ce)
		assert.Equal(t, target.ID, ce.ID)
	})

	t.Run("catalog adds may carry a slug", func(t *testing.T) {
		svc := catalog.NewService(setupTestDB(t))
		target := upsert(t, svc, catalog.ExternalRecord{ExternalID: 9, Slug: "abc123", Title: "Tunic"})

		ce, err := New(svc).Resolve(ctx, &models.LibraryEntry{
			Source:   models.SourceCatalog,
			SourceID: "catalog-abc123",
			Title:    "Something Else Entirely",
		})
		require.NoError(t, err)
		require.NotNil(t, ce)
		assert.Equal(t, target.ID, ce.ID)
	})

	t.Run("steam entries resolve by app id", func(t *testing.T) {
		svc := catalog.NewService(setupTestDB(t))
		appID := int64(504230)
		target := upsert(t, svc, catalog.ExternalRecord{ExternalID: 26226, Slug: "celeste", Title: "Celeste", SteamAppID: &appID})

		ce, err := New(svc).Resolve(ctx, &models.LibraryEntry{
			Source:   models.SourceSteam,
			SourceID: "504230",
			Title:    "CELESTE (Steam edition)",
		})
		require.NoError(t, err)
		require.NotNil(t, ce)
		assert.Equal(t, target.ID, ce.ID)
	})

	t.Run("falls back to the normalized title", func(t *testing.T) {
		svc := catalog.NewService(setupTestDB(t))
		target := upsert(t, svc, catalog.ExternalRecord{ExternalID: 3, Slug: "pokemon-yellow", Title: "Pokémon Yellow"})

		ce, err := New(svc).Resolve(ctx, &models.LibraryEntry{
			Source:   models.SourceSteam,
			SourceID: "999",
			Title:    "  pokemon yellow ",
		})
		require.NoError(t, err)
		require.NotNil(t, ce)
		assert.Equal(t, target.ID, ce.ID)
	})

	t.Run("breaks title ties by platform then release date then id", func(t *testing.T) {
		svc := catalog.NewService(setupTestDB(t))
		upsert(t, svc, catalog.ExternalRecord{ExternalID: 10, Slug: "doom-1993", Title: "DOOM", ReleaseDate: date(1993), Platforms: []string{"PC"}})
		recent := upsert(t, svc, catalog.ExternalRecord{ExternalID: 11, Slug: "doom-2016", Title: "DOOM", ReleaseDate: date(2016), Platforms: []string{"PC", "Xbox One"}})
		upsert(t, svc, catalog.ExternalRecord{ExternalID: 12, Slug: "doom-undated", Title: "DOOM"})

		r := New(svc)

		ce, err := r.Resolve(ctx, &models.LibraryEntry{Source: models.SourceManual, SourceID: "manual-x", Title: "Doom"})
		require.NoError(t, err)
		assert.Equal(t, recent.ID, ce.ID)

		ce, err = r.Resolve(ctx, &models.LibraryEntry{Source: models.SourceManual, SourceID: "manual-y", Title: "Doom", Platform: strPtr("Xbox One")})
		require.NoError(t, err)
		assert.Equal(t, recent.ID, ce.ID)

		snes := upsert(t, svc, catalog.ExternalRecord{ExternalID: 13, Slug: "doom-snes", Title: "DOOM", ReleaseDate: date(1995), Platforms: []string{"SNES"}})
		ce, err = r.Resolve(ctx, &models.LibraryEntry{Source: models.SourceManual, SourceID: "manual-z", Title: "Doom", Platform: strPtr("snes")})
		require.NoError(t, err)
		assert.Equal(t, snes.ID, ce.ID)
	})

	t.Run("returns nil when nothing matches", func(t *testing.T) {
		svc := catalog.NewService(setupTestDB(t))
		ce, err := New(svc).Resolve(ctx, &models.LibraryEntry{
			Source:   models.SourceCatalog,
			SourceID: "catalog-404",
			Title:    "Unknown Game",
		})
		require.NoError(t, err)
		assert.Nil(t, ce)
	})
}

func TestPick_SameDateLowestID(t *testing.T) {
	d := date(2001)
	a := &models.CatalogEntry{ID: 7, ReleaseDate: d}
	b := &models.CatalogEntry{ID: 3, ReleaseDate: d}
	assert.Equal(t, 3, pick([]*models.CatalogEntry{a, b}, "").ID)
	assert.Nil(t, pick(nil, "PC"))
}

func TestFuse(t *testing.T) {
	entry := &models.LibraryEntry{
		ID:          1,
		Title:       "Hades",
		CoverURL:    strPtr("https://steam/hades.jpg"),
		Description: strPtr("cached"),
		Score:       floatPtr(70),
	}

	t.Run("without a catalog record the entry's own fields stand", func(t *testing.T) {
		d := Fuse(entry, nil)
		assert.Equal(t, "https://steam/hades.jpg", *d.CoverURL)
		assert.Equal(t, 70.0, *d.Score)
		assert.Nil(t, d.CatalogEntryID)
		assert.Equal(t, []string{}, d.Genres)
	})

	t.Run("catalog cover, description and verified score win", func(t *testing.T) {
		ce := &models.CatalogEntry{
			ID:           5,
			Slug:         "hades",
			CoverURL:     strPtr("https://igdb/hades.jpg"),
			Description:  strPtr("Defy the god of the dead."),
			CriticScoreA: floatPtr(93),
			CriticScoreB: floatPtr(95),
			Genres:       []string{"Roguelike"},
		}
		d := Fuse(entry, ce)
		assert.Equal(t, "https://igdb/hades.jpg", *d.CoverURL)
		assert.Equal(t, "Defy the god of the dead.", *d.Description)
		assert.Equal(t, 95.0, *d.Score)
		assert.Equal(t, 5, *d.CatalogEntryID)
		assert.Equal(t, "hades", *d.CatalogSlug)
	})

	t.Run("the not-found sentinel means no score", func(t *testing.T) {
		ce := &models.CatalogEntry{ID: 5, CriticScoreA: floatPtr(93), CriticScoreB: floatPtr(models.VerifiedScoreNotFound)}
		d := Fuse(entry, ce)
		assert.Nil(t, d.Score)
	})

	t.Run("falls back to the aggregate then the cached score", func(t *testing.T) {
		d := Fuse(entry, &models.CatalogEntry{ID: 5, CriticScoreA: floatPtr(88)})
		assert.Equal(t, 88.0, *d.Score)

		d = Fuse(entry, &models.CatalogEntry{ID: 5})
		assert.Equal(t, 70.0, *d.Score)
		assert.Equal(t, "https://steam/hades.jpg", *d.CoverURL)
	})
}

func TestFuse_StoredScores(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(setupTestDB(t))
	entry := &models.LibraryEntry{ID: 1, Title: "Celeste", Score: floatPtr(70)}

	stored := upsert(t, svc, catalog.ExternalRecord{ExternalID: 1, Slug: "celeste", Title: "Celeste", CriticScoreA: floatPtr(91)})

	ce, err := svc.Retrieve(ctx, catalog.RetrieveEntryOptions{ID: &stored.ID})
	require.NoError(t, err)
	d := Fuse(entry, ce)
	require.NotNil(t, d.Score)
	assert.InDelta(t, 91.0, *d.Score, 0.001)

	_, err = svc.SetVerifiedScore(ctx, stored.ID, -1)
	require.NoError(t, err)

	ce, err = svc.Retrieve(ctx, catalog.RetrieveEntryOptions{ID: &stored.ID})
	require.NoError(t, err)
	require.NotNil(t, ce.CriticScoreB)
	assert.InDelta(t, models.VerifiedScoreNotFound, *ce.CriticScoreB, 0.001)
	assert.Nil(t, Fuse(entry, ce).Score)

	// A later ingestion doesn't clear the sentinel.
	upsert(t, svc, catalog.ExternalRecord{ExternalID: 1, Slug: "celeste", Title: "Celeste", CriticScoreA: floatPtr(92), CriticScoreB: floatPtr(88)})
	ce, err = svc.Retrieve(ctx, catalog.RetrieveEntryOptions{ID: &stored.ID})
	require.NoError(t, err)
	assert.Nil(t, Fuse(entry, ce).Score)
}

func TestResolver_ResolveAll(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(setupTestDB(t))
	upsert(t, svc, catalog.ExternalRecord{ExternalID: 1, Slug: "celeste", Title: "Celeste", CriticScoreA: floatPtr(91)})

	entries := []*models.LibraryEntry{
		{ID: 1, Source: models.SourceManual, SourceID: "manual-a", Title: "Unmatched"},
		{ID: 2, Source: models.SourceManual, SourceID: "manual-b", Title: "Celeste"},
	}
	out, err := New(svc).ResolveAll(ctx, entries)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].ID)
	assert.Nil(t, out[0].Score)
	assert.Equal(t, 91.0, *out[1].Score)
}
