// Package resolver links library entries to catalog records at read time and
// fuses the two into what the UI shows.
package resolver

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/normalize"
	"github.com/pkg/errors"
)

// Display is a library entry enriched with catalog metadata.
type Display struct {
	*models.LibraryEntry

	CatalogEntryID *int       `json:"catalog_entry_id,omitempty"`
	CatalogSlug    *string    `json:"catalog_slug,omitempty"`
	CoverURL       *string    `json:"cover_url,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Score          *float64   `json:"score,omitempty"`
	Developer      *string    `json:"developer,omitempty"`
	Publisher      *string    `json:"publisher,omitempty"`
	Genres         []string   `json:"genres"`
	ReleaseDate    *time.Time `json:"release_date,omitempty"`
	ReleaseYear    *int       `json:"release_year,omitempty"`
}

type Resolver struct {
	catalog *catalog.Service
}

func New(catalogService *catalog.Service) *Resolver {
	return &Resolver{catalogService}
}

// Resolve finds the catalog record for an entry. It tries, in order, the
// catalog id carried by catalog adds, the Steam app id, and the normalized
// title. It returns nil, nil when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, entry *models.LibraryEntry) (*models.CatalogEntry, error) {
	if entry.Source == models.SourceCatalog {
		if raw, ok := strings.CutPrefix(entry.SourceID, models.CatalogSourceIDPrefix); ok && raw != "" {
			// Older catalog adds carry the slug rather than the row id.
			opts := catalog.RetrieveEntryOptions{Slug: &raw}
			if id, err := strconv.Atoi(raw); err == nil {
				opts = catalog.RetrieveEntryOptions{ID: &id}
			}
			ce, err := r.found(r.catalog.Retrieve(ctx, opts))
			if ce != nil || err != nil {
				return ce, err
			}
		}
	}

	if entry.Source == models.SourceSteam {
		if appID, err := strconv.ParseInt(entry.SourceID, 10, 64); err == nil {
			ce, err := r.found(r.catalog.Retrieve(ctx, catalog.RetrieveEntryOptions{SteamAppID: &appID}))
			if ce != nil || err != nil {
				return ce, err
			}
		}
	}

	title := normalize.Title(entry.Title)
	if title == "" {
		return nil, nil
	}
	candidates, err := r.catalog.List(ctx, catalog.ListEntriesOptions{TitleNormalized: &title})
	if err != nil {
		return nil, err
	}
	platform := ""
	if entry.Platform != nil {
		platform = *entry.Platform
	}
	return pick(candidates, platform), nil
}

// found turns a not-found lookup into a miss so the chain can move on.
func (r *Resolver) found(ce *models.CatalogEntry, err error) (*models.CatalogEntry, error) {
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Catalog entry")) {
			return nil, nil
		}
		return nil, err
	}
	return ce, nil
}

// pick breaks ties between records sharing a title: platform match first,
// then the most recent release date, then the lowest id.
func pick(candidates []*models.CatalogEntry, platform string) *models.CatalogEntry {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]*models.CatalogEntry, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if pa, pb := a.HasPlatform(platform), b.HasPlatform(platform); pa != pb {
			return pa
		}
		switch {
		case a.ReleaseDate != nil && b.ReleaseDate == nil:
			return true
		case a.ReleaseDate == nil && b.ReleaseDate != nil:
			return false
		case a.ReleaseDate != nil && b.ReleaseDate != nil && !a.ReleaseDate.Equal(*b.ReleaseDate):
			return a.ReleaseDate.After(*b.ReleaseDate)
		}
		return a.ID < b.ID
	})
	return sorted[0]
}

// Fuse merges an entry with its catalog record, which may be nil. Catalog
// cover, description and score win over the entry's own.
func Fuse(entry *models.LibraryEntry, ce *models.CatalogEntry) Display {
	d := Display{
		LibraryEntry: entry,
		CoverURL:     entry.CoverURL,
		Description:  entry.Description,
		Score:        entry.Score,
		Genres:       []string{},
	}
	if ce == nil {
		return d
	}

	id := ce.ID
	slug := ce.Slug
	d.CatalogEntryID = &id
	d.CatalogSlug = &slug
	if ce.CoverURL != nil {
		d.CoverURL = ce.CoverURL
	}
	if ce.Description != nil {
		d.Description = ce.Description
	}
	d.Score = FusedScore(ce, entry.Score)
	d.Developer = ce.Developer
	d.Publisher = ce.Publisher
	if ce.Genres != nil {
		d.Genres = ce.Genres
	}
	d.ReleaseDate = ce.ReleaseDate
	d.ReleaseYear = ce.ReleaseYear
	return d
}

// FusedScore applies the score precedence: a verified score when there is
// one, nothing when it was looked for and is known not to exist, otherwise
// the aggregated score, otherwise the fallback.
func FusedScore(ce *models.CatalogEntry, fallback *float64) *float64 {
	if ce.CriticScoreB != nil {
		if *ce.CriticScoreB < 0 {
			return nil
		}
		return ce.CriticScoreB
	}
	if ce.CriticScoreA != nil {
		return ce.CriticScoreA
	}
	return fallback
}

// ResolveAll resolves and fuses each entry, keeping their order.
func (r *Resolver) ResolveAll(ctx context.Context, entries []*models.LibraryEntry) ([]Display, error) {
	out := make([]Display, 0, len(entries))
	for _, e := range entries {
		ce, err := r.Resolve(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, Fuse(e, ce))
	}
	return out, nil
}
