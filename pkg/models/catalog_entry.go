package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// CatalogEntry is a game record ingested from the external metadata provider
// (or added by hand). Rows are never deleted by the sync.
type CatalogEntry struct {
	bun.BaseModel `bun:"table:catalog_entries,alias:ce"`

	ID              int        `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Slug            string     `bun:",nullzero" json:"slug"`
	ExternalID      *int64     `json:"external_id,omitempty"`
	SteamAppID      *int64     `json:"steam_app_id,omitempty"`
	Title           string     `bun:",nullzero" json:"title"`
	TitleNormalized *string    `json:"-"`
	CoverURL        *string    `json:"cover_url,omitempty"`
	Screenshots     []string   `json:"screenshots"`
	Description     *string    `json:"description,omitempty"`
	Developer       *string    `json:"developer,omitempty"`
	Publisher       *string    `json:"publisher,omitempty"`
	Genres          []string   `json:"genres"`
	Platforms       []string   `json:"platforms"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	ReleaseYear     *int       `json:"release_year,omitempty"`
	CriticScoreA    *float64   `bun:"critic_score_a" json:"critic_score_a,omitempty"`
	CriticScoreB    *float64   `bun:"critic_score_b" json:"critic_score_b,omitempty"`
}

// VerifiedScoreNotFound is stored in critic_score_b once the secondary score
// has been looked for and doesn't exist.
const VerifiedScoreNotFound = -1.0

// HasPlatform reports whether the entry lists the platform, ignoring case.
func (ce *CatalogEntry) HasPlatform(platform string) bool {
	if platform == "" {
		return false
	}
	for _, p := range ce.Platforms {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
}
