package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	LibraryStatusBacklog   = "backlog"
	LibraryStatusPlaying   = "playing"
	LibraryStatusCompleted = "completed"
	LibraryStatusAbandoned = "abandoned"
)

// LibraryEntry is a game the user has confirmed they own or track. Identity
// is (user_id, source, source_id).
type LibraryEntry struct {
	bun.BaseModel `bun:"table:library_entries,alias:le"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      int       `bun:",nullzero" json:"user_id"`
	Source      Source    `bun:",nullzero" json:"source"`
	SourceID    string    `bun:",nullzero" json:"source_id"`
	Title       string    `bun:",nullzero" json:"title"`
	SortTitle   string    `json:"-"`
	Platform    *string   `json:"platform,omitempty"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	Status      string    `bun:",nullzero" json:"status"`
	Progress    int       `json:"progress"`
	Rating      *int      `json:"rating,omitempty"`
	Score       *float64  `json:"score,omitempty"`
	Description *string   `json:"description,omitempty"`
}

func (le *LibraryEntry) Identity() Identity {
	return Identity{Source: le.Source, SourceID: le.SourceID}
}

// IgnoredEntry is a tombstone: the user has chosen never to be offered this
// game from this source again.
type IgnoredEntry struct {
	bun.BaseModel `bun:"table:ignored_entries,alias:ie"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	Source    Source    `bun:",nullzero" json:"source"`
	SourceID  string    `bun:",nullzero" json:"source_id"`
	Title     string    `bun:",nullzero" json:"title"`
}

func (ie *IgnoredEntry) Identity() Identity {
	return Identity{Source: ie.Source, SourceID: ie.SourceID}
}
