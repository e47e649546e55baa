package igdb

import (
	"context"
	"time"
)

const imageBaseURL = "https://images.igdb.com/igdb/image/upload"

// External game categories used to pull platform store ids.
const externalCategorySteam = 1

// GameFields are the fields requested for catalog ingestion.
var GameFields = []string{
	"name",
	"slug",
	"summary",
	"updated_at",
	"first_release_date",
	"aggregated_rating",
	"cover.image_id",
	"screenshots.image_id",
	"genres.name",
	"platforms.name",
	"involved_companies.developer",
	"involved_companies.publisher",
	"involved_companies.company.name",
	"external_games.category",
	"external_games.uid",
}

type Named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Image struct {
	ImageID string `json:"image_id"`
}

// URL returns the CDN address of the image at the given size preset, e.g.
// "cover_big" or "screenshot_big".
func (i Image) URL(size string) string {
	return imageBaseURL + "/t_" + size + "/" + i.ImageID + ".jpg"
}

type InvolvedCompany struct {
	Company   Named `json:"company"`
	Developer bool  `json:"developer"`
	Publisher bool  `json:"publisher"`
}

type ExternalGame struct {
	Category int    `json:"category"`
	UID      string `json:"uid"`
}

type Game struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	Summary           string            `json:"summary"`
	UpdatedAt         int64             `json:"updated_at"`
	FirstReleaseDate  *int64            `json:"first_release_date"`
	AggregatedRating  *float64          `json:"aggregated_rating"`
	Cover             *Image            `json:"cover"`
	Screenshots       []Image           `json:"screenshots"`
	Genres            []Named           `json:"genres"`
	Platforms         []Named           `json:"platforms"`
	InvolvedCompanies []InvolvedCompany `json:"involved_companies"`
	ExternalGames     []ExternalGame    `json:"external_games"`
}

// ReleaseDate converts the unix release timestamp, if any.
func (g *Game) ReleaseDate() *time.Time {
	if g.FirstReleaseDate == nil {
		return nil
	}
	t := time.Unix(*g.FirstReleaseDate, 0).UTC()
	return &t
}

// SteamUID returns the Steam app id the provider links to the game.
func (g *Game) SteamUID() string {
	for _, eg := range g.ExternalGames {
		if eg.Category == externalCategorySteam && eg.UID != "" {
			return eg.UID
		}
	}
	return ""
}

// FirstCompany returns the first company flagged by pick.
func (g *Game) FirstCompany(pick func(InvolvedCompany) bool) string {
	for _, ic := range g.InvolvedCompanies {
		if pick(ic) && ic.Company.Name != "" {
			return ic.Company.Name
		}
	}
	return ""
}

// Games fetches one page of games.
func (c *Client) Games(ctx context.Context, q *Query) ([]Game, error) {
	games := []Game{}
	if err := c.Fetch(ctx, "games", q, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// UpdatedSinceQuery pages through games changed inside [from, to), oldest
// first so an interrupted run loses nothing it hasn't seen.
func UpdatedSinceQuery(from, to time.Time, limit, offset int) *Query {
	return NewQuery().
		Fields(GameFields...).
		Where("updated_at >= %d", from.Unix()).
		Where("updated_at < %d", to.Unix()).
		Sort("updated_at", false).
		Limit(limit).
		Offset(offset)
}
