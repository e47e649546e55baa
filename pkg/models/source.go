package models

import "strings"

// Source identifies where a library entry came from. The set is closed: every
// switch over it handles each variant explicitly.
type Source string

const (
	SourceManual            Source = "manual"
	SourceCatalog           Source = "catalog"
	SourceSteam             Source = "steam"
	SourceXbox              Source = "xbox"
	SourceRetroAchievements Source = "retroachievements"
)

// Sources lists every source in display order.
var Sources = []Source{
	SourceSteam,
	SourceXbox,
	SourceRetroAchievements,
	SourceCatalog,
	SourceManual,
}

// CatalogSourceIDPrefix prefixes the source id of entries added straight from
// the catalog.
const CatalogSourceIDPrefix = "catalog-"

// XboxSourceIDPrefix prefixes Xbox title ids.
const XboxSourceIDPrefix = "xbox-"

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceCatalog, SourceSteam, SourceXbox, SourceRetroAchievements:
		return true
	}
	return false
}

// Scannable reports whether the source has a platform adapter that can list
// owned games.
func (s Source) Scannable() bool {
	switch s {
	case SourceSteam, SourceXbox, SourceRetroAchievements:
		return true
	case SourceManual, SourceCatalog:
		return false
	}
	return false
}

func (s Source) String() string {
	return string(s)
}

// DisplayName is the human name of the platform.
func (s Source) DisplayName() string {
	switch s {
	case SourceSteam:
		return "Steam"
	case SourceXbox:
		return "Xbox"
	case SourceRetroAchievements:
		return "RetroAchievements"
	case SourceCatalog:
		return "Catalog"
	case SourceManual:
		return "Manual"
	}
	return strings.ToUpper(string(s))
}

// Identity is the (source, sourceId) pair that identifies an owned game
// within one user's library.
type Identity struct {
	Source   Source `json:"source"`
	SourceID string `json:"source_id"`
}

func (id Identity) String() string {
	return string(id.Source) + ":" + id.SourceID
}
