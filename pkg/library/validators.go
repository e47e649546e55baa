package library

import "github.com/ludotheque/ludotheque/pkg/models"

type ListLibraryQuery struct {
	Limit  int            `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset int            `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Source *models.Source `query:"source" json:"source,omitempty" validate:"omitempty,source"`
	Status *string        `query:"status" json:"status,omitempty" validate:"omitempty,oneof=backlog playing completed abandoned"`
}

// CreateEntryPayload adds a game by hand. With CatalogEntryID the game is
// taken from the catalog and Title is optional.
type CreateEntryPayload struct {
	CatalogEntryID *int    `json:"catalog_entry_id,omitempty" validate:"omitempty,min=1"`
	Title          string  `json:"title,omitempty" validate:"required_without=CatalogEntryID,max=500" mod:"trim"`
	Platform       string  `json:"platform,omitempty" validate:"max=100" mod:"trim"`
	CoverURL       string  `json:"cover_url,omitempty" validate:"omitempty,url"`
	Status         *string `json:"status,omitempty" validate:"omitempty,oneof=backlog playing completed abandoned"`
}

type UpdateEntryPayload struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=500" mod:"trim"`
	Platform *string `json:"platform,omitempty" validate:"omitempty,max=100" mod:"trim"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=backlog playing completed abandoned"`
	Progress *int    `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	Rating   *int    `json:"rating,omitempty" validate:"omitempty,min=0,max=10"`
}

type CommitPayload struct {
	Add    []CommitItem `json:"add" validate:"max=5000,dive"`
	Ignore []CommitItem `json:"ignore" validate:"max=5000,dive"`
}

type ListIgnoredQuery struct {
	Source *models.Source `query:"source" json:"source,omitempty" validate:"omitempty,source"`
}

type RestoreIgnoredPayload struct {
	IDs []int `json:"ids" validate:"required,min=1,max=5000,dive,min=1"`
}
