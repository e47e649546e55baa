package catalog

type ListCatalogQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=200"`
}

type CreateManualPayload struct {
	Title       string   `json:"title" validate:"required,max=500" mod:"trim"`
	Platforms   []string `json:"platforms,omitempty" validate:"dive,max=100"`
	Genres      []string `json:"genres,omitempty" validate:"dive,max=100"`
	Developer   string   `json:"developer,omitempty" validate:"max=200" mod:"trim"`
	Publisher   string   `json:"publisher,omitempty" validate:"max=200" mod:"trim"`
	Description string   `json:"description,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	ReleaseDate *string  `json:"release_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// SetScorePayload sets the verified critic score. A negative score marks it
// as checked and unavailable.
type SetScorePayload struct {
	Score *float64 `json:"score" validate:"required,max=100"`
}
