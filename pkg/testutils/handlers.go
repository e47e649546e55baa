package testutils

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/auth"
	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type handler struct {
	db             *bun.DB
	authService    *auth.Service
	catalogService *catalog.Service
}

// createUserRequest is the request body for creating a test user.
type createUserRequest struct {
	Username string `json:"username" validate:"required"`
}

// createUserResponse carries a ready-to-use bearer token so end-to-end tests
// can skip the login flow.
type createUserResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// createUser creates a test user and mints a token for it.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.CreateUser(ctx, req.Username)
	if err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.Wrap(err, "failed to generate token")
	}

	return errors.WithStack(c.JSON(http.StatusCreated, createUserResponse{
		ID:       user.ID,
		Username: user.Username,
		Token:    token,
	}))
}

// deleteAllUsersResponse is the response body for deleting all users.
type deleteAllUsersResponse struct {
	Deleted int `json:"deleted"`
}

// deleteAllUsers deletes every user. Library entries, tombstones and source
// accounts go with them through the foreign keys.
// DELETE /test/users.
func (h *handler) deleteAllUsers(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.db.NewDelete().
		Model((*models.User)(nil)).
		Where("1=1").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to delete users")
	}

	deleted, _ := result.RowsAffected()

	return errors.WithStack(c.JSON(http.StatusOK, deleteAllUsersResponse{
		Deleted: int(deleted),
	}))
}

type seedCatalogRequest struct {
	Records []seedCatalogRecord `json:"records" validate:"required,min=1,dive"`
}

type seedCatalogRecord struct {
	ExternalID   int64      `json:"external_id" validate:"required"`
	Slug         string     `json:"slug" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	CoverURL     string     `json:"cover_url"`
	Platforms    []string   `json:"platforms"`
	ReleaseDate  *time.Time `json:"release_date"`
	SteamAppID   *int64     `json:"steam_app_id"`
	CriticScoreA *float64   `json:"critic_score_a"`
	CriticScoreB *float64   `json:"critic_score_b"`
}

// seedCatalog writes provider records through the same upsert the catalog
// sync uses.
// POST /test/catalog.
func (h *handler) seedCatalog(c echo.Context) error {
	ctx := c.Request().Context()

	var req seedCatalogRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	recs := make([]catalog.ExternalRecord, 0, len(req.Records))
	for _, r := range req.Records {
		recs = append(recs, catalog.ExternalRecord{
			ExternalID:   r.ExternalID,
			Slug:         r.Slug,
			Title:        r.Title,
			CoverURL:     r.CoverURL,
			Platforms:    r.Platforms,
			ReleaseDate:  r.ReleaseDate,
			SteamAppID:   r.SteamAppID,
			CriticScoreA: r.CriticScoreA,
			CriticScoreB: r.CriticScoreB,
		})
	}

	res, err := h.catalogService.UpsertBatch(ctx, recs)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, res))
}
