package catalog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	catalogService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListCatalogQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, total, err := h.catalogService.ListWithTotal(ctx, ListEntriesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	}))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	entry, err := h.catalogService.Retrieve(ctx, RetrieveEntryOptions{Slug: &slug})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, entry))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := CreateManualPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := CreateManualOptions{
		Title:       params.Title,
		Platforms:   params.Platforms,
		Genres:      params.Genres,
		Developer:   params.Developer,
		Publisher:   params.Publisher,
		Description: params.Description,
		CoverURL:    params.CoverURL,
	}
	if params.ReleaseDate != nil {
		d, err := time.Parse("2006-01-02", *params.ReleaseDate)
		if err != nil {
			return errcodes.ValidationError("Release date must be YYYY-MM-DD.")
		}
		opts.ReleaseDate = &d
	}

	entry, err := h.catalogService.CreateManual(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("created manual catalog entry", logger.Data{"catalog_entry_id": entry.ID, "slug": entry.Slug})

	return errors.WithStack(c.JSON(http.StatusCreated, entry))
}

func (h *handler) setScore(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Catalog entry")
	}

	params := SetScorePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entry, err := h.catalogService.SetVerifiedScore(ctx, id, *params.Score)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, entry))
}
