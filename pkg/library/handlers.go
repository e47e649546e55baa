package library

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/auth"
	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/resolver"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	libraryService *Service
	catalogService *catalog.Service
	resolver       *resolver.Resolver
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	params := ListLibraryQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, total, err := h.libraryService.ListEntriesWithTotal(ctx, ListEntriesOptions{
		UserID: userID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Source: params.Source,
		Status: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	displays, err := h.resolver.ResolveAll(ctx, entries)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{
		"entries": displays,
		"total":   total,
	}))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	entry, err := h.entryFromParam(c)
	if err != nil {
		return err
	}

	ce, err := h.resolver.Resolve(ctx, entry)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, resolver.Fuse(entry, ce)))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	params := CreateEntryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := CreateEntryOptions{
		UserID:   userID,
		Source:   models.SourceManual,
		SourceID: ManualSourceID(),
		Title:    params.Title,
		Platform: params.Platform,
		CoverURL: params.CoverURL,
	}
	if params.Status != nil {
		opts.Status = *params.Status
	}

	if params.CatalogEntryID != nil {
		ce, err := h.catalogService.Retrieve(ctx, catalog.RetrieveEntryOptions{ID: params.CatalogEntryID})
		if err != nil {
			return errors.WithStack(err)
		}
		opts.Source = models.SourceCatalog
		opts.SourceID = CatalogSourceID(ce.ID)
		if opts.Title == "" {
			opts.Title = ce.Title
		}
		if opts.CoverURL == "" && ce.CoverURL != nil {
			opts.CoverURL = *ce.CoverURL
		}
	}

	entry, err := h.libraryService.CreateEntry(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("added library entry", logger.Data{
		"user_id":          userID,
		"library_entry_id": entry.ID,
		"source":           entry.Source.String(),
	})

	ce, err := h.resolver.Resolve(ctx, entry)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusCreated, resolver.Fuse(entry, ce)))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	entry, err := h.entryFromParam(c)
	if err != nil {
		return err
	}

	params := UpdateEntryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateEntryOptions{Columns: []string{}}
	if params.Title != nil && *params.Title != entry.Title {
		entry.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Platform != nil {
		entry.Platform = nonEmpty(*params.Platform)
		opts.Columns = append(opts.Columns, "platform")
	}
	if params.Status != nil && *params.Status != entry.Status {
		entry.Status = *params.Status
		opts.Columns = append(opts.Columns, "status")
	}
	if params.Progress != nil && *params.Progress != entry.Progress {
		entry.Progress = *params.Progress
		opts.Columns = append(opts.Columns, "progress")
	}
	if params.Rating != nil {
		entry.Rating = params.Rating
		opts.Columns = append(opts.Columns, "rating")
	}

	if err := h.libraryService.UpdateEntry(ctx, entry, opts); err != nil {
		return errors.WithStack(err)
	}

	ce, err := h.resolver.Resolve(ctx, entry)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, resolver.Fuse(entry, ce)))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library entry")
	}

	if err := h.libraryService.DeleteEntry(ctx, userID, id); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) commit(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	params := CommitPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	res, err := h.libraryService.Commit(ctx, userID, params.Add, params.Ignore)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, res))
}

func (h *handler) listIgnored(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	params := ListIgnoredQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, err := h.libraryService.ListIgnored(ctx, userID, params.Source)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, entries))
}

func (h *handler) restoreIgnored(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	params := RestoreIgnoredPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	n, err := h.libraryService.RestoreIgnored(ctx, userID, params.IDs)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("restored ignored games", logger.Data{"user_id": userID, "restored": n})

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"restored": n}))
}

// entryFromParam loads the caller's entry named by the :id param. Entries of
// other users are reported as missing.
func (h *handler) entryFromParam(c echo.Context) (*models.LibraryEntry, error) {
	userID, err := auth.UserID(c)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, errcodes.NotFound("Library entry")
	}
	entry, err := h.libraryService.RetrieveEntry(c.Request().Context(), RetrieveEntryOptions{ID: &id, UserID: &userID})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entry, nil
}
