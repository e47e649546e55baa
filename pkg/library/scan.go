package library

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/accounts"
	"github.com/ludotheque/ludotheque/pkg/auth"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/metrics"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/reconcile"
	"github.com/ludotheque/ludotheque/pkg/sources"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
)

type scanHandler struct {
	libraryService *Service
	accountService *accounts.Service
	registry       *sources.Registry
}

type scanResponse struct {
	Source     models.Source          `json:"source"`
	Candidates []reconcile.Classified `json:"candidates"`
	Counts     reconcile.Counts       `json:"counts"`
}

// scan lists the games on the caller's platform account, labelled against
// their library and ignore list. Nothing is written.
func (h *scanHandler) scan(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	source := models.Source(c.Param("source"))
	if !source.Scannable() {
		return errcodes.UnsupportedSource(source.String())
	}

	creds, err := h.accountService.Credentials(ctx, userID, source)
	if err != nil {
		return scanError(source, err)
	}

	cands, err := h.registry.Scan(ctx, source, creds)
	if err != nil {
		return scanError(source, err)
	}

	library, ignored, err := h.libraryService.IdentitySets(ctx, userID, source)
	if err != nil {
		return errors.WithStack(err)
	}

	classified := reconcile.Classify(cands, library, ignored)
	counts := reconcile.Summarize(classified)
	metrics.ScanCandidates.WithLabelValues(source.String(), string(reconcile.StateLibrary)).Add(float64(counts.Library))
	metrics.ScanCandidates.WithLabelValues(source.String(), string(reconcile.StateIgnored)).Add(float64(counts.Ignored))
	metrics.ScanCandidates.WithLabelValues(source.String(), string(reconcile.StateNew)).Add(float64(counts.New))

	return errors.WithStack(c.JSON(http.StatusOK, scanResponse{
		Source:     source,
		Candidates: classified,
		Counts:     counts,
	}))
}

func scanError(source models.Source, err error) error {
	switch {
	case errors.Is(err, sources.ErrUnsupportedSource):
		return errcodes.UnsupportedSource(source.String())
	case errors.Is(err, sources.ErrMissingCredentials):
		return errcodes.MissingCredentials(source.DisplayName())
	case errors.Is(err, sources.ErrSteamProfileNotFound):
		return errcodes.NotFound("Steam profile")
	case upstream.IsAuthError(err),
		upstream.StatusCode(err) == http.StatusUnauthorized,
		upstream.StatusCode(err) == http.StatusForbidden:
		return errcodes.ValidationError(source.DisplayName() + " rejected the account credentials.")
	case upstream.IsError(err):
		return errcodes.UpstreamUnavailable(source.DisplayName())
	}
	return errors.WithStack(err)
}
