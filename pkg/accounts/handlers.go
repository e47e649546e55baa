package accounts

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/auth"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	accountService *Service
}

// accountResponse never includes the key itself.
type accountResponse struct {
	*models.SourceAccount
	HasAPIKey bool `json:"has_api_key"`
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	accounts, err := h.accountService.List(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, accountResponse{a, a.HasAPIKey()})
	}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) save(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	source := models.Source(c.Param("source"))
	if !source.Scannable() {
		return errcodes.UnsupportedSource(source.String())
	}

	params := SaveAccountPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	account, err := h.accountService.Save(ctx, SaveAccountOptions{
		UserID:    userID,
		Source:    source,
		AccountID: params.AccountID,
		APIKey:    params.APIKey,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("saved source account", logger.Data{
		"user_id":     userID,
		"source":      source.String(),
		"has_api_key": account.HasAPIKey(),
	})

	return errors.WithStack(c.JSON(http.StatusOK, accountResponse{account, account.HasAPIKey()}))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	if err := h.accountService.Delete(ctx, userID, models.Source(c.Param("source"))); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
