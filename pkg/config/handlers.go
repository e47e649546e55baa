package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	config *Config
}

// PublicConfig is the subset of the config that is safe to expose. Secrets are
// reduced to presence flags.
type PublicConfig struct {
	CatalogSyncEnabled         bool    `json:"catalog_sync_enabled"`
	CatalogSyncIntervalSeconds float64 `json:"catalog_sync_interval_seconds"`
	CatalogSyncLookbackDays    int     `json:"catalog_sync_lookback_days"`
	CatalogSyncErrorThreshold  int     `json:"catalog_sync_error_threshold"`
	IGDBCredentialsPresent     bool    `json:"igdb_credentials_present"`
	SteamAPIKeyPresent         bool    `json:"steam_api_key_present"`
	JobRetentionSeconds        float64 `json:"job_retention_seconds"`
}

func (h *handler) retrieve(c echo.Context) error {
	resp := PublicConfig{
		CatalogSyncEnabled:         h.config.CatalogSyncEnabled,
		CatalogSyncIntervalSeconds: h.config.CatalogSyncInterval.Seconds(),
		CatalogSyncLookbackDays:    h.config.CatalogSyncLookbackDays,
		CatalogSyncErrorThreshold:  h.config.CatalogSyncErrorThreshold,
		IGDBCredentialsPresent:     h.config.IGDBCredentialsPresent(),
		SteamAPIKeyPresent:         h.config.SteamAPIKey != "",
		JobRetentionSeconds:        h.config.JobRetention.Seconds(),
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
