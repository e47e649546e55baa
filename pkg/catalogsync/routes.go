package catalogsync

import "github.com/labstack/echo/v4"

// RegisterRoutesWithGroup registers the manual sync trigger.
func RegisterRoutesWithGroup(g *echo.Group, syncer *Syncer) {
	h := &handler{syncer: syncer}

	g.POST("/catalog", h.trigger)
}
