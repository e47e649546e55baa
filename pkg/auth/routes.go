package auth

import "github.com/labstack/echo/v4"

// RegisterRoutesWithGroup registers the caller identity route. The group must
// already run Authenticate.
func RegisterRoutesWithGroup(g *echo.Group) {
	h := &handler{}

	g.GET("/me", h.me)
}
