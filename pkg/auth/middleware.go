package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/models"
)

const (
	contextKeyUserID = "user_id"
	contextKeyUser   = "user"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate identifies the caller from the "Authorization: Bearer" header
// and makes sure the user still exists. Requests without a valid token get a
// 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		user, err := m.authService.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return errcodes.Unauthorized("User not found")
		}

		c.Set(contextKeyUserID, user.ID)
		c.Set(contextKeyUser, user)

		return next(c)
	}
}

// UserID returns the id of the authenticated caller. Handlers behind
// Authenticate can rely on it.
func UserID(c echo.Context) (int, error) {
	id, ok := c.Get(contextKeyUserID).(int)
	if !ok || id == 0 {
		return 0, errcodes.Unauthorized("Authentication required")
	}
	return id, nil
}

// User returns the authenticated caller, or nil.
func User(c echo.Context) *models.User {
	user, _ := c.Get(contextKeyUser).(*models.User)
	return user
}
