package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "todo-service.com/todo-service/internal/errors"
)

const (
	OwnerHeader = "X-User-ID"
	ownerKey    = "owner"
)

// RequireOwner takes the already authenticated owner from the X-User-ID header.
func RequireOwner() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			owner := strings.TrimSpace(c.Request().Header.Get(OwnerHeader))
			if owner == "" {
				return apperrors.ErrOwnerRequired
			}
			c.Set(ownerKey, owner)
			return next(c)
		}
	}
}

func Owner(c echo.Context) string {
	owner, _ := c.Get(ownerKey).(string)
	return owner
}
