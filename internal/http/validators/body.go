package validators

import (
	"github.com/labstack/echo/v4"

	apperrors "todo-service.com/todo-service/internal/errors"
)

// BindBody decodes the JSON request body into dst. Any decoding failure is
// reported as an invalid payload.
func BindBody(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperrors.ErrInvalidJSON
	}
	return nil
}
