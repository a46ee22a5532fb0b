package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	dto "todo-service.com/todo-service/internal/data_models"
	apperrors "todo-service.com/todo-service/internal/errors"
)

// ErrorHandler renders engine errors with the status apperrors.StatusCode picks
// for them. Validation errors also carry the offending field and reason.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := errorBody(err)
		if code >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, body)
		}
		if writeErr != nil {
			logger.ErrorContext(c.Request().Context(), "failed to write error response", slog.Any("error", writeErr))
		}
	}
}

func errorBody(err error) (int, dto.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, dto.ErrorResponse{Error: fmt.Sprint(he.Message)}
	}

	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:  ve.Error(),
			Field:  ve.Field,
			Reason: ve.Reason,
		}
	}

	code := apperrors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		return code, dto.ErrorResponse{Error: "internal server error"}
	}
	return code, dto.ErrorResponse{Error: err.Error()}
}
