package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "todo-service.com/todo-service/internal/errors"
	"todo-service.com/todo-service/internal/telemetry"
)

// Metrics records the request count and latency per route and status.
func Metrics(m *telemetry.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = errorStatus(err)
			}

			attrs := metric.WithAttributes(
				attribute.String("http.method", c.Request().Method),
				attribute.String("http.route", c.Path()),
				attribute.String("http.status_code", strconv.Itoa(status)),
			)
			ctx := c.Request().Context()
			m.RequestCounter.Add(ctx, 1, attrs)
			m.RequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			return err
		}
	}
}

func errorStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperrors.StatusCode(err)
}
