package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "todo-service.com/todo-service/internal/http/middlewares"
	"todo-service.com/todo-service/internal/telemetry"
)

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int, metrics *telemetry.Metrics) {
	e.HTTPErrorHandler = ErrorHandler(h.logger)
	e.Use(middleware.Metrics(metrics))

	e.GET("/health", h.Health)

	api := e.Group("/api/v1",
		middleware.RequireOwner(),
		middleware.RateLimiter(rateLimitPerMinute, time.Minute),
	)
	api.GET("/audit", h.AuditTrail)

	tasks := api.Group("/tasks")

	tasks.GET("", h.ListTasks)
	tasks.POST("", h.CreateTask)
	tasks.GET("/:id", h.GetTask)
	tasks.PATCH("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
	tasks.POST("/:id/toggle", h.ToggleTask)
	tasks.POST("/:id/complete", h.CompleteTask)
	tasks.PATCH("/:id/priority", h.SetPriority)
	tasks.PATCH("/:id/tags", h.UpdateTags)
	tasks.PATCH("/:id/due-date", h.SetDueDate)
	tasks.POST("/:id/tags/:tag", h.AddTag)
	tasks.DELETE("/:id/tags/:tag", h.RemoveTag)
}
