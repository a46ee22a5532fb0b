package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	dto "todo-service.com/todo-service/internal/data_models"
	middleware "todo-service.com/todo-service/internal/http/middlewares"
	"todo-service.com/todo-service/internal/http/validators"
	"todo-service.com/todo-service/internal/services"
	core "todo-service.com/todo-service/internal/validators"
)

type Handler struct {
	taskService *services.TaskService
	logger      *slog.Logger
}

func NewHandler(taskService *services.TaskService, logger *slog.Logger) *Handler {
	return &Handler{
		taskService: taskService,
		logger:      logger,
	}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ListTasks(c echo.Context) error {
	q, err := validators.BindTaskQuery(c, h.taskService.Validator())
	if err != nil {
		return err
	}

	page, err := h.taskService.ListTasks(c.Request().Context(), middleware.Owner(c), q)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskListResponse(page))
}

func (h *Handler) CreateTask(c echo.Context) error {
	var req dto.CreateTaskRequest
	if err := validators.BindBody(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), middleware.Owner(c), req.Input())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, dto.NewTaskResponse(task))
}

func (h *Handler) GetTask(c echo.Context) error {
	task, err := h.taskService.GetTask(c.Request().Context(), middleware.Owner(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) UpdateTask(c echo.Context) error {
	var req dto.UpdateTaskRequest
	if err := validators.BindBody(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), middleware.Owner(c), c.Param("id"), req.Patch())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) DeleteTask(c echo.Context) error {
	if err := h.taskService.DeleteTask(c.Request().Context(), middleware.Owner(c), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ToggleTask(c echo.Context) error {
	result, err := h.taskService.ToggleTask(c.Request().Context(), middleware.Owner(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewCompletionResponse(result))
}

func (h *Handler) CompleteTask(c echo.Context) error {
	result, err := h.taskService.CompleteTask(c.Request().Context(), middleware.Owner(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewCompletionResponse(result))
}

func (h *Handler) SetPriority(c echo.Context) error {
	var req dto.PriorityRequest
	if err := validators.BindBody(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.SetPriority(c.Request().Context(), middleware.Owner(c), c.Param("id"), req.Priority)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) UpdateTags(c echo.Context) error {
	var req dto.TagsRequest
	if err := validators.BindBody(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTags(c.Request().Context(), middleware.Owner(c), c.Param("id"), req.Action, req.Tags)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) AddTag(c echo.Context) error {
	task, err := h.taskService.AddTag(c.Request().Context(), middleware.Owner(c), c.Param("id"), c.Param("tag"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) RemoveTag(c echo.Context) error {
	task, err := h.taskService.RemoveTag(c.Request().Context(), middleware.Owner(c), c.Param("id"), c.Param("tag"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) SetDueDate(c echo.Context) error {
	var req dto.DueDateRequest
	if err := validators.BindBody(c, &req); err != nil {
		return err
	}

	var due *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := core.DueDate(*req.DueDate)
		if err != nil {
			return err
		}
		due = &parsed
	}

	task, err := h.taskService.SetDueDate(c.Request().Context(), middleware.Owner(c), c.Param("id"), due, req.Options())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) AuditTrail(c echo.Context) error {
	limit, err := validators.BindLimit(c)
	if err != nil {
		return err
	}

	entries, err := h.taskService.AuditTrail(c.Request().Context(), middleware.Owner(c), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewAuditTrailResponse(entries))
}
