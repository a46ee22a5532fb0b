package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"todo-service.com/todo-service/internal/constants"
	"todo-service.com/todo-service/internal/services"
	"todo-service.com/todo-service/internal/validators"
	model "todo-service.com/todo-service/pkg/models"
)

const defaultListLimit = 20

// NewServer exposes the task operations of owner as MCP tools. Tool input is
// validated leniently: unknown priorities fall back to medium and unknown
// recurrence patterns are dropped, except where a tool says otherwise.
func NewServer(tasks *services.TaskService, owner string) *server.MCPServer {
	svc := tasks.ForSource(constants.SourceChat).WithValidator(validators.Lenient)
	h := &handlers{tasks: svc, owner: owner}

	s := server.NewMCPServer("todo", "1.0.0")

	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Create a new task with optional priority, tags, due date and recurring pattern."),
		mcp.WithString("title", mcp.Description("Task title (max 200 chars)"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Description("high, medium or low (default medium)")),
		mcp.WithArray("tags", mcp.Description("Tags like [\"work\", \"urgent\"]"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("due_date", mcp.Description("Due date in ISO-8601, e.g. 2024-01-15T10:00:00Z")),
		mcp.WithString("recurring", mcp.Description("daily, weekly or monthly")),
	), h.addTask)

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks with filters, search and sorting."),
		mcp.WithString("status", mcp.Description("all, pending or completed (default all)")),
		mcp.WithString("priority", mcp.Description("Filter by priority")),
		mcp.WithArray("tags", mcp.Description("Filter by tags (any matching tag)"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("search", mcp.Description("Keyword to look for in titles")),
		mcp.WithString("sort_by", mcp.Description("due_date, priority, title or created_at")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default 20)")),
	), h.listTasks)

	s.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Search tasks by keyword in title."),
		mcp.WithString("query", mcp.Description("Search keyword"), mcp.Required()),
	), h.searchTasks)

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task complete. Completing a recurring task creates its next occurrence."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), h.completeTask)

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), h.deleteTask)

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Change task properties. Tags replace the existing list."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("priority", mcp.Description("New priority")),
		mcp.WithArray("tags", mcp.Description("New tags"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("due_date", mcp.Description("New due date in ISO-8601")),
		mcp.WithString("recurring", mcp.Description("daily, weekly, monthly or empty to stop recurring")),
	), h.updateTask)

	s.AddTool(mcp.NewTool("set_priority",
		mcp.WithDescription("Set the priority of a task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("priority", mcp.Description("high, medium or low"), mcp.Required()),
	), h.setPriority)

	s.AddTool(mcp.NewTool("add_tag",
		mcp.WithDescription("Add a tag to a task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("tag", mcp.Description("Tag to add"), mcp.Required()),
	), h.addTag)

	s.AddTool(mcp.NewTool("remove_tag",
		mcp.WithDescription("Remove a tag from a task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("tag", mcp.Description("Tag to remove"), mcp.Required()),
	), h.removeTag)

	s.AddTool(mcp.NewTool("set_due_date",
		mcp.WithDescription("Set a task due date. A reminder is scheduled before it."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("due_date", mcp.Description("Due date in ISO-8601"), mcp.Required()),
		mcp.WithNumber("reminder_minutes_before", mcp.Description("Minutes before the due date to remind (default 60)")),
	), h.setDueDate)

	s.AddTool(mcp.NewTool("create_recurring_task",
		mcp.WithDescription("Create a task that repeats daily, weekly or monthly."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("pattern", mcp.Description("daily, weekly or monthly"), mcp.Required()),
		mcp.WithString("due_date", mcp.Description("First due date in ISO-8601"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Description("Priority level")),
		mcp.WithArray("tags", mcp.Description("Tags"), mcp.Items(map[string]any{"type": "string"})),
	), h.createRecurringTask)

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

type handlers struct {
	tasks *services.TaskService
	owner string
}

func (h *handlers) addTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := h.tasks.CreateTask(ctx, h.owner, services.TaskInput{
		Title:       mcp.ParseString(request, "title", ""),
		Description: mcp.ParseString(request, "description", ""),
		Priority:    mcp.ParseString(request, "priority", ""),
		Tags:        stringSlice(request, "tags"),
		DueDate:     mcp.ParseString(request, "due_date", ""),
		Recurring:   mcp.ParseString(request, "recurring", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summary(task, "created"))
}

func (h *handlers) listTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v := h.tasks.Validator()
	status, _ := v.Status(mcp.ParseString(request, "status", ""))
	priority, _ := v.PriorityFilter(mcp.ParseString(request, "priority", ""))
	sortKey, _ := v.SortKey(mcp.ParseString(request, "sort_by", ""))

	return h.list(ctx, services.TaskQuery{
		Status:   status,
		Priority: priority,
		Tags:     validators.Tags(stringSlice(request, "tags")),
		Search:   mcp.ParseString(request, "search", ""),
		Sort:     sortKey,
		Order:    naturalOrder(sortKey),
		Limit:    mcp.ParseInt(request, "limit", defaultListLimit),
	})
}

func (h *handlers) searchTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.list(ctx, services.TaskQuery{
		Search: mcp.ParseString(request, "query", ""),
		Limit:  defaultListLimit,
	})
}

func (h *handlers) list(ctx context.Context, q services.TaskQuery) (*mcp.CallToolResult, error) {
	page, err := h.tasks.ListTasks(ctx, h.owner, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	items := make([]map[string]any, len(page.Tasks))
	for i := range page.Tasks {
		items[i] = listItem(&page.Tasks[i])
	}
	return jsonResult(map[string]any{
		"tasks":           items,
		"total":           page.Total,
		"pending_count":   page.PendingCount,
		"completed_count": page.CompletedCount,
	})
}

// naturalOrder is the direction a person means when asking to sort by key:
// soonest due first, most urgent first, alphabetical, newest first.
func naturalOrder(key constants.SortKey) constants.SortOrder {
	switch key {
	case constants.SortDueDate, constants.SortTitle:
		return constants.OrderAsc
	default:
		return constants.OrderDesc
	}
}

func (h *handlers) completeTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.tasks.CompleteTask(ctx, h.owner, mcp.ParseString(request, "task_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := summary(result.Task, "completed")
	if next := result.Spawned; next != nil {
		out["next_task_id"] = next.ID
		out["next_due_date"] = next.DueDate.UTC().Format(time.RFC3339)
		out["message"] = fmt.Sprintf("Task completed. Next occurrence created for %s", next.DueDate.UTC().Format("2006-01-02"))
	}
	return jsonResult(out)
}

func (h *handlers) deleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "task_id", "")
	task, err := h.tasks.GetTask(ctx, h.owner, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.tasks.DeleteTask(ctx, h.owner, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summary(task, "deleted"))
}

func (h *handlers) updateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)

	var patch services.TaskPatch
	if title, ok := args["title"].(string); ok {
		patch.Title = &title
	}
	if description, ok := args["description"].(string); ok {
		patch.Description = &description
	}
	// Unknown priorities leave the current one in place.
	if priority, ok := args["priority"].(string); ok && constants.Priority(priority).Valid() {
		patch.Priority = &priority
	}
	if _, ok := args["tags"]; ok {
		tags := stringSlice(request, "tags")
		patch.Tags = &tags
	}
	if due, ok := args["due_date"].(string); ok {
		patch.DueDate = &due
	}
	if recurring, ok := args["recurring"].(string); ok {
		if _, err := validators.Strict.Recurrence(recurring); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch.Recurring = &recurring
	}

	task, err := h.tasks.UpdateTask(ctx, h.owner, mcp.ParseString(request, "task_id", ""), patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := summary(task, "updated")
	out["priority"] = task.Priority
	out["tags"] = []string(task.Tags)
	out["due_date"] = formatTime(task.DueDate)
	return jsonResult(out)
}

func (h *handlers) setPriority(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := h.tasks.SetPriority(ctx, h.owner,
		mcp.ParseString(request, "task_id", ""),
		strings.ToLower(mcp.ParseString(request, "priority", "")),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := summary(task, "updated")
	out["priority"] = task.Priority
	return jsonResult(out)
}

func (h *handlers) addTag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := h.tasks.AddTag(ctx, h.owner,
		mcp.ParseString(request, "task_id", ""),
		mcp.ParseString(request, "tag", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := summary(task, "tag_added")
	out["tags"] = []string(task.Tags)
	return jsonResult(out)
}

func (h *handlers) removeTag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := h.tasks.RemoveTag(ctx, h.owner,
		mcp.ParseString(request, "task_id", ""),
		mcp.ParseString(request, "tag", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := summary(task, "tag_removed")
	out["tags"] = []string(task.Tags)
	return jsonResult(out)
}

func (h *handlers) setDueDate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	due, err := validators.DueDate(mcp.ParseString(request, "due_date", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := services.DefaultDueDateOptions()
	opts.OffsetMinutes = mcp.ParseInt(request, "reminder_minutes_before", opts.OffsetMinutes)

	task, err := h.tasks.SetDueDate(ctx, h.owner, mcp.ParseString(request, "task_id", ""), &due, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := summary(task, "updated")
	out["due_date"] = formatTime(task.DueDate)
	out["reminder_at"] = formatTime(task.ReminderAt)
	return jsonResult(out)
}

func (h *handlers) createRecurringTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern := mcp.ParseString(request, "pattern", "")
	if !constants.Recurrence(pattern).Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid pattern: %q, must be daily, weekly or monthly", pattern)), nil
	}

	task, err := h.tasks.CreateTask(ctx, h.owner, services.TaskInput{
		Title:       mcp.ParseString(request, "title", ""),
		Description: mcp.ParseString(request, "description", ""),
		Priority:    mcp.ParseString(request, "priority", ""),
		Tags:        stringSlice(request, "tags"),
		DueDate:     mcp.ParseString(request, "due_date", ""),
		Recurring:   pattern,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := summary(task, "created")
	out["recurring"] = task.Recurring
	out["due_date"] = formatTime(task.DueDate)
	return jsonResult(out)
}

// stringSlice accepts a JSON array of strings or a comma separated string.
func stringSlice(request mcp.CallToolRequest, key string) []string {
	args, _ := request.Params.Arguments.(map[string]any)
	switch v := args[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		return validators.SplitTags(v)
	}
	return nil
}

func summary(task *model.Task, status string) map[string]any {
	return map[string]any{
		"task_id": task.ID,
		"status":  status,
		"title":   task.Title,
	}
}

func listItem(t *model.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"completed":   t.Completed,
		"description": t.Description,
		"priority":    t.Priority,
		"tags":        append([]string{}, t.Tags...),
		"due_date":    formatTime(t.DueDate),
		"recurring":   t.Recurring,
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
