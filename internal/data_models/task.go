package dto

import (
	"time"

	"todo-service.com/todo-service/internal/constants"
	"todo-service.com/todo-service/internal/services"
	model "todo-service.com/todo-service/pkg/models"
)

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"due_date"`
	Recurring   string   `json:"recurring"`
}

func (r CreateTaskRequest) Input() services.TaskInput {
	return services.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Tags:        r.Tags,
		DueDate:     r.DueDate,
		Recurring:   r.Recurring,
	}
}

// UpdateTaskRequest is a partial update. "due_date": null clears the due date.
type UpdateTaskRequest struct {
	Title       Optional[string]   `json:"title"`
	Description Optional[string]   `json:"description"`
	Priority    Optional[string]   `json:"priority"`
	Tags        Optional[[]string] `json:"tags"`
	DueDate     Optional[string]   `json:"due_date"`
	Recurring   Optional[string]   `json:"recurring"`
	Completed   Optional[bool]     `json:"completed"`
}

func (r UpdateTaskRequest) Patch() services.TaskPatch {
	patch := services.TaskPatch{
		Title:       r.Title.Ptr(),
		Description: r.Description.Ptr(),
		Priority:    r.Priority.Ptr(),
		Tags:        r.Tags.Ptr(),
		DueDate:     r.DueDate.Ptr(),
		Completed:   r.Completed.Ptr(),
	}
	if r.DueDate.Null() {
		patch.ClearDueDate = true
	}
	if r.Recurring.Set {
		none := ""
		if r.Recurring.Value == nil {
			patch.Recurring = &none
		} else {
			patch.Recurring = r.Recurring.Value
		}
	}
	return patch
}

type PriorityRequest struct {
	Priority string `json:"priority"`
}

type TagsRequest struct {
	Action string   `json:"action"`
	Tags   []string `json:"tags"`
}

// DueDateRequest sets or, with a null due_date, clears the due date.
type DueDateRequest struct {
	DueDate               *string `json:"due_date"`
	SetReminder           *bool   `json:"set_reminder"`
	ReminderMinutesBefore *int    `json:"reminder_minutes_before"`
}

func (r DueDateRequest) Options() services.DueDateOptions {
	opts := services.DefaultDueDateOptions()
	if r.SetReminder != nil {
		opts.SetReminder = *r.SetReminder
	}
	if r.ReminderMinutesBefore != nil {
		opts.OffsetMinutes = *r.ReminderMinutesBefore
	}
	return opts
}

type TaskResponse struct {
	ID                string                `json:"id"`
	UserID            string                `json:"user_id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Completed         bool                  `json:"completed"`
	Priority          constants.Priority    `json:"priority"`
	Tags              []string              `json:"tags"`
	DueDate           *time.Time            `json:"due_date"`
	ReminderAt        *time.Time            `json:"reminder_at"`
	Recurring         *constants.Recurrence `json:"recurring"`
	RecurringParentID *string               `json:"recurring_parent_id"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         *time.Time            `json:"updated_at"`
}

func NewTaskResponse(t *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:                t.ID,
		UserID:            t.UserID,
		Title:             t.Title,
		Description:       t.Description,
		Completed:         t.Completed,
		Priority:          t.Priority,
		Tags:              append([]string{}, t.Tags...),
		DueDate:           utc(t.DueDate),
		ReminderAt:        utc(t.ReminderAt),
		RecurringParentID: t.RecurringParentID,
		CreatedAt:         t.CreatedAt.UTC(),
		UpdatedAt:         utc(t.UpdatedAt),
	}
	if t.Recurring != constants.RecurrenceNone {
		r := t.Recurring
		resp.Recurring = &r
	}
	return resp
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type TaskListResponse struct {
	Tasks          []TaskResponse `json:"tasks"`
	Total          int            `json:"total"`
	PendingCount   int            `json:"pending_count"`
	CompletedCount int            `json:"completed_count"`
}

func NewTaskListResponse(page services.TaskPage) TaskListResponse {
	tasks := make([]TaskResponse, len(page.Tasks))
	for i := range page.Tasks {
		tasks[i] = NewTaskResponse(&page.Tasks[i])
	}
	return TaskListResponse{
		Tasks:          tasks,
		Total:          page.Total,
		PendingCount:   page.PendingCount,
		CompletedCount: page.CompletedCount,
	}
}

type CompletionResponse struct {
	Task    TaskResponse  `json:"task"`
	Spawned *TaskResponse `json:"spawned,omitempty"`
}

func NewCompletionResponse(r services.CompletionResult) CompletionResponse {
	resp := CompletionResponse{Task: NewTaskResponse(r.Task)}
	if r.Spawned != nil {
		spawned := NewTaskResponse(r.Spawned)
		resp.Spawned = &spawned
	}
	return resp
}

type AuditEntryResponse struct {
	EventID   string              `json:"event_id"`
	EventType constants.EventType `json:"event_type"`
	TaskID    string              `json:"task_id"`
	TaskData  map[string]any      `json:"task_data"`
	Timestamp time.Time           `json:"timestamp"`
	Source    string              `json:"source"`
}

type AuditTrailResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

func NewAuditTrailResponse(entries []model.AuditLog) AuditTrailResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			EventID:   e.EventID,
			EventType: e.EventType,
			TaskID:    e.TaskID,
			TaskData:  e.TaskData,
			Timestamp: e.Timestamp.UTC(),
			Source:    e.Source,
		}
	}
	return AuditTrailResponse{Entries: out}
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}
