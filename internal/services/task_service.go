package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"todo-service.com/todo-service/internal/constants"
	apperrors "todo-service.com/todo-service/internal/errors"
	"todo-service.com/todo-service/internal/events"
	repository "todo-service.com/todo-service/internal/repositories"
	"todo-service.com/todo-service/internal/telemetry"
	"todo-service.com/todo-service/internal/validators"
	model "todo-service.com/todo-service/pkg/models"
)

var tracer = otel.Tracer("todo-service.com/todo-service/internal/services")

// TaskService is the single entry point used by the HTTP API, the console and the
// agent tools. It holds no state between calls.
type TaskService struct {
	repo      repository.TaskStore
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	validator validators.Validator
	source    string
	now       func() time.Time
}

func NewTaskService(
	repo repository.TaskStore,
	publisher events.Publisher,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *TaskService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = telemetry.Discard()
	}
	if metrics == nil {
		metrics = telemetry.NoopMetrics()
	}
	return &TaskService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		validator: validators.Strict,
		source:    constants.SourceAPI,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ForSource returns a copy whose audit rows and events carry source.
func (s *TaskService) ForSource(source string) *TaskService {
	c := *s
	c.source = source
	return &c
}

// WithValidator returns a copy that validates priority, recurrence and query
// enums with v.
func (s *TaskService) WithValidator(v validators.Validator) *TaskService {
	c := *s
	c.validator = v
	return &c
}

// WithClock replaces the time source.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	c := *s
	c.now = func() time.Time { return now().UTC() }
	return &c
}

func (s *TaskService) Validator() validators.Validator {
	return s.validator
}

type TaskInput struct {
	Title       string
	Description string
	Priority    string
	Tags        []string
	DueDate     string
	Recurring   string
}

// TaskPatch lists the fields to change. Nil fields are left alone; ClearDueDate
// removes the due date and its reminder and wins over DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *string
	Tags         *[]string
	DueDate      *string
	ClearDueDate bool
	Recurring    *string
	Completed    *bool
}

type DueDateOptions struct {
	SetReminder   bool
	OffsetMinutes int
}

func DefaultDueDateOptions() DueDateOptions {
	return DueDateOptions{SetReminder: true, OffsetMinutes: int(DefaultReminderOffset / time.Minute)}
}

// CompletionResult carries the task after a state change and, when the change
// completed a recurring task, the occurrence generated for it.
type CompletionResult struct {
	Task    *model.Task
	Spawned *model.Task
}

const (
	TagsAdd     = "add"
	TagsRemove  = "remove"
	TagsReplace = "replace"
)

// change is one mutation waiting to be audited and published.
type change struct {
	event events.TaskEvent
}

func (s *TaskService) CreateTask(ctx context.Context, owner string, in TaskInput) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.CreateTask",
		trace.WithAttributes(attribute.String("task.owner", owner)),
	)
	defer span.End()

	task, err := s.buildTask(owner, in)
	if err != nil {
		return nil, spanError(span, err)
	}

	err = s.commit(ctx, func(tx repository.TaskStore) ([]change, error) {
		if err := tx.Create(ctx, task); err != nil {
			return nil, err
		}
		return []change{s.changeOf(constants.EventCreated, task, s.source)}, nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	s.logger.InfoContext(ctx, "task created",
		slog.String("task_id", task.ID),
		slog.String("source", s.source),
	)
	return task, nil
}

func (s *TaskService) buildTask(owner string, in TaskInput) (*model.Task, error) {
	if owner == "" {
		return nil, apperrors.ErrOwnerRequired
	}
	title, err := validators.Title(in.Title)
	if err != nil {
		return nil, err
	}
	description, err := validators.Description(in.Description)
	if err != nil {
		return nil, err
	}
	priority, err := s.validator.Priority(in.Priority)
	if err != nil {
		return nil, err
	}
	recurring, err := s.validator.Recurrence(in.Recurring)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:          uuid.NewString(),
		UserID:      owner,
		Title:       title,
		Description: description,
		Priority:    priority,
		Tags:        validators.Tags(in.Tags),
		Recurring:   recurring,
		Version:     1,
		CreatedAt:   s.now(),
	}
	if in.DueDate != "" {
		due, err := validators.DueDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		applyDueDate(task, &due, DefaultReminderOffset)
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, owner string, q TaskQuery) (TaskPage, error) {
	ctx, span := tracer.Start(ctx, "TaskService.ListTasks",
		trace.WithAttributes(
			attribute.String("task.owner", owner),
			attribute.String("query.sort", string(q.Sort)),
		),
	)
	defer span.End()

	if owner == "" {
		return TaskPage{}, spanError(span, apperrors.ErrOwnerRequired)
	}
	tasks, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return TaskPage{}, spanError(span, err)
	}

	page := Query(tasks, q)
	span.SetAttributes(
		attribute.Int("query.total", page.Total),
		attribute.Int("query.returned", len(page.Tasks)),
	)
	return page, nil
}

func (s *TaskService) GetTask(ctx context.Context, owner, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.GetTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	taskID, err := validators.TaskID(id)
	if err != nil {
		return nil, spanError(span, err)
	}
	task, err := s.repo.FindByID(ctx, owner, taskID)
	if err != nil {
		return nil, spanError(span, err)
	}
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, owner, id string, patch TaskPatch) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.UpdateTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var result CompletionResult
	err := s.mutate(ctx, owner, id, func(tx repository.TaskStore, task *model.Task) ([]change, error) {
		if err := s.applyPatch(task, patch); err != nil {
			return nil, err
		}
		result.Task = task
		if patch.Completed != nil && *patch.Completed != task.Completed {
			changes, err := s.transition(ctx, tx, task, *patch.Completed, &result)
			if err != nil {
				return nil, err
			}
			return append([]change{s.changeOf(constants.EventUpdated, task, s.source)}, changes...), nil
		}
		return s.save(ctx, tx, task)
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return result.Task, nil
}

func (s *TaskService) applyPatch(task *model.Task, patch TaskPatch) error {
	if patch.Title != nil {
		title, err := validators.Title(*patch.Title)
		if err != nil {
			return err
		}
		task.Title = title
	}
	if patch.Description != nil {
		description, err := validators.Description(*patch.Description)
		if err != nil {
			return err
		}
		task.Description = description
	}
	if patch.Priority != nil {
		priority, err := s.validator.Priority(*patch.Priority)
		if err != nil {
			return err
		}
		task.Priority = priority
	}
	if patch.Recurring != nil {
		recurring, err := s.validator.Recurrence(*patch.Recurring)
		if err != nil {
			return err
		}
		task.Recurring = recurring
	}
	if patch.Tags != nil {
		task.Tags = validators.Tags(*patch.Tags)
	}
	switch {
	case patch.ClearDueDate:
		applyDueDate(task, nil, DefaultReminderOffset)
	case patch.DueDate != nil:
		due, err := validators.DueDate(*patch.DueDate)
		if err != nil {
			return err
		}
		if task.DueDate == nil || !task.DueDate.Equal(due) {
			applyDueDate(task, &due, DefaultReminderOffset)
		}
	}
	return nil
}

func (s *TaskService) DeleteTask(ctx context.Context, owner, id string) error {
	ctx, span := tracer.Start(ctx, "TaskService.DeleteTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	taskID, err := validators.TaskID(id)
	if err != nil {
		return spanError(span, err)
	}

	err = s.commit(ctx, func(tx repository.TaskStore) ([]change, error) {
		task, err := tx.FindByID(ctx, owner, taskID)
		if err != nil {
			return nil, err
		}
		if err := tx.Delete(ctx, owner, taskID); err != nil {
			return nil, err
		}
		return []change{s.changeOf(constants.EventDeleted, task, s.source)}, nil
	})
	if err != nil {
		return spanError(span, err)
	}

	s.logger.InfoContext(ctx, "task deleted", slog.String("task_id", taskID))
	return nil
}

// AuditTrail returns the owner's most recent audit rows, newest first.
func (s *TaskService) AuditTrail(ctx context.Context, owner string, limit int) ([]model.AuditLog, error) {
	ctx, span := tracer.Start(ctx, "TaskService.AuditTrail",
		trace.WithAttributes(attribute.String("task.owner", owner)),
	)
	defer span.End()

	if owner == "" {
		return nil, spanError(span, apperrors.ErrOwnerRequired)
	}
	entries, err := s.repo.ListAudit(ctx, owner, NormalizeLimit(limit))
	if err != nil {
		return nil, spanError(span, err)
	}
	return entries, nil
}

// CompleteTask moves a pending task to completed. An already completed task is
// returned unchanged and spawns nothing.
func (s *TaskService) CompleteTask(ctx context.Context, owner, id string) (CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "TaskService.CompleteTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var result CompletionResult
	err := s.mutate(ctx, owner, id, func(tx repository.TaskStore, task *model.Task) ([]change, error) {
		if task.Completed {
			result.Task = task
			return nil, nil
		}
		return s.transition(ctx, tx, task, true, &result)
	})
	if err != nil {
		return CompletionResult{}, spanError(span, err)
	}
	return result, nil
}

// ToggleTask flips the completion state. Only the pending to completed direction
// can spawn an occurrence.
func (s *TaskService) ToggleTask(ctx context.Context, owner, id string) (CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "TaskService.ToggleTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var result CompletionResult
	err := s.mutate(ctx, owner, id, func(tx repository.TaskStore, task *model.Task) ([]change, error) {
		return s.transition(ctx, tx, task, !task.Completed, &result)
	})
	if err != nil {
		return CompletionResult{}, spanError(span, err)
	}
	return result, nil
}

// transition writes the new completion state and, on completion of a recurring
// task with a due date, inserts the next occurrence in the same transaction.
func (s *TaskService) transition(
	ctx context.Context,
	tx repository.TaskStore,
	task *model.Task,
	completed bool,
	result *CompletionResult,
) ([]change, error) {
	now := s.now()
	task.Completed = completed
	task.UpdatedAt = &now
	if err := tx.Update(ctx, task); err != nil {
		return nil, err
	}
	result.Task = task

	if !completed {
		return []change{s.changeOf(constants.EventReopened, task, s.source)}, nil
	}

	changes := []change{s.changeOf(constants.EventCompleted, task, s.source)}

	occurrence := NextOccurrence(task, now)
	if occurrence == nil {
		return changes, nil
	}
	if err := tx.Create(ctx, occurrence); err != nil {
		return nil, err
	}
	result.Spawned = occurrence
	s.logger.InfoContext(ctx, "recurring occurrence spawned",
		slog.String("task_id", task.ID),
		slog.String("occurrence_id", occurrence.ID),
		slog.Time("due_date", *occurrence.DueDate),
	)
	return append(changes, s.changeOf(constants.EventSpawned, occurrence, constants.SourceRecurring)), nil
}

// SetDueDate replaces the due date. A nil due clears both the due date and the
// reminder. With SetReminder false the due date is stored without a reminder.
// OffsetMinutes is taken as given; zero puts the reminder at the due time.
func (s *TaskService) SetDueDate(
	ctx context.Context,
	owner, id string,
	due *time.Time,
	opts DueDateOptions,
) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.SetDueDate",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if opts.OffsetMinutes < 0 {
		return nil, spanError(span, apperrors.Invalid("reminder_minutes_before", "negative"))
	}
	offset := time.Duration(opts.OffsetMinutes) * time.Minute

	var result CompletionResult
	err := s.mutate(ctx, owner, id, func(tx repository.TaskStore, task *model.Task) ([]change, error) {
		applyDueDate(task, due, offset)
		if !opts.SetReminder {
			task.ReminderAt = nil
		}
		result.Task = task
		return s.save(ctx, tx, task)
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return result.Task, nil
}

// SetPriority always rejects unknown priorities, whatever the service's mode.
func (s *TaskService) SetPriority(ctx context.Context, owner, id, priority string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.SetPriority",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	p := constants.Priority(priority)
	if !p.Valid() {
		return nil, spanError(span, apperrors.Invalid("priority", priority))
	}

	var result CompletionResult
	err := s.mutate(ctx, owner, id, func(tx repository.TaskStore, task *model.Task) ([]change, error) {
		task.Priority = p
		result.Task = task
		return s.save(ctx, tx, task)
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return result.Task, nil
}

// AddTag is idempotent: adding a tag the task already has writes nothing.
func (s *TaskService) AddTag(ctx context.Context, owner, id, tag string) (*model.Task, error) {
	clean, err := validators.Tag(tag)
	if err != nil {
		return nil, err
	}
	return s.UpdateTags(ctx, owner, id, TagsAdd, []string{clean})
}

// RemoveTag is idempotent: removing an absent tag writes nothing.
func (s *TaskService) RemoveTag(ctx context.Context, owner, id, tag string) (*model.Task, error) {
	clean, err := validators.Tag(tag)
	if err != nil {
		return nil, err
	}
	return s.UpdateTags(ctx, owner, id, TagsRemove, []string{clean})
}

func (s *TaskService) UpdateTags(ctx context.Context, owner, id, action string, tags []string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.UpdateTags",
		trace.WithAttributes(
			attribute.String("task.id", id),
			attribute.String("tags.action", action),
		),
	)
	defer span.End()

	switch action {
	case TagsAdd, TagsRemove, TagsReplace:
	default:
		return nil, spanError(span, apperrors.Invalid("action", action))
	}
	clean := validators.Tags(tags)

	var result CompletionResult
	err := s.mutate(ctx, owner, id, func(tx repository.TaskStore, task *model.Task) ([]change, error) {
		result.Task = task
		next := mergeTags(task.Tags, action, clean)
		if slices.Equal(next, task.Tags) {
			return nil, nil
		}
		task.Tags = next
		return s.save(ctx, tx, task)
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return result.Task, nil
}

func mergeTags(current model.Tags, action string, tags []string) model.Tags {
	switch action {
	case TagsReplace:
		return model.Tags(tags)
	case TagsRemove:
		drop := make(map[string]struct{}, len(tags))
		for _, t := range tags {
			drop[t] = struct{}{}
		}
		next := make(model.Tags, 0, len(current))
		for _, t := range current {
			if _, ok := drop[t]; !ok {
				next = append(next, t)
			}
		}
		return next
	default:
		next := append(model.Tags{}, current...)
		for _, t := range tags {
			if !slices.Contains(next, t) {
				next = append(next, t)
			}
		}
		return next
	}
}

// mutate loads an owner's task inside a transaction and hands it to fn.
func (s *TaskService) mutate(
	ctx context.Context,
	owner, id string,
	fn func(tx repository.TaskStore, task *model.Task) ([]change, error),
) error {
	taskID, err := validators.TaskID(id)
	if err != nil {
		return err
	}
	return s.commit(ctx, func(tx repository.TaskStore) ([]change, error) {
		task, err := tx.FindByID(ctx, owner, taskID)
		if err != nil {
			return nil, err
		}
		return fn(tx, task)
	})
}

// save stamps updated_at and writes the task under the version lock.
func (s *TaskService) save(ctx context.Context, tx repository.TaskStore, task *model.Task) ([]change, error) {
	now := s.now()
	task.UpdatedAt = &now
	if err := tx.Update(ctx, task); err != nil {
		return nil, err
	}
	return []change{s.changeOf(constants.EventUpdated, task, s.source)}, nil
}

// commit runs fn in one store transaction together with the audit rows of the
// changes it reports. Events are published only after the commit succeeded.
func (s *TaskService) commit(ctx context.Context, fn func(tx repository.TaskStore) ([]change, error)) error {
	var changes []change
	err := s.repo.Transaction(ctx, func(tx repository.TaskStore) error {
		var err error
		changes, err = fn(tx)
		if err != nil {
			return err
		}
		for _, c := range changes {
			if err := tx.RecordAudit(ctx, auditEntry(c.event)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, c := range changes {
		s.count(ctx, c.event)
		if err := s.publisher.Publish(ctx, constants.TopicTaskEvents, c.event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish task event",
				slog.String("task_id", c.event.TaskID),
				slog.String("event_type", string(c.event.EventType)),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

func (s *TaskService) count(ctx context.Context, e events.TaskEvent) {
	switch e.EventType {
	case constants.EventCreated:
		s.metrics.TasksCreated.Add(ctx, 1)
	case constants.EventCompleted:
		s.metrics.TasksCompleted.Add(ctx, 1)
	case constants.EventSpawned:
		s.metrics.OccurrencesSpawned.Add(ctx, 1,
			metric.WithAttributes(attribute.String("recurring", fmt.Sprint(e.TaskData["recurring"]))),
		)
	}
}

func (s *TaskService) changeOf(eventType constants.EventType, task *model.Task, source string) change {
	return change{event: events.NewTaskEvent(eventType, task, source, s.now())}
}

func auditEntry(e events.TaskEvent) *model.AuditLog {
	return &model.AuditLog{
		ID:        uuid.NewString(),
		EventID:   e.EventID,
		EventType: e.EventType,
		UserID:    e.UserID,
		TaskID:    e.TaskID,
		TaskData:  e.TaskData,
		Timestamp: e.Timestamp,
		Source:    e.Metadata["source"],
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
