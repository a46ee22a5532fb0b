package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"todo-service.com/todo-service/internal/constants"
	model "todo-service.com/todo-service/pkg/models"
)

// Publisher delivers an event payload to a topic. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type TaskEvent struct {
	EventID   string              `json:"event_id"`
	EventType constants.EventType `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	UserID    string              `json:"user_id"`
	TaskID    string              `json:"task_id"`
	TaskData  map[string]any      `json:"task_data"`
	Metadata  map[string]string   `json:"metadata"`
}

func NewTaskEvent(eventType constants.EventType, task *model.Task, source string, at time.Time) TaskEvent {
	return TaskEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: at.UTC(),
		UserID:    task.UserID,
		TaskID:    task.ID,
		TaskData:  task.Snapshot(),
		Metadata:  map[string]string{"source": source},
	}
}

type ReminderEvent struct {
	EventID      string    `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
	TaskID       string    `json:"task_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	DueAt        time.Time `json:"due_at"`
	RemindAt     time.Time `json:"remind_at"`
	ReminderType string    `json:"reminder_type"`
}

// NewReminderEvent returns false for a task that has no reminder scheduled.
func NewReminderEvent(task *model.Task, at time.Time) (ReminderEvent, bool) {
	if task.DueDate == nil || task.ReminderAt == nil {
		return ReminderEvent{}, false
	}
	return ReminderEvent{
		EventID:      uuid.NewString(),
		Timestamp:    at.UTC(),
		TaskID:       task.ID,
		UserID:       task.UserID,
		Title:        task.Title,
		DueAt:        task.DueDate.UTC(),
		RemindAt:     task.ReminderAt.UTC(),
		ReminderType: reminderType(task.DueDate.Sub(*task.ReminderAt)),
	}, true
}

func reminderType(lead time.Duration) string {
	if lead == time.Hour {
		return "1_hour_before"
	}
	return fmt.Sprintf("%d_minutes_before", int(lead.Minutes()))
}

// Noop drops every event. It is used when events are disabled.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Topic   string
	Payload any
}

func (r *Recorder) Publish(_ context.Context, topic string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Topic: topic, Payload: payload})
	return nil
}

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// TaskEvents returns the recorded task events of the given type.
func (r *Recorder) TaskEvents(eventType constants.EventType) []TaskEvent {
	var out []TaskEvent
	for _, e := range r.Events() {
		if te, ok := e.Payload.(TaskEvent); ok && te.EventType == eventType {
			out = append(out, te)
		}
	}
	return out
}
