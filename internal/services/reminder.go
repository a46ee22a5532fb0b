package services

import (
	"time"

	model "todo-service.com/todo-service/pkg/models"
)

const DefaultReminderOffset = time.Hour

// ReminderAt is the moment a reminder fires for a task due at due.
func ReminderAt(due time.Time, offset time.Duration) time.Time {
	return due.Add(-offset)
}

// applyDueDate sets the due date and keeps reminder_at derived from it.
// A nil due date clears both.
func applyDueDate(t *model.Task, due *time.Time, offset time.Duration) {
	t.ReminderSent = false
	if due == nil {
		t.DueDate = nil
		t.ReminderAt = nil
		return
	}

	d := due.UTC()
	r := ReminderAt(d, offset)
	t.DueDate = &d
	t.ReminderAt = &r
}
