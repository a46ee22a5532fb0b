package services

import (
	"time"

	"github.com/google/uuid"

	"todo-service.com/todo-service/internal/constants"
	model "todo-service.com/todo-service/pkg/models"
)

const day = 24 * time.Hour

// NextDueDate advances due by the pattern. A month is a fixed 30 days, not a
// calendar month. ok is false for an unknown pattern.
func NextDueDate(due time.Time, pattern constants.Recurrence) (next time.Time, ok bool) {
	switch pattern {
	case constants.RecurrenceDaily:
		return due.Add(day), true
	case constants.RecurrenceWeekly:
		return due.Add(7 * day), true
	case constants.RecurrenceMonthly:
		return due.Add(30 * day), true
	}
	return due, false
}

// SpawnsOccurrence reports whether completing t must produce a next occurrence.
func SpawnsOccurrence(t *model.Task) bool {
	return t.Recurring.Valid() && t.DueDate != nil
}

// NextOccurrence builds the pending sibling of a just-completed recurring task.
// It returns nil when the task does not recur or has no due date.
func NextOccurrence(source *model.Task, now time.Time) *model.Task {
	if !SpawnsOccurrence(source) {
		return nil
	}
	next, ok := NextDueDate(*source.DueDate, source.Recurring)
	if !ok {
		return nil
	}

	parentID := source.ID
	occurrence := &model.Task{
		ID:                uuid.NewString(),
		UserID:            source.UserID,
		Title:             source.Title,
		Description:       source.Description,
		Completed:         false,
		Priority:          source.Priority,
		Tags:              append(model.Tags{}, source.Tags...),
		Recurring:         source.Recurring,
		RecurringParentID: &parentID,
		Version:           1,
		CreatedAt:         now,
	}
	applyDueDate(occurrence, &next, DefaultReminderOffset)
	return occurrence
}
