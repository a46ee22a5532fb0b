package events

import (
	"context"

	"todo-service.com/todo-service/internal/constants"
)

// Notifier delivers a due reminder to the task owner.
type Notifier interface {
	Notify(ctx context.Context, reminder ReminderEvent) error
}

// TopicNotifier forwards reminders to the reminders topic of a Publisher.
type TopicNotifier struct {
	Publisher Publisher
}

func (n TopicNotifier) Notify(ctx context.Context, reminder ReminderEvent) error {
	return n.Publisher.Publish(ctx, constants.TopicReminders, reminder)
}
