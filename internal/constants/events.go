package constants

type EventType string

const (
	EventCreated   EventType = "created"
	EventUpdated   EventType = "updated"
	EventCompleted EventType = "completed"
	EventReopened  EventType = "reopened"
	EventDeleted   EventType = "deleted"
	EventSpawned   EventType = "spawned"
)

// Audit and event sources.
const (
	SourceAPI       = "api"
	SourceChat      = "chat"
	SourceCLI       = "cli"
	SourceRecurring = "recurring-service"
)

const (
	TopicTaskEvents = "task-events"
	TopicReminders  = "reminders"
)
