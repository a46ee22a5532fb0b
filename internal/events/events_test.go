package events

import (
	"context"
	"strings"
	"testing"
	"time"

	"todo-service.com/todo-service/internal/constants"
	model "todo-service.com/todo-service/pkg/models"
)

func TestNewReminderEvent(t *testing.T) {
	due := time.Date(2024, 1, 20, 18, 0, 0, 0, time.UTC)
	remind := due.Add(-time.Hour)
	task := &model.Task{ID: "t1", UserID: "u1", Title: "Pay rent", DueDate: &due, ReminderAt: &remind}

	ev, ok := NewReminderEvent(task, due)
	if !ok {
		t.Fatal("expected reminder event")
	}
	if ev.ReminderType != "1_hour_before" {
		t.Errorf("expected 1_hour_before, got %s", ev.ReminderType)
	}

	early := due.Add(-90 * time.Minute)
	task.ReminderAt = &early
	ev, _ = NewReminderEvent(task, due)
	if ev.ReminderType != "90_minutes_before" {
		t.Errorf("expected 90_minutes_before, got %s", ev.ReminderType)
	}

	task.ReminderAt = nil
	if _, ok := NewReminderEvent(task, due); ok {
		t.Error("expected no event without reminder_at")
	}
}

func TestTopicNotifier(t *testing.T) {
	rec := &Recorder{}
	n := TopicNotifier{Publisher: rec}

	if err := n.Notify(context.Background(), ReminderEvent{TaskID: "t1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	got := rec.Events()
	if len(got) != 1 || got[0].Topic != constants.TopicReminders {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestFormatReminder_EscapesTitle(t *testing.T) {
	msg := FormatReminder(ReminderEvent{
		Title: " <b>taxes</b> ",
		DueAt: time.Date(2024, 4, 15, 9, 30, 0, 0, time.UTC),
	})
	if !strings.Contains(msg, "&lt;b&gt;taxes&lt;/b&gt;") {
		t.Errorf("expected escaped title, got %q", msg)
	}
	if !strings.Contains(msg, "2024-04-15 09:30") {
		t.Errorf("expected due date, got %q", msg)
	}
}

func TestNewTaskEvent(t *testing.T) {
	task := &model.Task{ID: "t1", UserID: "u1", Title: "Write", Tags: model.Tags{"a"}}
	ev := NewTaskEvent(constants.EventCreated, task, constants.SourceAPI, time.Now())

	if ev.EventID == "" || ev.TaskID != "t1" || ev.UserID != "u1" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Metadata["source"] != constants.SourceAPI {
		t.Errorf("expected api source, got %v", ev.Metadata)
	}
	if ev.TaskData["title"] != "Write" {
		t.Errorf("expected snapshot title, got %v", ev.TaskData["title"])
	}
}
