package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"todo-service.com/todo-service/internal/events"
	"todo-service.com/todo-service/internal/queue"
	repository "todo-service.com/todo-service/internal/repositories"
	model "todo-service.com/todo-service/pkg/models"
)

type recordingNotifier struct {
	mu        sync.Mutex
	reminders []events.ReminderEvent
	err       error
}

func (n *recordingNotifier) Notify(_ context.Context, r events.ReminderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reminders = append(n.reminders, r)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reminders)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	waitForTimeout(t, 2*time.Second, cond)
}

func reminderSent(t *testing.T, repo *repository.TaskRepository, task *model.Task) bool {
	t.Helper()
	stored, err := repo.FindByID(context.Background(), task.UserID, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return stored.ReminderSent
}

func TestPoolService_SweepDeliversOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := f.create(t, "u1", TaskInput{Title: "due soon", DueDate: "2024-01-01T08:30:00Z"})
	f.create(t, "u1", TaskInput{Title: "far away", DueDate: "2024-02-01T08:00:00Z"})
	f.create(t, "u1", TaskInput{Title: "no date"})

	notifier := &recordingNotifier{}
	pool := NewPoolService(f.repo, []events.Notifier{notifier}, PoolOptions{
		Workers:   2,
		QueueSize: 10,
		BatchSize: 10,
		Now:       func() time.Time { return f.now },
	})
	defer pool.Shutdown(ctx)

	queued, err := pool.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if queued != 1 {
		t.Fatalf("expected one due reminder, got %d", queued)
	}

	waitFor(t, func() bool { return reminderSent(t, f.repo, due) })

	queued, err = pool.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if queued != 0 {
		t.Fatalf("expected nothing left to remind, got %d", queued)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one delivery, got %d", notifier.count())
	}

	r := notifier.reminders[0]
	if r.TaskID != due.ID || r.ReminderType != "1_hour_before" || r.Title != "due soon" {
		t.Fatalf("unexpected reminder %+v", r)
	}
}

func TestPoolService_SkipsCompletedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "u1", TaskInput{Title: "done already", DueDate: "2024-01-01T08:30:00Z"})
	if _, err := f.service.CompleteTask(ctx, "u1", task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	notifier := &recordingNotifier{}
	pool := NewPoolService(f.repo, []events.Notifier{notifier}, PoolOptions{
		Workers: 1, QueueSize: 10, BatchSize: 10,
		Now: func() time.Time { return f.now },
	})

	queued, err := pool.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	pool.Shutdown(ctx)

	if queued != 0 || notifier.count() != 0 {
		t.Fatalf("completed tasks must not be reminded, queued=%d delivered=%d", queued, notifier.count())
	}
}

func TestPoolService_FailedDeliveryIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "u1", TaskInput{Title: "flaky", DueDate: "2024-01-01T08:30:00Z"})

	notifier := &recordingNotifier{err: errors.New("offline")}
	pool := NewPoolService(f.repo, []events.Notifier{notifier}, PoolOptions{
		Workers: 1, QueueSize: 10, BatchSize: 10,
		Now: func() time.Time { return f.now },
	})

	if _, err := pool.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	pool.Shutdown(ctx)

	if reminderSent(t, f.repo, task) {
		t.Fatalf("reminder must stay pending when no notifier accepted it")
	}
}

func TestPoolService_NoNotifiersLeavesRemindersPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "u1", TaskInput{Title: "nobody listening", DueDate: "2024-01-01T08:30:00Z"})

	pool := NewPoolService(f.repo, nil, PoolOptions{
		Workers: 1, QueueSize: 10, BatchSize: 10,
		Now: func() time.Time { return f.now },
	})

	queued, err := pool.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if queued != 0 {
		t.Fatalf("expected nothing queued without notifiers, got %d", queued)
	}

	if !pool.Enqueue(task) {
		t.Fatalf("expected enqueue to succeed")
	}
	pool.Shutdown(ctx)

	if reminderSent(t, f.repo, task) {
		t.Fatalf("reminder marked sent with no delivery channel")
	}
}

func TestPoolService_HonoursClaimsHeldElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "u1", TaskInput{Title: "shared", DueDate: "2024-01-01T08:30:00Z"})

	claims := queue.NewLocalClaimManager()
	if ok, _ := claims.Claim(ctx, "reminder:"+task.ID, time.Hour); !ok {
		t.Fatalf("pre-claim failed")
	}

	notifier := &recordingNotifier{}
	pool := NewPoolService(f.repo, []events.Notifier{notifier}, PoolOptions{
		Workers: 1, QueueSize: 10, BatchSize: 10, Claims: claims,
		Now: func() time.Time { return f.now },
	})
	defer pool.Shutdown(ctx)

	if _, err := pool.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	waitFor(t, func() bool {
		_, queued := pool.enqueued.Load(task.ID)
		return !queued
	})
	if notifier.count() != 0 || reminderSent(t, f.repo, task) {
		t.Fatalf("reminder delivered while another worker held the claim")
	}

	if err := claims.Release(ctx, "reminder:"+task.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := pool.Sweep(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	waitFor(t, func() bool { return reminderSent(t, f.repo, task) })
	if notifier.count() != 1 {
		t.Fatalf("expected one delivery, got %d", notifier.count())
	}
}

func TestPoolService_EnqueueDeduplicates(t *testing.T) {
	f := newFixture(t)
	pool := NewPoolService(f.repo, nil, PoolOptions{Workers: 1, QueueSize: 1, BatchSize: 1})
	pool.Shutdown(context.Background())

	if pool.Enqueue(&model.Task{ID: "x", UserID: "u1"}) {
		t.Fatalf("enqueue after shutdown must fail")
	}

	blocked := &PoolService{queue: make(chan reminderJob, 1)}
	task := &model.Task{ID: "a", UserID: "u1"}
	if !blocked.Enqueue(task) {
		t.Fatalf("expected first enqueue to succeed")
	}
	if blocked.Enqueue(task) {
		t.Fatalf("expected duplicate enqueue to be rejected")
	}
	if blocked.Enqueue(&model.Task{ID: "b", UserID: "u1"}) {
		t.Fatalf("expected enqueue on a full queue to fail")
	}
}

func TestSchedulerService_ScheduleInterval(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	if _, err := s.ScheduleInterval(0, func() {}); err == nil {
		t.Fatalf("expected error for non-positive interval")
	}

	var mu sync.Mutex
	runs := 0
	if _, err := s.ScheduleInterval(time.Second, func() {
		mu.Lock()
		runs++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	s.Start()
	waitForTimeout(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs > 0
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func waitForTimeout(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}
