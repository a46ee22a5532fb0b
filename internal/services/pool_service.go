package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "todo-service.com/todo-service/internal/errors"
	"todo-service.com/todo-service/internal/events"
	"todo-service.com/todo-service/internal/queue"
	repository "todo-service.com/todo-service/internal/repositories"
	"todo-service.com/todo-service/internal/telemetry"
	model "todo-service.com/todo-service/pkg/models"
)

type reminderJob struct {
	taskID string
	owner  string
}

// PoolService delivers due reminders with a fixed set of workers. Sweep feeds it
// from the store; a task id is queued at most once at a time.
type PoolService struct {
	queue     chan reminderJob
	wg        sync.WaitGroup
	enqueued  sync.Map
	mu        sync.RWMutex
	closed    bool
	repo      repository.TaskStore
	notifiers []events.Notifier
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	claims    queue.ClaimManager
	claimTTL  time.Duration
	batchSize int
	now       func() time.Time
}

const defaultClaimTTL = 2 * time.Minute

type PoolOptions struct {
	Workers   int
	QueueSize int
	BatchSize int
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Claims    queue.ClaimManager
	ClaimTTL  time.Duration
	Now       func() time.Time
}

func NewPoolService(repo repository.TaskStore, notifiers []events.Notifier, opts PoolOptions) *PoolService {
	if opts.Logger == nil {
		opts.Logger = telemetry.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NoopMetrics()
	}
	if opts.Claims == nil {
		opts.Claims = queue.NewLocalClaimManager()
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = defaultClaimTTL
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	p := &PoolService{
		queue:     make(chan reminderJob, max(opts.QueueSize, 1)),
		repo:      repo,
		notifiers: notifiers,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		claims:    opts.Claims,
		claimTTL:  opts.ClaimTTL,
		batchSize: max(opts.BatchSize, 1),
		now:       opts.Now,
	}

	for i := 1; i <= max(opts.Workers, 1); i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p
}

// Enqueue reports whether the task was queued. It returns false when the task is
// already queued, the queue is full or the pool is shut down.
func (p *PoolService) Enqueue(task *model.Task) bool {
	ok, _ := p.enqueueIfNotPresent(reminderJob{taskID: task.ID, owner: task.UserID})
	return ok
}

// Sweep queues every task whose reminder is due. It stops early when the queue
// fills up; the remaining tasks are picked up by the next sweep. Without any
// notifier nothing is queued and reminders stay pending.
func (p *PoolService) Sweep(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "PoolService.Sweep")
	defer span.End()

	if len(p.notifiers) == 0 {
		return 0, nil
	}

	tasks, err := p.repo.ListDueReminders(ctx, p.now(), p.batchSize)
	if err != nil {
		return 0, spanError(span, err)
	}

	queued := 0
	for i := range tasks {
		enqueued, queueFull := p.enqueueIfNotPresent(reminderJob{taskID: tasks[i].ID, owner: tasks[i].UserID})
		if queueFull {
			p.logger.WarnContext(ctx, "reminder queue full", slog.Int("pending", len(tasks)-i))
			break
		}
		if enqueued {
			queued++
		}
	}

	span.SetAttributes(attribute.Int("reminders.due", len(tasks)), attribute.Int("reminders.queued", queued))
	return queued, nil
}

func (p *PoolService) worker(workerID int) {
	defer p.wg.Done()

	p.logger.Debug("reminder worker started", slog.Int("worker", workerID))

	for job := range p.queue {
		p.handleReminder(workerID, job)
	}

	p.logger.Debug("reminder worker stopped", slog.Int("worker", workerID))
}

func (p *PoolService) handleReminder(workerID int, job reminderJob) {
	defer p.untrackEnqueued(job.taskID)

	ctx, span := tracer.Start(context.Background(), "PoolService.handleReminder",
		trace.WithAttributes(attribute.String("task.id", job.taskID)),
	)
	defer span.End()

	log := p.logger.With(slog.Int("worker", workerID), slog.String("task_id", job.taskID))

	task, err := p.repo.FindByID(ctx, job.owner, job.taskID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrTaskNotFound) {
			log.ErrorContext(ctx, "failed to load task for reminder", slog.Any("error", err))
		}
		return
	}

	now := p.now()
	if !reminderDue(task, now) {
		return
	}

	reminder, ok := events.NewReminderEvent(task, now)
	if !ok {
		return
	}

	key := "reminder:" + task.ID
	claimed, err := p.claims.Claim(ctx, key, p.claimTTL)
	if err != nil {
		log.ErrorContext(ctx, "failed to claim reminder", slog.Any("error", spanError(span, err)))
		return
	}
	if !claimed {
		log.DebugContext(ctx, "reminder claimed elsewhere")
		return
	}

	if !p.notify(ctx, log, reminder) {
		if err := p.claims.Release(ctx, key); err != nil {
			log.WarnContext(ctx, "failed to release reminder claim", slog.Any("error", err))
		}
		return
	}

	task.ReminderSent = true
	if err := p.repo.Update(ctx, task); err != nil {
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			log.WarnContext(ctx, "task changed while sending reminder")
			return
		}
		log.ErrorContext(ctx, "failed to mark reminder sent", slog.Any("error", spanError(span, err)))
		return
	}

	p.metrics.RemindersDispatched.Add(ctx, 1)
	log.InfoContext(ctx, "reminder sent", slog.String("reminder_type", reminder.ReminderType))
}

// notify reports whether at least one notifier accepted the reminder.
func (p *PoolService) notify(ctx context.Context, log *slog.Logger, reminder events.ReminderEvent) bool {
	delivered := false
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, reminder); err != nil {
			log.WarnContext(ctx, "reminder notifier failed", slog.Any("error", err))
			continue
		}
		delivered = true
	}
	return delivered
}

func reminderDue(task *model.Task, now time.Time) bool {
	return !task.Completed &&
		!task.ReminderSent &&
		task.ReminderAt != nil &&
		!task.ReminderAt.After(now)
}

func (p *PoolService) enqueueIfNotPresent(job reminderJob) (bool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, false
	}

	if !p.trackEnqueued(job.taskID) {
		return false, false
	}

	select {
	case p.queue <- job:
		return true, false
	default:
		p.untrackEnqueued(job.taskID)
		return false, true
	}
}

func (p *PoolService) trackEnqueued(taskID string) bool {
	_, loaded := p.enqueued.LoadOrStore(taskID, struct{}{})
	return !loaded
}

func (p *PoolService) untrackEnqueued(taskID string) {
	p.enqueued.Delete(taskID)
}

// Shutdown stops accepting reminders and waits for queued ones to be handled
// until ctx is done.
func (p *PoolService) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("reminder pool shut down cleanly")
	case <-ctx.Done():
		p.logger.Warn("reminder pool shutdown timed out")
	}
}
