package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/redis/rueidis"
	"go.opentelemetry.io/otel"

	config "todo-service.com/todo-service/internal/configs"
	"todo-service.com/todo-service/internal/events"
	"todo-service.com/todo-service/internal/queue"
	repository "todo-service.com/todo-service/internal/repositories"
	"todo-service.com/todo-service/internal/services"
	"todo-service.com/todo-service/internal/telemetry"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	repo      *repository.TaskRepository
	publisher events.Publisher
	redis     rueidis.Client
	tasks     *services.TaskService
	closers   []func(context.Context) error
}

type appOptions struct {
	// logOutput overrides where logs go; the MCP server keeps stdout for the protocol.
	logOutput io.Writer
	telemetry bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{cfg: cfg}

	if opts.telemetry {
		logger, shutdown, err := telemetry.Setup(ctx, telemetry.Options{
			ServiceName:  cfg.ServiceName,
			Environment:  cfg.Environment,
			OTLPEndpoint: cfg.OTLPEndpoint,
			LogLevel:     cfg.LogLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("setup telemetry: %w", err)
		}
		a.logger = logger
		a.closers = append(a.closers, shutdown)
	} else {
		a.logger = telemetry.NewLogger(opts.logOutput, cfg.LogLevel)
	}

	a.metrics, err = telemetry.NewMetrics(otel.Meter(cfg.ServiceName))
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	db, err := config.NewDatabase(cfg.DatabaseDSN, a.logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
	}
	a.repo = repository.NewTaskRepository(db)

	a.publisher = events.Noop{}
	if cfg.EventsEnabled {
		client, err := config.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { client.Close(); return nil })
		a.redis = client
		a.publisher = events.NewRedisPublisher(client, cfg.EventChannelPrefix)
	}

	a.tasks = services.NewTaskService(a.repo, a.publisher, a.logger, a.metrics)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.logger != nil {
			a.logger.WarnContext(ctx, "shutdown step failed", slog.Any("error", err))
		}
	}
	a.closers = nil
}

// notifiers returns the reminder channels enabled by configuration. It is empty
// when neither events nor Telegram are configured.
func (a *app) notifiers() ([]events.Notifier, error) {
	var notifiers []events.Notifier
	if a.cfg.EventsEnabled {
		notifiers = append(notifiers, events.TopicNotifier{Publisher: a.publisher})
	}
	if a.cfg.TelegramToken != "" {
		tg, err := events.NewTelegramNotifier(a.cfg.TelegramToken, a.cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
	}
	return notifiers, nil
}

// claims coordinates reminder delivery through Redis when it is configured.
func (a *app) claims() queue.ClaimManager {
	if a.redis != nil {
		return queue.NewRedisClaimManager(a.redis, a.cfg.EventChannelPrefix+"claims:")
	}
	return queue.NewLocalClaimManager()
}
