package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpapi "todo-service.com/todo-service/internal/http"
	"todo-service.com/todo-service/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task HTTP API together with the reminder scheduler and worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, appOptions{logOutput: os.Stdout, telemetry: true})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		cfg, logger := a.cfg, a.logger

		notifiers, err := a.notifiers()
		if err != nil {
			return err
		}

		var (
			pool      *services.PoolService
			scheduler *services.SchedulerService
		)
		if len(notifiers) == 0 {
			logger.Warn("no reminder channel configured, reminders stay pending until EVENTS_ENABLED or TELEGRAM_TOKEN is set")
		} else {
			pool = services.NewPoolService(a.repo, notifiers, services.PoolOptions{
				Workers:   cfg.ReminderWorkers,
				QueueSize: cfg.ReminderQueueSize,
				BatchSize: cfg.ReminderBatchSize,
				Logger:    logger,
				Metrics:   a.metrics,
				Claims:    a.claims(),
				ClaimTTL:  time.Duration(cfg.ReminderClaimSeconds) * time.Second,
			})

			scheduler = services.NewSchedulerService(time.UTC)
			if _, err := scheduler.ScheduleInterval(time.Duration(cfg.ReminderSweepSeconds)*time.Second, func() {
				if _, err := pool.Sweep(context.Background()); err != nil {
					logger.Error("reminder sweep failed", slog.Any("error", err))
				}
			}); err != nil {
				pool.Shutdown(context.Background())
				return err
			}
			scheduler.Start()
		}

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		httpapi.Register(e, httpapi.NewHandler(a.tasks, logger), cfg.RateLimit, a.metrics)

		server := &http.Server{
			Addr: cfg.AppURL,
			Handler: otelhttp.NewHandler(e, "http-server",
				otelhttp.WithFilter(func(r *http.Request) bool {
					return r.URL.Path != "/health"
				}),
			),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.Info("server listening", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				logger.Error("server error", slog.Any("error", err))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", slog.Any("error", err))
		}
		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
			pool.Shutdown(shutdownCtx)
		}

		logger.Info("HTTP server and reminder pool shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
