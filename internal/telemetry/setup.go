package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

type Options struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	LogLevel     string
}

// Setup wires tracing, metrics and logging. Logs always go to stdout as JSON;
// with an OTLP endpoint they are also exported, and traces and metrics are
// installed as global providers sharing one gRPC connection.
func Setup(ctx context.Context, opts Options) (*slog.Logger, func(context.Context) error, error) {
	logger := NewLogger(os.Stdout, opts.LogLevel)
	if opts.OTLPEndpoint == "" {
		return logger, func(context.Context) error { return nil }, nil
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	conn, err := newConn(opts.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	shutdowns = append(shutdowns, func(context.Context) error { return conn.Close() })

	tp, err := InitTracerProvider(ctx, conn, opts.ServiceName, opts.Environment)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	shutdowns = append(shutdowns, tp.Shutdown)

	mp, err := InitMeterProvider(ctx, conn, opts.ServiceName, opts.Environment)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	shutdowns = append(shutdowns, mp.Shutdown)

	lp, otelLogger, err := InitLoggerProvider(ctx, conn, opts.ServiceName, opts.Environment)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	shutdowns = append(shutdowns, lp.Shutdown)

	return slog.New(NewFanoutHandler(logger.Handler(), otelLogger.Handler())), shutdown, nil
}
