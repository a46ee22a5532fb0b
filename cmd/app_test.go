package cmd

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"todo-service.com/todo-service/internal/events"
)

func TestNotifiersRequireAConfiguredChannel(t *testing.T) {
	setupConsole(t)
	t.Setenv("TELEGRAM_TOKEN", "")

	ctx := context.Background()
	a, err := newApp(ctx, appOptions{logOutput: io.Discard})
	require.NoError(t, err)
	defer a.Close(ctx)

	require.IsType(t, events.Noop{}, a.publisher)
	notifiers, err := a.notifiers()
	require.NoError(t, err)
	require.Empty(t, notifiers)
}
