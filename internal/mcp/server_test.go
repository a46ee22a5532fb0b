package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-service.com/todo-service/internal/constants"
	"todo-service.com/todo-service/internal/events"
	repository "todo-service.com/todo-service/internal/repositories"
	"todo-service.com/todo-service/internal/services"
	model "todo-service.com/todo-service/pkg/models"
)

func newTestServer(t *testing.T) (*server.MCPServer, *events.Recorder) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Task{}, &model.AuditLog{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	recorder := &events.Recorder{}
	svc := services.NewTaskService(repository.NewTaskRepository(db), recorder, nil, nil)
	return NewServer(svc, "u1"), recorder
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	return result
}

func payload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, "tool returned error: %v", result.Content)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &out))
	return out
}

func TestServerInitialization(t *testing.T) {
	s, _ := newTestServer(t)
	stdio := server.NewStdioServer(s)

	r, w := io.Pipe()
	stdout := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_ = stdio.Listen(ctx, r, stdout)
	}()

	data, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo":      map[string]any{"name": "test-client", "version": "1.0.0"},
		},
	})
	require.NoError(t, err)
	_, _ = w.Write(append(data, '\n'))

	time.Sleep(200 * time.Millisecond)
	require.Contains(t, stdout.String(), `"name":"todo"`)
}

func TestAddTaskIsLenient(t *testing.T) {
	s, recorder := newTestServer(t)

	out := payload(t, call(t, s, "add_task", map[string]any{
		"title":     "Read book",
		"priority":  "urgent",
		"recurring": "yearly",
		"tags":      []any{"home", "home"},
	}))
	require.Equal(t, "created", out["status"])

	list := payload(t, call(t, s, "list_tasks", map[string]any{}))
	tasks := list["tasks"].([]any)
	require.Len(t, tasks, 1)
	task := tasks[0].(map[string]any)
	require.Equal(t, "medium", task["priority"])
	require.Equal(t, "", task["recurring"])
	require.Equal(t, []any{"home"}, task["tags"])

	created := recorder.TaskEvents(constants.EventCreated)
	require.Len(t, created, 1)
	require.Equal(t, constants.SourceChat, created[0].Metadata["source"])
}

func TestAddTaskRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)

	result := call(t, s, "add_task", map[string]any{"title": "   "})
	require.True(t, result.IsError)

	result = call(t, s, "add_task", map[string]any{"title": "x", "due_date": "someday"})
	require.True(t, result.IsError)
	require.Contains(t, result.Content[0].(mcp.TextContent).Text, "someday")
}

func TestCompleteRecurringTaskSpawnsNext(t *testing.T) {
	s, _ := newTestServer(t)

	created := payload(t, call(t, s, "create_recurring_task", map[string]any{
		"title":    "Pay bills",
		"pattern":  "monthly",
		"due_date": "2024-01-31T09:00:00Z",
	}))
	id := created["task_id"].(string)

	done := payload(t, call(t, s, "complete_task", map[string]any{"task_id": id}))
	require.Equal(t, "completed", done["status"])
	require.Equal(t, "2024-03-01T09:00:00Z", done["next_due_date"])
	require.NotEmpty(t, done["next_task_id"])

	list := payload(t, call(t, s, "list_tasks", map[string]any{"status": "pending"}))
	require.Len(t, list["tasks"].([]any), 1)
	require.EqualValues(t, 2, list["total"])
}

func TestCreateRecurringTaskIsStrict(t *testing.T) {
	s, _ := newTestServer(t)

	result := call(t, s, "create_recurring_task", map[string]any{
		"title":    "x",
		"pattern":  "yearly",
		"due_date": "2024-01-01",
	})
	require.True(t, result.IsError)
}

func TestSetPriorityIsStrict(t *testing.T) {
	s, _ := newTestServer(t)
	id := payload(t, call(t, s, "add_task", map[string]any{"title": "x"}))["task_id"].(string)

	require.True(t, call(t, s, "set_priority", map[string]any{"task_id": id, "priority": "urgent"}).IsError)

	out := payload(t, call(t, s, "set_priority", map[string]any{"task_id": id, "priority": "HIGH"}))
	require.Equal(t, "high", out["priority"])
}

func TestTagsAndDueDateTools(t *testing.T) {
	s, _ := newTestServer(t)
	id := payload(t, call(t, s, "add_task", map[string]any{"title": "x"}))["task_id"].(string)

	out := payload(t, call(t, s, "add_tag", map[string]any{"task_id": id, "tag": "work"}))
	require.Equal(t, []any{"work"}, out["tags"])

	out = payload(t, call(t, s, "remove_tag", map[string]any{"task_id": id, "tag": "work"}))
	require.Equal(t, []any{}, out["tags"])

	out = payload(t, call(t, s, "set_due_date", map[string]any{
		"task_id":                 id,
		"due_date":                "2024-02-01T10:00:00Z",
		"reminder_minutes_before": 30.0,
	}))
	require.Equal(t, "2024-02-01T09:30:00Z", out["reminder_at"])
}

func TestUpdateAndDeleteTools(t *testing.T) {
	s, _ := newTestServer(t)
	id := payload(t, call(t, s, "add_task", map[string]any{"title": "x", "priority": "low"}))["task_id"].(string)

	out := payload(t, call(t, s, "update_task", map[string]any{
		"task_id":  id,
		"title":    "renamed",
		"priority": "bogus",
		"tags":     "a, b",
	}))
	require.Equal(t, "renamed", out["title"])
	require.Equal(t, "low", out["priority"])
	require.Equal(t, []any{"a", "b"}, out["tags"])

	require.True(t, call(t, s, "update_task", map[string]any{"task_id": id, "recurring": "yearly"}).IsError)

	search := payload(t, call(t, s, "search_tasks", map[string]any{"query": "RENAMED"}))
	require.Len(t, search["tasks"].([]any), 1)

	out = payload(t, call(t, s, "delete_task", map[string]any{"task_id": id}))
	require.Equal(t, "deleted", out["status"])

	require.True(t, call(t, s, "delete_task", map[string]any{"task_id": id}).IsError)
	require.True(t, call(t, s, "complete_task", map[string]any{"task_id": "nope"}).IsError)
}
