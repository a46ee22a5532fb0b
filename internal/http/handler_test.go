package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dto "todo-service.com/todo-service/internal/data_models"
	repository "todo-service.com/todo-service/internal/repositories"
	"todo-service.com/todo-service/internal/services"
	"todo-service.com/todo-service/internal/telemetry"
	model "todo-service.com/todo-service/pkg/models"
)

func newTestServer(t *testing.T) *echo.Echo {
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

	svc := services.NewTaskService(repository.NewTaskRepository(db), nil, nil, nil)
	e := echo.New()
	Register(e, NewHandler(svc, telemetry.Discard()), 1000, telemetry.NoopMetrics())
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createTask(t *testing.T, e *echo.Echo, owner, body string) dto.TaskResponse {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/v1/tasks", owner, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.TaskResponse](t, rec)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateAndGetTask(t *testing.T) {
	e := newTestServer(t)

	task := createTask(t, e, "u1", `{"title":"Ship release","priority":"high","tags":["work"],"due_date":"2024-06-01T10:00:00"}`)
	require.Equal(t, "Ship release", task.Title)
	require.NotNil(t, task.ReminderAt)
	require.Equal(t, "2024-06-01T09:00:00Z", task.ReminderAt.Format("2006-01-02T15:04:05Z07:00"))

	rec := do(t, e, http.MethodGet, "/api/v1/tasks/"+task.ID, "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"due_date":"2024-06-01T10:00:00Z"`)

	rec = do(t, e, http.MethodGet, "/api/v1/tasks/"+task.ID, "someone-else", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/api/v1/tasks", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/v1/tasks", "u1", `{"title":"   "}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[dto.ErrorResponse](t, rec)
	require.Equal(t, "title", body.Field)
	require.Equal(t, "empty", body.Reason)

	rec = do(t, e, http.MethodPost, "/api/v1/tasks", "u1", `{"title":"x","due_date":"tomorrow"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "tomorrow")

	rec = do(t, e, http.MethodPost, "/api/v1/tasks", "u1", `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/v1/tasks?sort=colour", "u1", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/v1/tasks/not-a-uuid", "u1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTasks(t *testing.T) {
	e := newTestServer(t)
	createTask(t, e, "u1", `{"title":"Buy milk","tags":["home"],"due_date":"2024-01-03"}`)
	createTask(t, e, "u1", `{"title":"Write report","priority":"high","tags":["work"],"due_date":"2024-01-02"}`)
	done := createTask(t, e, "u1", `{"title":"Call mom"}`)
	require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/api/v1/tasks/"+done.ID+"/complete", "u1", "").Code)

	rec := do(t, e, http.MethodGet, "/api/v1/tasks?status=pending&sort=due_date&order=asc", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[dto.TaskListResponse](t, rec)
	require.Len(t, page.Tasks, 2)
	require.Equal(t, "Write report", page.Tasks[0].Title)
	require.Equal(t, 3, page.Total)
	require.Equal(t, 2, page.PendingCount)
	require.Equal(t, 1, page.CompletedCount)

	rec = do(t, e, http.MethodGet, "/api/v1/tasks?tags=home,errands&search=MILK", "u1", "")
	page = decode[dto.TaskListResponse](t, rec)
	require.Len(t, page.Tasks, 1)
	require.Equal(t, "Buy milk", page.Tasks[0].Title)

	rec = do(t, e, http.MethodGet, "/api/v1/tasks?completed=true", "u1", "")
	page = decode[dto.TaskListResponse](t, rec)
	require.Len(t, page.Tasks, 1)
	require.True(t, page.Tasks[0].Completed)
}

func TestCompleteRecurringTask(t *testing.T) {
	e := newTestServer(t)
	task := createTask(t, e, "u1", `{"title":"Gym","due_date":"2024-01-01T07:00:00Z","recurring":"daily"}`)

	rec := do(t, e, http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[dto.CompletionResponse](t, rec)
	require.True(t, result.Task.Completed)
	require.NotNil(t, result.Spawned)
	require.Equal(t, "2024-01-02T07:00:00Z", result.Spawned.DueDate.Format("2006-01-02T15:04:05Z07:00"))
	require.Equal(t, task.ID, *result.Spawned.RecurringParentID)

	rec = do(t, e, http.MethodPost, "/api/v1/tasks/"+task.ID+"/toggle", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[dto.CompletionResponse](t, rec)
	require.False(t, result.Task.Completed)
	require.Nil(t, result.Spawned)
}

func TestPatchTask(t *testing.T) {
	e := newTestServer(t)
	task := createTask(t, e, "u1", `{"title":"Draft","due_date":"2024-01-01T07:00:00Z"}`)

	rec := do(t, e, http.MethodPatch, "/api/v1/tasks/"+task.ID, "u1", `{"title":"Final"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[dto.TaskResponse](t, rec)
	require.Equal(t, "Final", updated.Title)
	require.NotNil(t, updated.DueDate)
	require.NotNil(t, updated.UpdatedAt)

	rec = do(t, e, http.MethodPatch, "/api/v1/tasks/"+task.ID, "u1", `{"due_date":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decode[dto.TaskResponse](t, rec)
	require.Nil(t, updated.DueDate)
	require.Nil(t, updated.ReminderAt)
}

func TestPriorityTagsAndDueDateEndpoints(t *testing.T) {
	e := newTestServer(t)
	task := createTask(t, e, "u1", `{"title":"Plan trip"}`)
	base := "/api/v1/tasks/" + task.ID

	rec := do(t, e, http.MethodPatch, base+"/priority", "u1", `{"priority":"low"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "low", string(decode[dto.TaskResponse](t, rec).Priority))

	rec = do(t, e, http.MethodPatch, base+"/priority", "u1", `{"priority":"urgent"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodPost, base+"/tags/travel", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodPost, base+"/tags/travel", "u1", "")
	require.Equal(t, []string{"travel"}, decode[dto.TaskResponse](t, rec).Tags)

	rec = do(t, e, http.MethodPatch, base+"/tags", "u1", `{"action":"replace","tags":["a","b"]}`)
	require.Equal(t, []string{"a", "b"}, decode[dto.TaskResponse](t, rec).Tags)

	rec = do(t, e, http.MethodDelete, base+"/tags/a", "u1", "")
	require.Equal(t, []string{"b"}, decode[dto.TaskResponse](t, rec).Tags)

	rec = do(t, e, http.MethodPatch, base+"/due-date", "u1", `{"due_date":"2024-05-01T12:00:00Z","reminder_minutes_before":15}`)
	require.Equal(t, http.StatusOK, rec.Code)
	withDue := decode[dto.TaskResponse](t, rec)
	require.Equal(t, "2024-05-01T11:45:00Z", withDue.ReminderAt.Format("2006-01-02T15:04:05Z07:00"))

	rec = do(t, e, http.MethodPatch, base+"/due-date", "u1", `{"due_date":"2024-03-01T15:00:00Z","reminder_minutes_before":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	atDue := decode[dto.TaskResponse](t, rec)
	require.Equal(t, "2024-03-01T15:00:00Z", atDue.ReminderAt.Format("2006-01-02T15:04:05Z07:00"))

	rec = do(t, e, http.MethodPatch, base+"/due-date", "u1", `{"due_date":"2024-03-01T15:00:00Z"}`)
	require.Equal(t, "2024-03-01T14:00:00Z", decode[dto.TaskResponse](t, rec).ReminderAt.Format("2006-01-02T15:04:05Z07:00"))

	rec = do(t, e, http.MethodPatch, base+"/due-date", "u1", `{"due_date":null}`)
	cleared := decode[dto.TaskResponse](t, rec)
	require.Nil(t, cleared.DueDate)
	require.Nil(t, cleared.ReminderAt)
}

func TestDeleteTask(t *testing.T) {
	e := newTestServer(t)
	task := createTask(t, e, "u1", `{"title":"Old"}`)

	rec := do(t, e, http.MethodDelete, "/api/v1/tasks/"+task.ID, "u1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/v1/tasks/"+task.ID, "u1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limited := echo.New()
	svc := services.NewTaskService(nil, nil, nil, nil)
	Register(limited, NewHandler(svc, telemetry.Discard()), 1, telemetry.NoopMetrics())

	rec := do(t, limited, http.MethodGet, "/api/v1/tasks/not-a-uuid", "u1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, limited, http.MethodGet, "/api/v1/tasks/not-a-uuid", "u1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, limited, http.MethodGet, "/api/v1/tasks/not-a-uuid", "u2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditTrail(t *testing.T) {
	e := newTestServer(t)
	task := createTask(t, e, "u1", `{"title":"Audit me"}`)
	rec := do(t, e, http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/v1/audit?limit=10", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trail := decode[dto.AuditTrailResponse](t, rec)
	require.Len(t, trail.Entries, 2)

	types := map[string]bool{}
	for _, entry := range trail.Entries {
		require.Equal(t, task.ID, entry.TaskID)
		require.Equal(t, "api", entry.Source)
		types[string(entry.EventType)] = true
	}
	require.True(t, types["created"])
	require.True(t, types["completed"])

	rec = do(t, e, http.MethodGet, "/api/v1/audit", "u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[dto.AuditTrailResponse](t, rec).Entries)

	rec = do(t, e, http.MethodGet, "/api/v1/audit?limit=ten", "u1", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/v1/audit", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
