package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/models"
	"taskboard/internal/service"
	"taskboard/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandlers(local store.Backend) (*Handlers, *service.TaskService, *service.UserService) {
	logger := quietLogger()
	adapter := store.NewAdapter(nil, local, nil, store.WithLogger(logger))
	tasks := service.NewTaskService(adapter)
	users := service.NewUserService(adapter)
	return New(tasks, users, adapter, logger), tasks, users
}

func setupTestHandlers(t *testing.T) (*Handlers, *service.TaskService, *service.UserService) {
	t.Helper()
	return newTestHandlers(store.NewLocalBackend(store.NewMemoryKV()))
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCreateTaskHandler_AppliesDefaults(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(`{"name":"A","description":"d"}`))
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	task := decodeBody[models.Task](t, rec)
	if task.ID == "" {
		t.Error("expected id to be assigned")
	}
	if task.Status != models.StatusTodo {
		t.Errorf("expected status %q, got %q", models.StatusTodo, task.Status)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("expected priority %q, got %q", models.PriorityMedium, task.Priority)
	}
	if task.CreatedAt.IsZero() || !task.CreatedAt.Equal(task.UpdatedAt) {
		t.Errorf("expected equal creation timestamps, got %v and %v", task.CreatedAt, task.UpdatedAt)
	}
}

func TestCreateTaskHandler_ValidationError(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"description":"d"}`},
		{"blank name", `{"name":"  "}`},
		{"bad status", `{"name":"A","status":"done"}`},
		{"bad due date", `{"name":"A","due_date":"tomorrow"}`},
		{"unknown field", `{"name":"A","project_id":1}`},
		{"not json", `name=A`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.CreateTask(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			body := decodeBody[map[string]string](t, rec)
			if body["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestUpdateTaskHandler_MergesFields(t *testing.T) {
	h, tasks, _ := setupTestHandlers(t)
	ctx := context.Background()

	created, err := tasks.Create(ctx, models.TaskPatch{Name: models.Ptr("A"), Description: models.Ptr("d")})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	req := httptest.NewRequest("PATCH", "/api/tasks/"+created.ID, strings.NewReader(`{"status":"completed"}`))
	rec := httptest.NewRecorder()

	h.UpdateTask(rec, withID(req, created.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	task := decodeBody[models.Task](t, rec)
	if task.Status != models.StatusCompleted {
		t.Errorf("expected status %q, got %q", models.StatusCompleted, task.Status)
	}
	if task.Description != "d" {
		t.Errorf("expected description to be kept, got %q", task.Description)
	}
	if !task.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", created.CreatedAt, task.CreatedAt)
	}
	if !task.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("expected updated_at after %v, got %v", created.UpdatedAt, task.UpdatedAt)
	}
}

func TestTaskHandlers_NotFound(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	tests := []struct {
		name    string
		method  string
		body    string
		handler http.HandlerFunc
	}{
		{"get", "GET", "", h.GetTask},
		{"update", "PATCH", `{"name":"B"}`, h.UpdateTask},
		{"delete", "DELETE", "", h.DeleteTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/tasks/missing", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			tt.handler(rec, withID(req, "missing"))

			if rec.Code != http.StatusNotFound {
				t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
			}
		})
	}
}

func TestDeleteTaskHandler_Success(t *testing.T) {
	h, tasks, _ := setupTestHandlers(t)
	ctx := context.Background()

	created, _ := tasks.Create(ctx, models.TaskPatch{Name: models.Ptr("A")})

	req := httptest.NewRequest("DELETE", "/api/tasks/"+created.ID, nil)
	rec := httptest.NewRecorder()

	h.DeleteTask(rec, withID(req, created.ID))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, err := tasks.GetByID(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected task to be deleted, got %v", err)
	}
}

func TestListTasksHandler_EmptyIsArray(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestListTasksHandler_NewestFirstAndFilter(t *testing.T) {
	h, tasks, _ := setupTestHandlers(t)
	ctx := context.Background()

	tasks.Create(ctx, models.TaskPatch{Name: models.Ptr("first"), AssignedToID: models.Ptr("u1")})
	tasks.Create(ctx, models.TaskPatch{Name: models.Ptr("second")})
	tasks.Create(ctx, models.TaskPatch{Name: models.Ptr("third"), AssignedToID: models.Ptr("u1")})

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	rec := httptest.NewRecorder()
	h.ListTasks(rec, req)

	all := decodeBody[[]models.Task](t, rec)
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(all))
	}
	if all[0].Name != "third" || all[2].Name != "first" {
		t.Errorf("expected newest first, got %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	req = httptest.NewRequest("GET", "/api/tasks?assigned_to=u1", nil)
	rec = httptest.NewRecorder()
	h.ListTasks(rec, req)

	assigned := decodeBody[[]models.Task](t, rec)
	if len(assigned) != 2 {
		t.Errorf("expected 2 assigned tasks, got %d", len(assigned))
	}
}

func TestUserHandlers_CreateAndListTasks(t *testing.T) {
	h, tasks, _ := setupTestHandlers(t)
	ctx := context.Background()

	req := httptest.NewRequest("POST", "/api/users", bytes.NewBufferString(`{"name":"Ada","email":"ada@example.com"}`))
	rec := httptest.NewRecorder()
	h.CreateUser(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	user := decodeBody[models.User](t, rec)
	if user.Role != models.RoleMember {
		t.Errorf("expected role %q, got %q", models.RoleMember, user.Role)
	}

	tasks.Create(ctx, models.TaskPatch{Name: models.Ptr("A"), AssignedToID: models.Ptr(user.ID)})
	tasks.Create(ctx, models.TaskPatch{Name: models.Ptr("B")})

	req = httptest.NewRequest("GET", "/api/users/"+user.ID+"/tasks", nil)
	rec = httptest.NewRecorder()
	h.ListUserTasks(rec, withID(req, user.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := decodeBody[[]models.Task](t, rec); len(got) != 1 || got[0].Name != "A" {
		t.Errorf("expected the one assigned task, got %+v", got)
	}

	req = httptest.NewRequest("GET", "/api/users/missing/tasks", nil)
	rec = httptest.NewRecorder()
	h.ListUserTasks(rec, withID(req, "missing"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestCreateUserHandler_InvalidEmail(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"name":"Ada","email":"nope"}`))
	rec := httptest.NewRecorder()
	h.CreateUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandlers_EnvironmentUnavailable(t *testing.T) {
	h, _, _ := newTestHandlers(store.NewLocalBackend(nil))

	req := httptest.NewRequest("GET", "/api/users", nil)
	rec := httptest.NewRecorder()
	h.ListUsers(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

// brokenBackend fails every call the way an unreachable service would.
type brokenBackend struct{}

var errUnreachable = errors.New("connection refused")

func (brokenBackend) Kind() store.Kind { return store.KindRemote }

func (brokenBackend) List(context.Context, string, store.ListOptions) ([]models.Document, error) {
	return nil, errUnreachable
}

func (brokenBackend) Get(context.Context, string, string) (models.Document, error) {
	return nil, errUnreachable
}

func (brokenBackend) Insert(context.Context, string, models.Document) (models.Document, error) {
	return nil, errUnreachable
}

func (brokenBackend) Update(context.Context, string, string, models.Document) (models.Document, error) {
	return nil, errUnreachable
}

func (brokenBackend) Remove(context.Context, string, string) error {
	return errUnreachable
}

func TestHandlers_BackendFailure(t *testing.T) {
	h, _, _ := newTestHandlers(brokenBackend{})

	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(`{"name":"A"}`))
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if !strings.Contains(body["error"], "connection refused") {
		t.Errorf("expected cause in error, got %q", body["error"])
	}
}

func TestRoutes_HealthReportsActiveBackend(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := decodeBody[map[string]string](t, rec)["backend"]; got != "local" {
		t.Errorf("expected local backend, got %q", got)
	}
}

func TestRoutes_TaskLifecycle(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	r := chi.NewRouter()
	h.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/tasks", strings.NewReader(`{"name":"A"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	task := decodeBody[models.Task](t, rec)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PATCH", "/api/tasks/"+task.ID, strings.NewReader(`{"priority":"high"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/tasks/"+task.ID, nil))
	if got := decodeBody[models.Task](t, rec); got.Priority != models.PriorityHigh {
		t.Errorf("expected priority %q, got %q", models.PriorityHigh, got.Priority)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/tasks/"+task.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/tasks/"+task.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
