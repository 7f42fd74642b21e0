package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/service"
	"taskboard/internal/store"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	tasks   *service.TaskService
	users   *service.UserService
	adapter *store.Adapter
	logger  *slog.Logger
}

// New creates a new Handlers instance.
func New(tasks *service.TaskService, users *service.UserService, adapter *store.Adapter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		tasks:   tasks,
		users:   users,
		adapter: adapter,
		logger:  logger,
	}
}

// Routes mounts the JSON API on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/api/health", h.Health)

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Get("/{id}", h.GetTask)
		r.Patch("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Patch("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
		r.Get("/{id}/tasks", h.ListUserTasks)
	})
}

// Health reports which backend currently serves requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": string(h.adapter.Active().Kind()),
	})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "err", err)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func (h *Handlers) respondServerError(w http.ResponseWriter, err error) {
	h.logger.Error("internal server error", "err", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// respondStoreError maps persistence errors to status codes.
func (h *Handlers) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrEnvironmentUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, store.ErrBackend):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.respondServerError(w, err)
	}
}
