package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/models"
)

// ListTasks returns every task, newest first. The assigned_to query
// parameter narrows the list to one user's tasks.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		tasks []models.Task
		err   error
	)
	if userID := r.URL.Query().Get("assigned_to"); userID != "" {
		tasks, err = h.tasks.ListAssignedTo(ctx, userID)
	} else {
		tasks, err = h.tasks.GetAll(ctx)
	}
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// GetTask returns a single task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// CreateTask creates a new task.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := patch.Validate(true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.Create(r.Context(), patch)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask merges the request body into an existing task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := patch.Validate(false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
