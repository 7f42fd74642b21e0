package service

import (
	"context"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

// newestFirst is the listing order of every service.
var newestFirst = store.ListOptions{
	OrderBy: &store.Order{Field: models.FieldCreatedAt, Descending: true},
}

// TaskService exposes task persistence in domain terms.
type TaskService struct {
	adapter *store.Adapter
}

func NewTaskService(a *store.Adapter) *TaskService {
	return &TaskService{adapter: a}
}

// GetAll returns every task, newest first.
func (s *TaskService) GetAll(ctx context.Context) ([]models.Task, error) {
	return store.List[models.Task](ctx, s.adapter, models.TaskCollection, newestFirst)
}

// ListAssignedTo returns the tasks assigned to a user, newest first.
func (s *TaskService) ListAssignedTo(ctx context.Context, userID string) ([]models.Task, error) {
	opts := newestFirst
	opts.Filters = map[string]any{"assigned_to_id": userID}
	return store.List[models.Task](ctx, s.adapter, models.TaskCollection, opts)
}

func (s *TaskService) GetByID(ctx context.Context, id string) (models.Task, error) {
	return store.GetByID[models.Task](ctx, s.adapter, models.TaskCollection, id)
}

// Create stores a new task, defaulting description, status and priority.
func (s *TaskService) Create(ctx context.Context, p models.TaskPatch) (models.Task, error) {
	return store.Insert[models.Task](ctx, s.adapter, models.TaskCollection, p.WithDefaults())
}

func (s *TaskService) Update(ctx context.Context, id string, p models.TaskPatch) (models.Task, error) {
	return store.Update[models.Task](ctx, s.adapter, models.TaskCollection, id, p)
}

func (s *TaskService) Remove(ctx context.Context, id string) error {
	return store.Remove(ctx, s.adapter, models.TaskCollection, id)
}
