package service

import (
	"context"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

// UserService exposes user persistence in domain terms.
type UserService struct {
	adapter *store.Adapter
}

func NewUserService(a *store.Adapter) *UserService {
	return &UserService{adapter: a}
}

func (s *UserService) GetAll(ctx context.Context) ([]models.User, error) {
	return store.List[models.User](ctx, s.adapter, models.UserCollection, newestFirst)
}

func (s *UserService) GetByID(ctx context.Context, id string) (models.User, error) {
	return store.GetByID[models.User](ctx, s.adapter, models.UserCollection, id)
}

// Create stores a new user with an empty description and the member role
// unless given.
func (s *UserService) Create(ctx context.Context, p models.UserPatch) (models.User, error) {
	return store.Insert[models.User](ctx, s.adapter, models.UserCollection, p.WithDefaults())
}

func (s *UserService) Update(ctx context.Context, id string, p models.UserPatch) (models.User, error) {
	return store.Update[models.User](ctx, s.adapter, models.UserCollection, id, p)
}

func (s *UserService) Remove(ctx context.Context, id string) error {
	return store.Remove(ctx, s.adapter, models.UserCollection, id)
}
