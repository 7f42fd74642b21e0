package entitystore

import (
	"taskboard/internal/models"
	"taskboard/internal/service"
)

type (
	TaskStore = Store[models.Task, models.TaskPatch]
	UserStore = Store[models.User, models.UserPatch]
)

func NewTaskStore(svc *service.TaskService) *TaskStore {
	return New[models.Task, models.TaskPatch]("tasks", svc)
}

func NewUserStore(svc *service.UserService) *UserStore {
	return New[models.User, models.UserPatch]("users", svc)
}
