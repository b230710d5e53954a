package repository

import (
	"context"
	"time"

	"caseflow-data/internal/domain"
)

// TasksRepository per-client checklist items.
type TasksRepository interface {
	CreateTask(ctx context.Context, t *domain.Task) (string, error)
	ListTasks(ctx context.Context, clientID string) ([]*domain.Task, error)
	// CompleteTaskByTitle marks the first open task with the title done.
	// Returns whether a row was completed (false when none open).
	CompleteTaskByTitle(ctx context.Context, clientID, title, actorID string, at time.Time) (bool, error)
	DeleteTasksByClient(ctx context.Context, clientID string) error
}
