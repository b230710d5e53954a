package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"caseflow-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryTasksRepository in-memory TasksRepository.
type MemoryTasksRepository struct {
	mu    sync.RWMutex
	tasks map[string][]*domain.Task // clientID -> rows, insertion order
}

func NewMemoryTasksRepository() *MemoryTasksRepository {
	return &MemoryTasksRepository{tasks: map[string][]*domain.Task{}}
}

var _ TasksRepository = (*MemoryTasksRepository)(nil)

func (r *MemoryTasksRepository) CreateTask(_ context.Context, t *domain.Task) (string, error) {
	if t == nil || t.ClientID == "" || t.Title == "" {
		return "", fmt.Errorf("client_id and title are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *t
	cp.TaskID = uuid.NewString()
	cp.Completed = false
	cp.CompletedAt = nil
	cp.CompletedBy = nil
	cp.CreatedAt = time.Now()
	r.tasks[cp.ClientID] = append(r.tasks[cp.ClientID], &cp)
	return cp.TaskID, nil
}

func (r *MemoryTasksRepository) ListTasks(_ context.Context, clientID string) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Task, 0, len(r.tasks[clientID]))
	for _, t := range r.tasks[clientID] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryTasksRepository) CompleteTaskByTitle(_ context.Context, clientID, title, actorID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tasks[clientID] {
		if t.Title == title && !t.Completed {
			t.Completed = true
			stamp := at
			t.CompletedAt = &stamp
			if actorID != "" {
				actor := actorID
				t.CompletedBy = &actor
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryTasksRepository) DeleteTasksByClient(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, clientID)
	return nil
}
