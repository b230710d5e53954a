package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"caseflow-data/internal/domain"
)

// PostgresTasksRepository TasksRepository backed by PostgreSQL.
type PostgresTasksRepository struct {
	db *sql.DB
}

func NewPostgresTasksRepository(db *sql.DB) *PostgresTasksRepository {
	return &PostgresTasksRepository{db: db}
}

var _ TasksRepository = (*PostgresTasksRepository)(nil)

func (r *PostgresTasksRepository) CreateTask(ctx context.Context, t *domain.Task) (string, error) {
	if t == nil || t.ClientID == "" || t.Title == "" {
		return "", fmt.Errorf("client_id and title are required")
	}

	var taskID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (client_id, title, completed)
		VALUES ($1, $2, FALSE)
		RETURNING task_id::text`,
		t.ClientID, t.Title,
	).Scan(&taskID)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}
	return taskID, nil
}

func (r *PostgresTasksRepository) ListTasks(ctx context.Context, clientID string) ([]*domain.Task, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			task_id::text,
			client_id::text,
			title,
			completed,
			completed_at,
			completed_by::text,
			created_at
		FROM tasks
		WHERE client_id = $1
		ORDER BY created_at, task_id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	out := []*domain.Task{}
	for rows.Next() {
		var t domain.Task
		var completedAt sql.NullTime
		var completedBy sql.NullString
		if err := rows.Scan(&t.TaskID, &t.ClientID, &t.Title, &t.Completed, &completedAt, &completedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		if completedBy.Valid {
			t.CompletedBy = &completedBy.String
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// CompleteTaskByTitle only touches open tasks, so repeated calls are no-ops.
func (r *PostgresTasksRepository) CompleteTaskByTitle(ctx context.Context, clientID, title, actorID string, at time.Time) (bool, error) {
	if clientID == "" || title == "" {
		return false, fmt.Errorf("client_id and title are required")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET completed = TRUE, completed_at = $3, completed_by = $4
		WHERE task_id = (
			SELECT task_id FROM tasks
			WHERE client_id = $1 AND title = $2 AND completed = FALSE
			ORDER BY created_at
			LIMIT 1
		)`,
		clientID, title, at, nullEmpty(actorID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresTasksRepository) DeleteTasksByClient(ctx context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}
