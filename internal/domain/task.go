package domain

import "time"

// TaskIntakeForm is completed by the intake pipeline when a client's intake
// is first marked done.
const TaskIntakeForm = "Complete Full Intake Form"

// Task per-client checklist item (tasks table).
type Task struct {
	TaskID   string `db:"task_id"`   // UUID, PRIMARY KEY
	ClientID string `db:"client_id"` // UUID, NOT NULL

	Title       string     `db:"title"` // VARCHAR(200), NOT NULL
	Completed   bool       `db:"completed"`
	CompletedAt *time.Time `db:"completed_at"` // TIMESTAMPTZ, nullable
	CompletedBy *string    `db:"completed_by"` // UUID, nullable

	CreatedAt time.Time `db:"created_at"`
}
