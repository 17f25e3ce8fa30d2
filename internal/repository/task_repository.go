package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// TaskRepository handles study schedule tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// Create inserts a task.
func (r *TaskRepository) Create(ctx context.Context, t *model.StudyTask) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO study_tasks (user_id, title, notes, due_date, source)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.UserID, t.Title, t.Notes, t.DueDate, t.Source,
	).Scan(&t.ID, &t.CreatedAt)
}

// ListByUser retrieves a user's tasks due on or after the given date,
// earliest first. Completed tasks are included so the schedule view can
// cross them out.
func (r *TaskRepository) ListByUser(ctx context.Context, userID int, from time.Time) ([]model.StudyTask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, notes, due_date, source, completed, created_at
		 FROM study_tasks
		 WHERE user_id = $1 AND due_date >= $2
		 ORDER BY due_date ASC, id ASC`, userID, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.StudyTask
	for rows.Next() {
		var t model.StudyTask
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Notes, &t.DueDate,
			&t.Source, &t.Completed, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Complete marks a task as done. Returns false when no row matched, i.e. the
// task does not exist or belongs to another user.
func (r *TaskRepository) Complete(ctx context.Context, taskID, userID int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE study_tasks
		 SET completed = TRUE
		 WHERE id = $1 AND user_id = $2`,
		taskID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
