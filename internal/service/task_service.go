package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// ErrTaskNotFound is returned when a task does not exist or belongs to
// another user.
var ErrTaskNotFound = errors.New("task not found")

// TaskService handles study schedule business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(pool *pgxpool.Pool) *TaskService {
	return &TaskService{
		taskRepo: repository.NewTaskRepository(pool),
	}
}

// Create adds a manual task to the user's schedule.
func (s *TaskService) Create(ctx context.Context, userID int, req model.CreateTaskRequest) (*model.StudyTask, error) {
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("parse due date: %w", err)
	}

	task := &model.StudyTask{
		UserID:  userID,
		Title:   req.Title,
		Notes:   req.Notes,
		DueDate: due,
		Source:  model.TaskSourceManual,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns the user's schedule from the given date onward. A zero `from`
// means today.
func (s *TaskService) List(ctx context.Context, userID int, from time.Time) ([]model.StudyTask, error) {
	if from.IsZero() {
		from = time.Now().Truncate(24 * time.Hour)
	}
	tasks, err := s.taskRepo.ListByUser(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Complete marks a task as done.
func (s *TaskService) Complete(ctx context.Context, taskID, userID int) error {
	ok, err := s.taskRepo.Complete(ctx, taskID, userID)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if !ok {
		return ErrTaskNotFound
	}
	return nil
}
