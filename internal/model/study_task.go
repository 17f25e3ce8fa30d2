package model

import "time"

// TaskSource records where a study task came from.
type TaskSource string

const (
	TaskSourceManual    TaskSource = "MANUAL"
	TaskSourceHomework  TaskSource = "HOMEWORK"
	TaskSourceReattempt TaskSource = "REATTEMPT"
)

// StudyTask is one entry in the student's study schedule. Reattempt tasks are
// enqueued automatically when a homework-sourced question is answered wrong.
type StudyTask struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	DueDate   time.Time  `json:"due_date"`
	Source    TaskSource `json:"source"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateTaskRequest is the payload for adding a task to the schedule.
type CreateTaskRequest struct {
	Title   string `json:"title" binding:"required,min=1,max=200"`
	Notes   string `json:"notes" binding:"max=2000"`
	DueDate string `json:"due_date" binding:"required,datetime=2006-01-02"`
}
