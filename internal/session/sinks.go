package session

import (
	"time"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
)

// Outcome is what a finished session hands to the result sink. Graded is
// false when the session had no answer key — the attempt is still logged,
// just without a score.
type Outcome struct {
	Graded bool
	Mode   model.ScoringMode
	Result scoring.Result
}

// ReattemptTask asks the study scheduler to bring a missed question back the
// next day.
type ReattemptTask struct {
	Question int
	Syllabus string
	DueDate  time.Time
}

// ResultSink receives the session outcome exactly once, after local grading.
type ResultSink interface {
	LogResult(sessionID string, userID int, o Outcome)
}

// TaskSink enqueues reattempt tasks for homework-sourced mistakes.
type TaskSink interface {
	SaveTask(userID int, t ReattemptTask)
}

// CompletionSink is notified exactly once, synchronously, from finish.
type CompletionSink interface {
	OnSessionComplete(sessionID string, userID int, durationSeconds int, solved int, skipped []int)
}

// Sinks bundles the injected collaborators. Any of them may be nil; the
// engine simply skips the call.
type Sinks struct {
	Result     ResultSink
	Task       TaskSink
	Completion CompletionSink
}
