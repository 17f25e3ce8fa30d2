package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/session"
)

// queueSinks implements the session engine's collaborator interfaces by
// pushing payloads onto Redis worker queues. The engine calls these
// synchronously from finish; everything slow happens in the workers.
type queueSinks struct {
	rdb *redis.Client
	log zerolog.Logger
}

func newQueueSinks(rdb *redis.Client, log zerolog.Logger) *queueSinks {
	return &queueSinks{
		rdb: rdb,
		log: log.With().Str("component", "session_sinks").Logger(),
	}
}

// ResultQueuePayload is the wire shape consumed by the result worker.
type ResultQueuePayload struct {
	SessionID  string          `json:"session_id"`
	UserID     int             `json:"user_id"`
	Syllabus   string          `json:"syllabus"`
	Mode       string          `json:"mode"`
	Graded     bool            `json:"graded"`
	Score      int             `json:"score"`
	TotalMarks int             `json:"total_marks"`
	Incorrect  []int           `json:"incorrect"`
	Timings    map[int]float64 `json:"timings"`
}

// TaskQueuePayload is the wire shape consumed by the task worker.
type TaskQueuePayload struct {
	UserID  int    `json:"user_id"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
	DueDate string `json:"due_date"` // YYYY-MM-DD
	Source  string `json:"source"`
}

// WeaknessQueuePayload is the wire shape consumed by the weakness worker.
type WeaknessQueuePayload struct {
	UserID int    `json:"user_id"`
	Topic  string `json:"topic"`
}

func (q *queueSinks) LogResult(sessionID string, userID int, o session.Outcome) {
	payload, err := json.Marshal(ResultQueuePayload{
		SessionID:  sessionID,
		UserID:     userID,
		Syllabus:   o.Result.Syllabus,
		Mode:       string(o.Mode),
		Graded:     o.Graded,
		Score:      o.Result.Score,
		TotalMarks: o.Result.TotalMarks,
		Incorrect:  o.Result.Incorrect,
		Timings:    o.Result.Timings,
	})
	if err != nil {
		q.log.Error().Err(err).Str("session_id", sessionID).Msg("Marshal result payload")
		return
	}

	if err := q.rdb.RPush(context.Background(), config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		q.log.Error().Err(err).Str("session_id", sessionID).Msg("Queue result")
	}
}

func (q *queueSinks) SaveTask(userID int, t session.ReattemptTask) {
	title := fmt.Sprintf("Reattempt Q%d", t.Question)
	if t.Syllabus != "" {
		title = fmt.Sprintf("Reattempt Q%d — %s", t.Question, t.Syllabus)
	}

	payload, err := json.Marshal(TaskQueuePayload{
		UserID:  userID,
		Title:   title,
		DueDate: t.DueDate.Format("2006-01-02"),
		Source:  string(model.TaskSourceReattempt),
	})
	if err != nil {
		q.log.Error().Err(err).Int("user_id", userID).Msg("Marshal task payload")
		return
	}

	if err := q.rdb.RPush(context.Background(), config.WorkerKey.PersistTasksQueue, payload).Err(); err != nil {
		q.log.Error().Err(err).Int("user_id", userID).Msg("Queue reattempt task")
	}
}

func (q *queueSinks) OnSessionComplete(sessionID string, userID int, durationSeconds, solved int, skipped []int) {
	q.log.Info().
		Str("session_id", sessionID).
		Int("user_id", userID).
		Int("duration_s", durationSeconds).
		Int("solved", solved).
		Int("skipped", len(skipped)).
		Msg("Session completed")

	// The session is no longer the user's active one.
	if err := q.rdb.Del(context.Background(), config.CacheKey.UserActiveSessionKey(userID)).Err(); err != nil {
		q.log.Warn().Err(err).Int("user_id", userID).Msg("Clear active session key")
	}
}
