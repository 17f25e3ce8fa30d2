package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/service"
)

// TaskWorker consumes persist_tasks_queue and inserts study tasks (reattempt
// entries scheduled during live sessions) into PostgreSQL.
type TaskWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewTaskWorker creates a new TaskWorker.
func NewTaskWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *TaskWorker {
	return &TaskWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "task_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *TaskWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *TaskWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistTasksQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload service.TaskQueuePayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistTask(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Int("user_id", payload.UserID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistTasksQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *TaskWorker) persistTask(ctx context.Context, p *service.TaskQueuePayload) error {
	due, err := time.Parse("2006-01-02", p.DueDate)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO study_tasks (user_id, title, notes, due_date, source)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.UserID, p.Title, p.Notes, due, p.Source,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *TaskWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistTasksQueue).Result()
		if err != nil {
			break
		}

		var payload service.TaskQueuePayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistTask(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistTasksQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
