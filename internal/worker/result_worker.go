package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/service"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains the result queue into practice_results. Inserts are
// idempotent on session_id, so a requeued payload never duplicates a row.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*service.ResultQueuePayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.ResultQueuePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*service.ResultQueuePayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsertResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// After successful inserts → drop the published snapshots in Redis
	w.bulkClearSnapshots(ctx, batch)
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST
// ----------------------------------------------------------------

func (w *ResultWorker) bulkInsertResults(ctx context.Context, batch []*service.ResultQueuePayload) error {
	n := len(batch)

	sessionIDs := make([]uuid.UUID, 0, n)
	userIDs := make([]int, 0, n)
	syllabi := make([]string, 0, n)
	modes := make([]string, 0, n)
	gradedFlags := make([]bool, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	incorrects := make([][]byte, 0, n)
	timings := make([][]byte, 0, n)

	for _, p := range batch {
		sID, err := uuid.Parse(p.SessionID)
		if err != nil {
			return err
		}
		incorrect, err := json.Marshal(p.Incorrect)
		if err != nil {
			return err
		}
		timing, err := json.Marshal(p.Timings)
		if err != nil {
			return err
		}

		sessionIDs = append(sessionIDs, sID)
		userIDs = append(userIDs, p.UserID)
		syllabi = append(syllabi, p.Syllabus)
		modes = append(modes, p.Mode)
		gradedFlags = append(gradedFlags, p.Graded)
		scores = append(scores, p.Score)
		totals = append(totals, p.TotalMarks)
		incorrects = append(incorrects, incorrect)
		timings = append(timings, timing)
	}

	query := `
		INSERT INTO practice_results
			(session_id, user_id, syllabus, mode, graded, score, total_marks, incorrect, timings)
		SELECT
			u.session_id,
			u.user_id,
			u.syllabus,
			u.mode,
			u.graded,
			u.score,
			u.total_marks,
			u.incorrect,
			u.timings
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::text[],
			$4::text[],
			$5::bool[],
			$6::int[],
			$7::int[],
			$8::jsonb[],
			$9::jsonb[]
		) AS u (session_id, user_id, syllabus, mode, graded, score, total_marks, incorrect, timings)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query,
		sessionIDs, userIDs, syllabi, modes, gradedFlags, scores, totals, incorrects, timings)
	return err
}

// ----------------------------------------------------------------
// BULK Redis DEL for published snapshots
// ----------------------------------------------------------------

func (w *ResultWorker) bulkClearSnapshots(ctx context.Context, batch []*service.ResultQueuePayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.SessionSnapshotKey(p.SessionID))
	}

	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// FALLBACK single insert
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, p *service.ResultQueuePayload) error {
	sID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return err
	}
	incorrect, err := json.Marshal(p.Incorrect)
	if err != nil {
		return err
	}
	timing, err := json.Marshal(p.Timings)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO practice_results
			(session_id, user_id, syllabus, mode, graded, score, total_marks, incorrect, timings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (session_id) DO NOTHING`,
		sID, p.UserID, p.Syllabus, p.Mode, p.Graded, p.Score, p.TotalMarks, incorrect, timing,
	)

	return err
}
