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

const (
	WeaknessBatchSize    = 50
	WeaknessBatchTimeout = 2 * time.Second
	WeaknessPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// WeaknessWorker drains the weakness queue and bumps per-topic counters.
// The upsert is additive, so replaying a payload after a crash only
// over-counts, never corrupts.
type WeaknessWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewWeaknessWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *WeaknessWorker {
	return &WeaknessWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "weakness_worker").Logger(),
	}
}

func (w *WeaknessWorker) Start(ctx context.Context) {
	w.log.Info().Msg("WeaknessWorker started")

	buffer := make([]*service.WeaknessQueuePayload, 0, WeaknessBatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= WeaknessBatchSize || time.Since(lastFlushTime) >= WeaknessBatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining buffer...")
			w.flushSafe(context.Background(), buffer)
			return

		default:
			item, err := w.rdb.BLPop(ctx, WeaknessPollTimeout, config.WorkerKey.PersistWeaknessesQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.WeaknessQueuePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			buffer = append(buffer, &p)
		}
	}
}

func (w *WeaknessWorker) flushSafe(ctx context.Context, buffer []*service.WeaknessQueuePayload) {
	if len(buffer) == 0 {
		return
	}

	if err := w.bulkUpsertTopics(ctx, buffer); err != nil {
		w.log.Warn().Err(err).Msg("bulk upsert failed, using fallback")

		for _, p := range buffer {
			if err := w.upsertSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("upsertSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistWeaknessesQueue, raw)
			}
		}
	}
}

// bulkUpsertTopics aggregates duplicate (user, topic) pairs in the buffer
// first; a single UNNEST upsert cannot touch the same row twice.
func (w *WeaknessWorker) bulkUpsertTopics(ctx context.Context, buffer []*service.WeaknessQueuePayload) error {
	type pair struct {
		userID int
		topic  string
	}

	counts := make(map[pair]int, len(buffer))
	for _, p := range buffer {
		counts[pair{p.UserID, p.Topic}]++
	}

	userIDs := make([]int, 0, len(counts))
	topics := make([]string, 0, len(counts))
	hits := make([]int, 0, len(counts))
	for k, n := range counts {
		userIDs = append(userIDs, k.userID)
		topics = append(topics, k.topic)
		hits = append(hits, n)
	}

	query := `
		INSERT INTO weak_topics (user_id, topic, occurrences, last_seen)
		SELECT u.user_id, u.topic, u.hits, NOW()
		FROM UNNEST(
			$1::int[],
			$2::text[],
			$3::int[]
		) AS u (user_id, topic, hits)
		ON CONFLICT (user_id, topic)
		DO UPDATE SET occurrences = weak_topics.occurrences + EXCLUDED.occurrences,
		              last_seen = NOW()
	`

	_, err := w.pool.Exec(ctx, query, userIDs, topics, hits)
	return err
}

func (w *WeaknessWorker) upsertSingle(ctx context.Context, p *service.WeaknessQueuePayload) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO weak_topics (user_id, topic, occurrences, last_seen)
		 VALUES ($1, $2, 1, NOW())
		 ON CONFLICT (user_id, topic)
		 DO UPDATE SET occurrences = weak_topics.occurrences + 1, last_seen = NOW()`,
		p.UserID, p.Topic)
	return err
}
