package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// WeaknessService tracks recurring weak topics from mistake analysis.
type WeaknessService struct {
	weakRepo *repository.WeakTopicRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewWeaknessService creates a new WeaknessService.
func NewWeaknessService(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *WeaknessService {
	return &WeaknessService{
		weakRepo: repository.NewWeakTopicRepository(pool),
		rdb:      rdb,
		log:      log.With().Str("component", "weakness_service").Logger(),
	}
}

// Report enqueues topic occurrences for the weakness worker. Reporting is
// fire-and-forget from the client's point of view; the counters converge
// once the worker drains the queue.
func (s *WeaknessService) Report(ctx context.Context, userID int, topics []string) error {
	for _, topic := range topics {
		payload, err := json.Marshal(WeaknessQueuePayload{UserID: userID, Topic: topic})
		if err != nil {
			return fmt.Errorf("marshal weakness payload: %w", err)
		}
		if err := s.rdb.RPush(ctx, config.WorkerKey.PersistWeaknessesQueue, payload).Err(); err != nil {
			return fmt.Errorf("enqueue weakness: %w", err)
		}
	}
	return nil
}

// List returns the user's weak topics, most frequent first.
func (s *WeaknessService) List(ctx context.Context, userID int) ([]model.WeakTopic, error) {
	topics, err := s.weakRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list weak topics: %w", err)
	}
	return topics, nil
}
