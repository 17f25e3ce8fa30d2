package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// WeakTopicRepository handles weakness tracking data access.
type WeakTopicRepository struct {
	pool *pgxpool.Pool
}

// NewWeakTopicRepository creates a new WeakTopicRepository.
func NewWeakTopicRepository(pool *pgxpool.Pool) *WeakTopicRepository {
	return &WeakTopicRepository{pool: pool}
}

// ListByUser retrieves a user's weak topics, most frequent first.
func (r *WeakTopicRepository) ListByUser(ctx context.Context, userID int) ([]model.WeakTopic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, topic, occurrences, last_seen
		 FROM weak_topics
		 WHERE user_id = $1
		 ORDER BY occurrences DESC, last_seen DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []model.WeakTopic
	for rows.Next() {
		var wt model.WeakTopic
		if err := rows.Scan(&wt.ID, &wt.UserID, &wt.Topic, &wt.Occurrences, &wt.LastSeen); err != nil {
			return nil, err
		}
		topics = append(topics, wt)
	}
	return topics, rows.Err()
}

// Upsert bumps the occurrence counter for a topic, creating it on first sight.
func (r *WeakTopicRepository) Upsert(ctx context.Context, userID int, topic string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO weak_topics (user_id, topic, occurrences, last_seen)
		 VALUES ($1, $2, 1, NOW())
		 ON CONFLICT (user_id, topic)
		 DO UPDATE SET occurrences = weak_topics.occurrences + 1, last_seen = NOW()`,
		userID, topic)
	return err
}
