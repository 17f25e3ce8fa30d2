package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// ResultRepository handles persisted practice results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// GetBySession retrieves the result for a specific session.
func (r *ResultRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.PracticeResult, error) {
	res := &model.PracticeResult{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, user_id, syllabus, mode, graded, score, total_marks,
		        incorrect, timings, analysis, created_at
		 FROM practice_results
		 WHERE session_id = $1`, sessionID,
	).Scan(&res.ID, &res.SessionID, &res.UserID, &res.Syllabus, &res.Mode, &res.Graded,
		&res.Score, &res.TotalMark, &res.Incorrect, &res.Timings, &res.Analysis, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Create inserts a result row.
func (r *ResultRepository) Create(ctx context.Context, res *model.PracticeResult) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO practice_results
		   (session_id, user_id, syllabus, mode, graded, score, total_marks, incorrect, timings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (session_id) DO NOTHING
		 RETURNING id, created_at`,
		res.SessionID, res.UserID, res.Syllabus, res.Mode, res.Graded,
		res.Score, res.TotalMark, res.Incorrect, res.Timings,
	).Scan(&res.ID, &res.CreatedAt)
}

// SetAnalysis attaches the AI analysis payload to an existing result.
func (r *ResultRepository) SetAnalysis(ctx context.Context, sessionID uuid.UUID, analysis []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE practice_results
		 SET analysis = $1
		 WHERE session_id = $2`,
		analysis, sessionID)
	return err
}

// ListByUser retrieves paginated results for a user, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID, page, perPage int) ([]model.PracticeResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM practice_results WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, user_id, syllabus, mode, graded, score, total_marks,
		        incorrect, timings, analysis, created_at
		 FROM practice_results
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.PracticeResult
	for rows.Next() {
		var res model.PracticeResult
		if err := rows.Scan(&res.ID, &res.SessionID, &res.UserID, &res.Syllabus, &res.Mode,
			&res.Graded, &res.Score, &res.TotalMark, &res.Incorrect, &res.Timings,
			&res.Analysis, &res.CreatedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
