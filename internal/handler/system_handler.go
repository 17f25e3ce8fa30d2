package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/response"
)

// SystemHandler serves operational endpoints.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Reports dependency status and worker queue depths.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbOK := h.pool.Ping(ctx) == nil
	redisOK := h.rdb.Ping(ctx).Err() == nil

	queues := gin.H{}
	if redisOK {
		pipe := h.rdb.Pipeline()
		resultsCmd := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
		tasksCmd := pipe.LLen(ctx, config.WorkerKey.PersistTasksQueue)
		weaknessesCmd := pipe.LLen(ctx, config.WorkerKey.PersistWeaknessesQueue)
		if _, err := pipe.Exec(ctx); err == nil {
			queues["results"], _ = resultsCmd.Result()
			queues["tasks"], _ = tasksCmd.Result()
			queues["weaknesses"], _ = weaknessesCmd.Result()
		}
	}

	status := http.StatusOK
	if !dbOK || !redisOK {
		status = http.StatusServiceUnavailable
	}

	response.Success(c, status, gin.H{
		"database": dbOK,
		"redis":    redisOK,
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
		"queues":   queues,
	})
}
