package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/session"
	ws "github.com/prepdesk/prepdesk-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live practice sessions over WebSocket.
type WSHandler struct {
	rdb             *redis.Client
	practiceService *service.PracticeService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, practiceService *service.PracticeService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:             rdb,
		practiceService: practiceService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream
// Upgrades to WebSocket. The server pushes a snapshot every second and after
// every client action; clients send answer/navigate/review/clear/finish.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	sess, err := h.practiceService.Get(sessionID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Client connected")

	// Writer goroutine: one snapshot per second plus a terminal finished
	// event. All writes go through this goroutine so the reader never races
	// it on the connection.
	writes := make(chan interface{}, 16)
	streamCtx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.pushState(streamCtx, conn, sess, writes, wsLog)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			if msg.Value == "" {
				pushError(writes, "value is required")
				continue
			}
			sess.SubmitAnswer(msg.Value)
			pushSnapshot(writes, sess)
		case ws.ActionNavigate:
			if msg.Target == nil {
				pushError(writes, "target is required")
				continue
			}
			sess.Navigate(*msg.Target)
			pushSnapshot(writes, sess)
		case ws.ActionReview:
			sess.MarkForReview()
			pushSnapshot(writes, sess)
		case ws.ActionClear:
			sess.ClearAnswer()
			pushSnapshot(writes, sess)
		case ws.ActionFinish:
			sess.Finish()
		case ws.ActionPing:
			select {
			case writes <- ws.PongResponse{Event: ws.EventPong}:
			default:
			}
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			pushError(writes, "unknown action: "+string(msg.Action))
		}
	}
}

// pushSnapshot queues a fresh snapshot for the writer goroutine; a full
// channel is fine, the next tick carries the same state.
func pushSnapshot(writes chan interface{}, sess *session.Session) {
	select {
	case writes <- ws.StateResponse{Event: ws.EventState, Snapshot: sess.Snapshot()}:
	default:
	}
}

func pushError(writes chan interface{}, msg string) {
	select {
	case writes <- ws.ErrorResponse{Event: ws.EventError, Error: msg}:
	default:
	}
}

// pushState is the single connection writer. It publishes snapshots on a
// one-second cadence, mirrors them into Redis for reconnect recovery, and
// sends the terminal finished event before returning.
func (h *WSHandler) pushState(ctx context.Context, conn *websocket.Conn, sess *session.Session, writes chan interface{}, wsLog zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case v := <-writes:
			if err := ws.WriteTyped(conn, v); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}

		case <-ticker.C:
			snap := sess.Snapshot()
			h.publishSnapshot(ctx, snap)
			if err := ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Snapshot: snap}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}

		case <-sess.Done():
			fin := ws.FinishedResponse{Event: ws.EventFinished}
			if o := sess.Outcome(); o != nil {
				fin.Graded = o.Graded
				fin.Score = o.Result.Score
				fin.Total = o.Result.TotalMarks
			}
			if err := ws.WriteTyped(conn, fin); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
			}
			wsLog.Info().Msg("Session finished, closing stream")
			conn.Close()
			return
		}
	}
}

// publishSnapshot mirrors the latest snapshot into Redis so a reconnecting
// client can catch up before the next tick.
func (h *WSHandler) publishSnapshot(ctx context.Context, snap session.Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	h.rdb.Set(ctx, config.CacheKey.SessionSnapshotKey(snap.ID), raw, 5*time.Minute)
}
