package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rpg2kbattle/cache"
	"github.com/kasuganosora/rpg2kbattle/game/presentation"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"go.uber.org/zap"
)

const defaultKeepAlive = 30 * time.Second

var battleEndType = presentation.EventBattleEnd{}.EventType()

// Sessions looks up live battles.
type Sessions interface {
	Snapshot(id string) (session.Snapshot, error)
}

// Handler streams presentation events of a battle session.
type Handler struct {
	pubsub    cache.PubSub
	sessions  Sessions
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, sessions Sessions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pubsub: pubsub, sessions: sessions, keepAlive: defaultKeepAlive, logger: logger}
}

// ServeBattle handles GET /api/sessions/:id/events.
// The stream opens with a snapshot event, then relays every presentation
// event of the session and closes after battle_end.
func (h *Handler) ServeBattle(c *gin.Context) {
	id := c.Param("id")
	snap, err := h.sessions.Snapshot(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, presentation.Channel(id))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("battle_id", id), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	raw, _ := json.Marshal(snap)
	writeEvent(c, "snapshot", string(raw))
	if snap.Result != "none" {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			var env struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Type == "" {
				h.logger.Warn("sse dropped malformed event", zap.String("battle_id", id), zap.Error(err))
				continue
			}
			writeEvent(c, env.Type, msg.Payload)
			if env.Type == battleEndType {
				return
			}

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEvent(c *gin.Context, name, data string) {
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data)
	c.Writer.Flush()
}
