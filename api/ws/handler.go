// Package ws serves battle sessions over WebSocket: presentation events are
// pushed to the client and key presses flow back on the same connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/rpg2kbattle/cache"
	"github.com/kasuganosora/rpg2kbattle/config"
	"github.com/kasuganosora/rpg2kbattle/game/presentation"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"go.uber.org/zap"
)

// Sessions is the part of the session manager the socket drives.
type Sessions interface {
	Snapshot(id string) (session.Snapshot, error)
	Input(id string, sig session.Signal, index *int) error
	Abort(id string) error
}

// HandlerConfig holds the dependencies of a Handler.
type HandlerConfig struct {
	Sessions Sessions
	PubSub   cache.PubSub
	Security config.SecurityConfig
	Logger   *zap.Logger
}

// Handler is the Gin handler for GET /api/sessions/:id/ws.
type Handler struct {
	sessions Sessions
	pubsub   cache.PubSub
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// InputPayload is the payload of an "input" packet.
type InputPayload struct {
	Signal string `json:"signal"`
	Index  *int   `json:"index,omitempty"`
}

// AckPayload confirms a command packet.
type AckPayload struct {
	Type string `json:"type"`
}

// PongPayload answers a client "ping".
type PongPayload struct {
	ClientTS int64 `json:"client_ts"`
	ServerTS int64 `json:"server_ts"`
}

// NewHandler creates a new WebSocket Handler.
// Security.AllowedOrigins limits the accepted origins; empty allows all.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Handler{
		sessions: cfg.Sessions,
		pubsub:   cfg.PubSub,
		router:   NewRouter(cfg.Logger),
		logger:   cfg.Logger,
	}
	allowed := cfg.Security.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	h.router.On("input", h.handleInput)
	h.router.On("abort", h.handleAbort)
	h.router.On("snapshot", h.handleSnapshot)
	h.router.On("ping", h.handlePing)
	return h
}

// ServeBattle upgrades the connection, sends the current snapshot and then
// relays every presentation event of the session as an "event" packet.
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

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	msgCh, unsub, err := h.pubsub.Subscribe(ctx, presentation.Channel(id))
	if err != nil {
		h.logger.Error("ws subscribe failed", zap.String("battle_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	defer unsub()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.String("battle_id", id), zap.Error(err))
		return
	}

	client := NewClient(id, conn, h.logger)
	defer client.Close()
	client.Send("snapshot", snap)

	go h.forward(ctx, client, msgCh)
	h.readPump(ctx, client)
}

// forward relays pubsub payloads until the subscription or client ends.
func (h *Handler) forward(ctx context.Context, client *Client, msgCh <-chan *cache.Message) {
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				h.logger.Warn("ws dropped malformed event", zap.String("battle_id", client.BattleID))
				continue
			}
			data, err := json.Marshal(&Packet{Type: "event", Payload: json.RawMessage(msg.Payload)})
			if err != nil {
				continue
			}
			client.SendRaw(data)
		case <-client.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// readPump reads packets until the connection closes and dispatches them.
func (h *Handler) readPump(ctx context.Context, client *Client) {
	client.SetReadDeadline()
	client.Conn.SetPongHandler(func(string) error {
		client.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close", zap.String("battle_id", client.BattleID), zap.Error(err))
			}
			return
		}
		client.SetReadDeadline()
		h.router.Dispatch(ctx, client, raw)
	}
}

func (h *Handler) handleInput(_ context.Context, c *Client, payload json.RawMessage) error {
	var in InputPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return err
	}
	sig, err := session.ParseSignal(in.Signal)
	if err != nil {
		return err
	}
	if in.Index != nil && *in.Index < 0 {
		return errors.New("index must not be negative")
	}
	if err := h.sessions.Input(c.BattleID, sig, in.Index); err != nil {
		return err
	}
	c.Send("ack", AckPayload{Type: "input"})
	return nil
}

func (h *Handler) handleAbort(_ context.Context, c *Client, _ json.RawMessage) error {
	if err := h.sessions.Abort(c.BattleID); err != nil {
		return err
	}
	c.Send("ack", AckPayload{Type: "abort"})
	return nil
}

func (h *Handler) handleSnapshot(_ context.Context, c *Client, _ json.RawMessage) error {
	snap, err := h.sessions.Snapshot(c.BattleID)
	if err != nil {
		return err
	}
	c.Send("snapshot", snap)
	return nil
}

func (h *Handler) handlePing(_ context.Context, c *Client, payload json.RawMessage) error {
	var p struct {
		TS int64 `json:"ts"`
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &p)
	}
	c.Send("pong", PongPayload{ClientTS: p.TS, ServerTS: time.Now().UnixMilli()})
	return nil
}
