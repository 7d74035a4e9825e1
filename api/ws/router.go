package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandlerFunc processes a decoded WS message payload.
type HandlerFunc func(ctx context.Context, c *Client, payload json.RawMessage) error

// ErrorPayload is sent back to the client when a handler fails.
type ErrorPayload struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq,omitempty"`
	Error string `json:"error"`
}

// Router dispatches incoming WS packets to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates a new Router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// On registers fn for msgType, replacing any previous handler.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw bytes, validates seq, and invokes the handler.
// Handler errors are logged and echoed to the client as an "error" packet.
func (r *Router) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet", zap.String("battle_id", c.BattleID), zap.Error(err))
		c.Send("error", ErrorPayload{Error: "malformed packet"})
		return
	}

	// Seq 0 opts out of ordering.
	if pkt.Seq != 0 && pkt.Seq <= c.LastSeq {
		r.logger.Warn("replayed or out-of-order packet",
			zap.String("battle_id", c.BattleID),
			zap.Uint64("seq", pkt.Seq),
			zap.Uint64("last_seq", c.LastSeq))
		return
	}
	if pkt.Seq != 0 {
		c.LastSeq = pkt.Seq
	}

	c.TraceID = uuid.NewString()
	ctx = context.WithValue(ctx, ctxKeyTraceID{}, c.TraceID)

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Debug("unhandled message type",
			zap.String("type", pkt.Type),
			zap.String("battle_id", c.BattleID))
		c.Send("error", ErrorPayload{Type: pkt.Type, Seq: pkt.Seq, Error: "unknown message type"})
		return
	}

	if err := fn(ctx, c, pkt.Payload); err != nil {
		r.logger.Warn("handler error",
			zap.String("type", pkt.Type),
			zap.String("battle_id", c.BattleID),
			zap.String("trace_id", c.TraceID),
			zap.Error(err))
		c.Send("error", ErrorPayload{Type: pkt.Type, Seq: pkt.Seq, Error: err.Error()})
	}
}

type ctxKeyTraceID struct{}

// TraceIDFromCtx extracts the trace ID from a handler context.
func TraceIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTraceID{}).(string); ok {
		return v
	}
	return ""
}
