package presentation

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kasuganosora/rpg2kbattle/cache"
	"go.uber.org/zap"
)

// Emitter receives every event a Stage produces.
type Emitter interface {
	Emit(env Envelope)
}

// Channel returns the pub/sub channel of a battle session.
func Channel(sessionID string) string {
	return "battle:" + sessionID
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Emit(env Envelope) {
	r.mu.Lock()
	r.events = append(r.events, env)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// PubSubEmitter publishes events as JSON on a session channel.
type PubSubEmitter struct {
	ps      cache.PubSub
	channel string
	logger  *zap.Logger
}

// NewPubSubEmitter creates an emitter for the given session.
func NewPubSubEmitter(ps cache.PubSub, sessionID string, logger *zap.Logger) *PubSubEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubEmitter{ps: ps, channel: Channel(sessionID), logger: logger}
}

func (e *PubSubEmitter) Emit(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		e.logger.Error("marshal presentation event", zap.String("type", env.Type), zap.Error(err))
		return
	}
	if err := e.ps.Publish(context.Background(), e.channel, string(payload)); err != nil {
		e.logger.Warn("publish presentation event failed",
			zap.String("channel", e.channel), zap.Error(err))
	}
}

type multiEmitter []Emitter

func (m multiEmitter) Emit(env Envelope) {
	for _, e := range m {
		e.Emit(env)
	}
}

// Tee fans events out to every non-nil emitter.
func Tee(emitters ...Emitter) Emitter {
	var out multiEmitter
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
