package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/rpg2kbattle/cache"
	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/game/presentation"
	"github.com/kasuganosora/rpg2kbattle/model"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"github.com/kasuganosora/rpg2kbattle/scheduler"
	"go.uber.org/zap"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Data      *resource.ResourceLoader
	Scheduler *scheduler.Scheduler
	PubSub    cache.PubSub        // optional; events are dropped without it
	Assets    presentation.Assets // optional
	Hooks     *hook.HookCenter    // optional
	Options   Options
	Logger    *zap.Logger
}

// Manager owns the live battle sessions. Each session is ticked by its own
// scheduler ticker until it finishes, then kept for SessionTTL so clients can
// read the result.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	data   *resource.ResourceLoader
	sched  *scheduler.Scheduler
	pubsub cache.PubSub
	assets presentation.Assets
	hooks  *hook.HookCenter
	opts   Options
	logger *zap.Logger
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = hook.NewHookCenter()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = scheduler.New(cfg.Logger)
	}
	return &Manager{
		sessions: make(map[string]*Session),
		data:     cfg.Data,
		sched:    cfg.Scheduler,
		pubsub:   cfg.PubSub,
		assets:   cfg.Assets,
		hooks:    cfg.Hooks,
		opts:     cfg.Options.withDefaults(),
		logger:   cfg.Logger,
	}
}

func tickerName(id string) string  { return "battle:" + id }
func cleanupName(id string) string { return "battle_cleanup:" + id }

// Start sets up a battle and begins ticking it. A handler on the battle
// start hook can veto the battle by returning hook.ErrInterrupt.
func (m *Manager) Start(ctx context.Context, req StartRequest, traceID string) (*Session, error) {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("battle_id", id))

	bctx, seed, err := newBattle(m.data, req, m.opts, logger)
	if err != nil {
		return nil, err
	}
	if err := triggerStart(ctx, m.hooks, id, req, bctx, logger); err != nil {
		return nil, err
	}

	var emitter presentation.Emitter
	if m.pubsub != nil {
		emitter = presentation.NewPubSubEmitter(m.pubsub, id, logger)
	}
	s := newSession(sessionConfig{
		id:      id,
		source:  model.SourceSession,
		req:     req,
		seed:    seed,
		opts:    m.opts,
		ctx:     bctx,
		emitter: emitter,
		assets:  m.assets,
	})
	s.TraceID = traceID

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.sched.AddTicker(tickerName(id), time.Second/time.Duration(m.opts.FPS), func() {
		m.tick(s)
	})
	logger.Info("battle session started",
		zap.Int("troop_id", req.TroopID), zap.Ints("actors", req.ActorIDs()), zap.Int64("seed", seed))
	return s, nil
}

func (m *Manager) tick(s *Session) {
	report := s.step()
	if report == nil {
		return
	}
	m.sched.Remove(tickerName(s.ID))
	m.logger.Info("battle session finished",
		zap.String("battle_id", s.ID), zap.String("outcome", report.Outcome), zap.Int("turns", report.Turns))

	triggerEnd(context.Background(), m.hooks, report, m.logger)
	m.sched.AddDelay(cleanupName(s.ID), m.opts.SessionTTL, func() {
		m.remove(s.ID)
	})
}

// triggerStart runs the battle start hook. Only hook.ErrInterrupt rejects
// the battle; other handler errors are logged.
func triggerStart(ctx context.Context, hooks *hook.HookCenter, id string, req StartRequest, bctx *battle.Context, logger *zap.Logger) error {
	ev := &StartEvent{BattleID: id, Request: req, Switches: bctx.Switches}
	if _, err := hooks.Trigger(ctx, hook.OnBattleStart, ev); err != nil {
		if errors.Is(err, hook.ErrInterrupt) {
			return fmt.Errorf("session: start rejected: %w", err)
		}
		logger.Warn("battle start hook failed", zap.Error(err))
	}
	return nil
}

func triggerEnd(ctx context.Context, hooks *hook.HookCenter, r *Report, logger *zap.Logger) {
	if _, err := hooks.Trigger(ctx, hook.OnBattleEnd, r); err != nil {
		logger.Warn("battle end hook failed", zap.String("battle_id", r.BattleID), zap.Error(err))
	}
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Input queues a key press. index, when set, moves the menu cursor first.
func (m *Manager) Input(id string, sig Signal, index *int) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.push(sig, index)
}

// Abort ends the battle on its next frame.
func (m *Manager) Abort(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.abort()
}

// Snapshot returns the current state of a session.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// IDs lists the known sessions, finished ones included.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopAll aborts every running battle and stops its ticker.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		m.sched.Remove(tickerName(id))
		m.sched.Remove(cleanupName(id))
		_ = s.abort()
	}
	m.sessions = make(map[string]*Session)
}
