package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/game/presentation"
)

// Signal is a key press forwarded to the scene.
type Signal string

const (
	SignalConfirm Signal = "confirm"
	SignalCancel  Signal = "cancel"
)

// ParseSignal validates a signal name.
func ParseSignal(s string) (Signal, error) {
	switch Signal(s) {
	case SignalConfirm, SignalCancel:
		return Signal(s), nil
	}
	return "", fmt.Errorf("%w: unknown signal %q", ErrInvalidRequest, s)
}

type command struct {
	signal Signal
	index  *int
}

// queuedInput holds key presses until the scene shows a menu. Each press is
// reported to the scene once.
type queuedInput struct {
	pending []command
	confirm bool
	cancel  bool
}

func (in *queuedInput) Confirm() bool {
	v := in.confirm
	in.confirm = false
	return v
}

func (in *queuedInput) Cancel() bool {
	v := in.cancel
	in.cancel = false
	return v
}

// awaitingInput reports whether the scene reads the keyboard in st.
func awaitingInput(st battle.SceneState) bool {
	switch st {
	case battle.StateSelectOption, battle.StateSelectCommand, battle.StateSelectEnemyTarget,
		battle.StateSelectAllyTarget, battle.StateSelectItem, battle.StateSelectSkill:
		return true
	}
	return false
}

// Report summarises a finished battle.
type Report struct {
	BattleID    string         `json:"battle_id"`
	TraceID     string         `json:"trace_id,omitempty"`
	Source      string         `json:"source"`
	TroopID     int            `json:"troop_id"`
	ActorIDs    []int          `json:"actor_ids"`
	Seed        int64          `json:"seed"`
	Engine      string         `json:"engine"`
	Result      battle.Result  `json:"-"`
	Outcome     string         `json:"outcome"`
	Turns       int            `json:"turns"`
	Ticks       int            `json:"ticks"`
	EscapeFails int            `json:"escape_fails"`
	Rewards     battle.Rewards `json:"rewards"`
	Switches    map[int]bool   `json:"switches,omitempty"`
	Transcript  []string       `json:"transcript"`
}

// StartEvent is the payload of the battle start hook. Handlers may set
// Switches before the first frame.
type StartEvent struct {
	BattleID string
	Request  StartRequest
	Switches battle.Switches
}

// Snapshot is the visible state of a live battle.
type Snapshot struct {
	ID          string                         `json:"id"`
	State       string                         `json:"state"`
	Result      string                         `json:"result"`
	Turn        int                            `json:"turn"`
	Frame       int                            `json:"frame"`
	Cursor      int                            `json:"cursor"`
	Choices     []string                       `json:"choices,omitempty"`
	ActiveActor *presentation.BattlerRef       `json:"active_actor,omitempty"`
	Lines       []string                       `json:"lines"`
	Allies      []presentation.BattlerSnapshot `json:"allies"`
	Enemies     []presentation.BattlerSnapshot `json:"enemies"`
}

// Session is one live battle. All access goes through its mutex; the
// scheduler ticks it and HTTP handlers feed it input.
type Session struct {
	ID        string
	TraceID   string
	Request   StartRequest
	Seed      int64
	Engine    battle.Engine
	CreatedAt time.Time

	mu        sync.Mutex
	source    string
	ctx       *battle.Context
	scene     *battle.Scene
	stage     *presentation.Stage
	input     *queuedInput
	ticks     int
	lastState battle.SceneState
	report    *Report
}

type sessionConfig struct {
	id      string
	source  string
	req     StartRequest
	seed    int64
	opts    Options
	ctx     *battle.Context
	emitter presentation.Emitter
	assets  presentation.Assets
}

func newSession(cfg sessionConfig) *Session {
	ctx := cfg.ctx
	stage := presentation.NewStage(presentation.StageConfig{
		Emitter: cfg.emitter,
		Assets:  cfg.assets,
		Logger:  ctx.Logger,
	})
	in := &queuedInput{}
	s := &Session{
		ID:        cfg.id,
		Request:   cfg.req,
		Seed:      cfg.seed,
		Engine:    cfg.opts.Engine,
		CreatedAt: time.Now(),
		source:    cfg.source,
		ctx:       ctx,
		stage:     stage,
		input:     in,
		lastState: -1,
	}
	s.scene = battle.NewScene(battle.SceneConfig{
		Context: ctx,
		Sink:    stage,
		Input:   in,
		Timing:  cfg.opts.Timing,
	})
	stage.Begin(ctx.Allies, ctx.Enemies)
	return s
}

// push queues a key press, moving the menu cursor to index first when set.
func (s *Session) push(sig Signal, index *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report != nil {
		return ErrSessionFinished
	}
	s.input.pending = append(s.input.pending, command{signal: sig, index: index})
	return nil
}

func (s *Session) abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report != nil {
		return ErrSessionFinished
	}
	s.scene.Abort()
	return nil
}

// step advances the battle one frame. It returns the report on the frame
// the battle finishes, nil otherwise.
func (s *Session) step() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report != nil {
		return nil
	}

	s.stage.Tick()
	if awaitingInput(s.scene.State()) && len(s.input.pending) > 0 {
		cmd := s.input.pending[0]
		s.input.pending = s.input.pending[1:]
		if cmd.index != nil {
			s.scene.Select(*cmd.index)
		}
		switch cmd.signal {
		case SignalConfirm:
			s.input.confirm = true
		case SignalCancel:
			s.input.cancel = true
		}
	}
	s.scene.Update()
	s.ticks++

	if st := s.scene.State(); st != s.lastState && !s.scene.Finished() {
		s.lastState = st
		s.emitState()
	}
	if !s.scene.Finished() {
		return nil
	}
	s.report = s.finish()
	return s.report
}

func (s *Session) emitState() {
	ev := presentation.EventSceneState{
		State:  s.scene.State().String(),
		Turn:   s.ctx.Turn,
		Cursor: s.scene.Cursor(),
	}
	if a := s.scene.ActiveActor(); a != nil {
		ref := presentation.RefBattler(a)
		ev.ActiveActor = &ref
	}
	s.stage.Emit(ev)
}

// finish builds the report, announces the end and resets battle-only state.
// Callers hold the lock.
func (s *Session) finish() *Report {
	r := &Report{
		BattleID:    s.ID,
		TraceID:     s.TraceID,
		Source:      s.source,
		TroopID:     s.Request.TroopID,
		ActorIDs:    s.Request.ActorIDs(),
		Seed:        s.Seed,
		Engine:      s.Engine.String(),
		Result:      s.scene.Result(),
		Outcome:     s.scene.Result().String(),
		Turns:       s.ctx.Turn,
		Ticks:       s.ticks,
		EscapeFails: s.ctx.EscapeFailCount,
		Rewards:     s.scene.Rewards(),
		Switches:    copySwitches(s.ctx.Switches),
		Transcript:  s.stage.Transcript(),
	}
	s.stage.Emit(presentation.EventBattleEnd{
		Result: r.Outcome,
		Turns:  r.Turns,
		Exp:    r.Rewards.Exp,
		Gold:   r.Rewards.Gold,
		Items:  r.Rewards.Items,
		Allies: presentation.SnapshotParty(s.ctx.Allies),
	})
	s.ctx.End()
	return r
}

func copySwitches(sw battle.Switches) map[int]bool {
	if len(sw) == 0 {
		return nil
	}
	out := make(map[int]bool, len(sw))
	for id, on := range sw {
		out[id] = on
	}
	return out
}

// Finished reports whether the battle has produced its result.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report != nil
}

// Report returns the final report, or nil while the battle runs.
func (s *Session) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:      s.ID,
		State:   s.scene.State().String(),
		Result:  s.scene.Result().String(),
		Turn:    s.ctx.Turn,
		Frame:   s.stage.Frame(),
		Cursor:  s.scene.Cursor(),
		Choices: s.choices(),
		Lines:   s.stage.Lines(),
		Allies:  presentation.SnapshotParty(s.ctx.Allies),
		Enemies: presentation.SnapshotParty(s.ctx.Enemies),
	}
	if a := s.scene.ActiveActor(); a != nil && awaitingInput(s.scene.State()) {
		ref := presentation.RefBattler(a)
		snap.ActiveActor = &ref
	}
	return snap
}

// choices names the entries of the open menu.
func (s *Session) choices() []string {
	switch s.scene.State() {
	case battle.StateSelectOption:
		t := s.ctx.Terms()
		return []string{t.CommandBattle, t.CommandAuto, t.CommandEscape}
	case battle.StateSelectCommand:
		t := s.ctx.Terms()
		return []string{t.CommandAttack, t.CommandSkill, t.CommandDefend, t.CommandItem}
	case battle.StateSelectSkill:
		var out []string
		for _, sk := range s.scene.SkillChoices() {
			out = append(out, sk.Name)
		}
		return out
	case battle.StateSelectItem:
		var out []string
		for _, it := range s.scene.ItemChoices() {
			out = append(out, fmt.Sprintf("%s x%d", it.Name, s.ctx.Allies.ItemCount(it.ID)))
		}
		return out
	case battle.StateSelectEnemyTarget, battle.StateSelectAllyTarget:
		var out []string
		for _, b := range s.scene.TargetCandidates() {
			out = append(out, b.Name())
		}
		return out
	}
	return nil
}
