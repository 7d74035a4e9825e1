package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"github.com/kasuganosora/rpg2kbattle/scheduler"
	"github.com/kasuganosora/rpg2kbattle/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastOptions() Options {
	return Options{
		Timing: battle.Timing{
			ActionWait:          1,
			EscapeWait:          1,
			TargetFlashInterval: 1,
			EncounterShortWait:  1,
			EncounterLongWait:   1,
		},
		FPS:        1000,
		MaxTicks:   20000,
		SessionTTL: time.Minute,
	}
}

func slimes(actors ...int) StartRequest {
	req := StartRequest{TroopID: 1, Seed: 1}
	for _, id := range actors {
		req.Actors = append(req.Actors, ActorSpec{ID: id})
	}
	return req
}

func simulate(t *testing.T, req StartRequest) *SimulationResult {
	t.Helper()
	res, err := Simulate(context.Background(), SimulateConfig{
		Data:       testutil.BattleData(),
		Options:    fastOptions(),
		KeepEvents: true,
	}, req)
	require.NoError(t, err)
	return res
}

// ---- Simulate ----

func TestSimulate_Victory(t *testing.T) {
	res := simulate(t, slimes(1, 2))

	assert.Equal(t, battle.ResultVictory, res.Result)
	assert.Equal(t, "victory", res.Outcome)
	assert.Equal(t, "simulation", res.Source)
	assert.Equal(t, []int{1, 2}, res.ActorIDs)
	assert.Equal(t, 10, res.Rewards.Exp)
	assert.Equal(t, 20, res.Rewards.Gold)
	assert.Equal(t, []int{1, 1}, res.Rewards.Items)
	assert.GreaterOrEqual(t, res.Turns, 1)
	assert.Contains(t, res.Transcript, "Slime appeared!")
	assert.Contains(t, res.Transcript, "Victory!")
	assert.Contains(t, res.Transcript, "10 experience points received.")

	require.Len(t, res.Allies, 2)
	assert.Equal(t, 300, res.Allies[0].HP, "slimes cannot hurt the hero")

	require.NotEmpty(t, res.Events)
	assert.Equal(t, "battle_start", res.Events[0].Type)
	assert.Equal(t, "battle_end", res.Events[len(res.Events)-1].Type)
}

func TestSimulate_Defeat(t *testing.T) {
	res := simulate(t, StartRequest{TroopID: 2, Actors: []ActorSpec{{ID: 1}}, Seed: 3})

	assert.Equal(t, battle.ResultDefeat, res.Result)
	assert.Equal(t, resource.DefaultTerms().Defeat, res.Transcript[len(res.Transcript)-1])
	assert.Zero(t, res.Rewards.Exp)
}

func TestSimulate_Deterministic(t *testing.T) {
	a := simulate(t, slimes(1, 2))
	b := simulate(t, slimes(1, 2))
	assert.Equal(t, a.Transcript, b.Transcript)
	assert.Equal(t, a.Ticks, b.Ticks)
	assert.Equal(t, int64(1), a.Seed)
}

func TestSimulate_RandomSeedIsReported(t *testing.T) {
	req := slimes(1)
	req.Seed = 0
	res := simulate(t, req)
	assert.NotZero(t, res.Seed)
}

func TestSimulate_TickLimit(t *testing.T) {
	opts := fastOptions()
	opts.MaxTicks = 3
	res, err := Simulate(context.Background(), SimulateConfig{Data: testutil.BattleData(), Options: opts}, slimes(1))
	require.NoError(t, err)
	assert.Equal(t, battle.ResultAbort, res.Result)
	assert.Empty(t, res.Events)
}

func TestSimulate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Simulate(ctx, SimulateConfig{Data: testutil.BattleData(), Options: fastOptions()}, slimes(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulate_InvalidRequests(t *testing.T) {
	cfg := SimulateConfig{Data: testutil.BattleData(), Options: fastOptions()}
	ctx := context.Background()

	_, err := Simulate(ctx, cfg, StartRequest{TroopID: 9, Actors: []ActorSpec{{ID: 1}}})
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = Simulate(ctx, cfg, StartRequest{TroopID: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = Simulate(ctx, cfg, StartRequest{TroopID: 1, Actors: []ActorSpec{{ID: 42}}})
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = Simulate(ctx, cfg, StartRequest{TroopID: 1, Actors: []ActorSpec{{ID: 1}}, Items: map[int]int{99: 1}})
	assert.ErrorIs(t, err, resource.ErrNotFound)

	data := testutil.BattleData()
	data.Troops[1].Members = []resource.TroopMember{{EnemyID: 77}}
	_, err = Simulate(ctx, SimulateConfig{Data: data}, slimes(1))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSimulate_ReportJSON(t *testing.T) {
	res := simulate(t, slimes(1))
	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "victory", got["outcome"])
	assert.NotContains(t, got, "Result")
	assert.Contains(t, got, "transcript")
}

// ---- Session driven by hand ----

func newTestSession(t *testing.T, req StartRequest) *Session {
	t.Helper()
	data := testutil.BattleData()
	opts := fastOptions()
	ctx, seed, err := newBattle(data, req, opts, zap.NewNop())
	require.NoError(t, err)
	return newSession(sessionConfig{id: "s-1", source: "session", req: req, seed: seed, opts: opts, ctx: ctx})
}

func stepUntil(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	for i := 0; i < 500; i++ {
		if cond() {
			return
		}
		s.step()
	}
	t.Fatalf("condition not reached; state = %v", s.scene.State())
}

func TestSession_CommandFlow(t *testing.T) {
	s := newTestSession(t, slimes(1))
	stepUntil(t, s, func() bool { return s.scene.State() == battle.StateSelectOption })

	snap := s.Snapshot()
	assert.Equal(t, "select_option", snap.State)
	assert.Equal(t, []string{"Fight", "Auto", "Escape"}, snap.Choices)

	fight := battle.OptionBattle
	require.NoError(t, s.push(SignalConfirm, &fight))
	stepUntil(t, s, func() bool { return s.scene.State() == battle.StateSelectCommand })
	snap = s.Snapshot()
	require.NotNil(t, snap.ActiveActor)
	assert.Equal(t, "Hero", snap.ActiveActor.Name)
	assert.Len(t, snap.Choices, 4)

	require.NoError(t, s.push(SignalConfirm, nil)) // attack
	stepUntil(t, s, func() bool { return s.scene.State() == battle.StateSelectEnemyTarget })
	assert.Equal(t, []string{"Slime", "Slime"}, s.Snapshot().Choices)

	second := 1
	require.NoError(t, s.push(SignalConfirm, &second))
	stepUntil(t, s, func() bool { return s.scene.State() == battle.StateBattle })

	front := s.scene.Queue().Actions()
	require.NotEmpty(t, front)
	var heroTarget battle.Battler
	for _, act := range front {
		if act.Source.Name() == "Hero" {
			heroTarget = act.Algorithm.Target()
		}
	}
	require.NotNil(t, heroTarget)
	assert.Equal(t, 1, heroTarget.Index())
}

func TestSession_InputWaitsForMenu(t *testing.T) {
	s := newTestSession(t, slimes(1))
	cancel := 0
	require.NoError(t, s.push(SignalCancel, &cancel))
	require.NoError(t, s.push(SignalConfirm, nil))

	s.step()
	assert.Len(t, s.input.pending, 2, "presses wait while the encounter is shown")

	stepUntil(t, s, func() bool { return len(s.input.pending) == 0 })
}

func TestSession_AbortAndFinished(t *testing.T) {
	s := newTestSession(t, slimes(1))
	require.NoError(t, s.abort())
	r := s.step()
	require.NotNil(t, r)
	assert.Equal(t, "abort", r.Outcome)
	assert.True(t, s.Finished())
	assert.Same(t, r, s.Report())

	assert.Nil(t, s.step())
	assert.ErrorIs(t, s.push(SignalConfirm, nil), ErrSessionFinished)
	assert.ErrorIs(t, s.abort(), ErrSessionFinished)
}

func TestParseSignal(t *testing.T) {
	sig, err := ParseSignal("confirm")
	require.NoError(t, err)
	assert.Equal(t, SignalConfirm, sig)

	_, err = ParseSignal("jump")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 60, o.FPS)
	assert.Equal(t, 200000, o.MaxTicks)
	assert.Equal(t, 10*time.Minute, o.SessionTTL)
}

// ---- Manager ----

type endRecorder struct {
	mu      sync.Mutex
	reports []*Report
}

func (e *endRecorder) hook(_ context.Context, _ string, data interface{}) (interface{}, error) {
	e.mu.Lock()
	e.reports = append(e.reports, data.(*Report))
	e.mu.Unlock()
	return data, nil
}

func (e *endRecorder) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.reports)
}

func newTestManager(t *testing.T, opts Options) (*Manager, *hook.HookCenter) {
	t.Helper()
	_, ps := testutil.SetupTestCache(t)
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)
	hc := hook.NewHookCenter()
	m := NewManager(ManagerConfig{
		Data:      testutil.BattleData(),
		Scheduler: sched,
		PubSub:    ps,
		Hooks:     hc,
		Options:   opts,
	})
	t.Cleanup(m.StopAll)
	return m, hc
}

func TestManager_AutoBattle(t *testing.T) {
	m, hc := newTestManager(t, fastOptions())
	ends := &endRecorder{}
	hc.Register(hook.OnBattleEnd, 0, "test", ends.hook)

	s, err := m.Start(context.Background(), slimes(1), "trace-1")
	require.NoError(t, err)
	assert.Equal(t, "trace-1", s.TraceID)
	assert.Contains(t, m.IDs(), s.ID)

	auto := battle.OptionAutoBattle
	require.Eventually(t, func() bool {
		_ = m.Input(s.ID, SignalConfirm, &auto)
		return s.Finished()
	}, 5*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return ends.len() == 1 }, time.Second, 5*time.Millisecond)

	snap, err := m.Snapshot(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "victory", snap.Result)
	assert.Equal(t, "trace-1", s.Report().TraceID)
	assert.ErrorIs(t, m.Input(s.ID, SignalConfirm, nil), ErrSessionFinished)
}

func TestManager_Abort(t *testing.T) {
	m, _ := newTestManager(t, fastOptions())
	s, err := m.Start(context.Background(), slimes(1), "")
	require.NoError(t, err)

	require.NoError(t, m.Abort(s.ID))
	require.Eventually(t, s.Finished, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "abort", s.Report().Outcome)
}

func TestManager_HookVeto(t *testing.T) {
	m, hc := newTestManager(t, fastOptions())
	hc.Register(hook.OnBattleStart, 0, "deny", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		if d.(*StartEvent).Request.TroopID == 2 {
			return d, hook.ErrInterrupt
		}
		return d, errors.New("ignored failure")
	})

	_, err := m.Start(context.Background(), StartRequest{TroopID: 2, Actors: []ActorSpec{{ID: 1}}}, "")
	assert.ErrorIs(t, err, hook.ErrInterrupt)

	_, err = m.Start(context.Background(), slimes(1), "")
	assert.NoError(t, err)
}

func TestManager_NotFound(t *testing.T) {
	m, _ := newTestManager(t, fastOptions())
	_, err := m.Snapshot("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Abort("missing"), ErrSessionNotFound)
	assert.ErrorIs(t, m.Input("missing", SignalCancel, nil), ErrSessionNotFound)
}

func TestManager_CleanupAfterTTL(t *testing.T) {
	opts := fastOptions()
	opts.SessionTTL = 20 * time.Millisecond
	m, _ := newTestManager(t, opts)
	s, err := m.Start(context.Background(), slimes(1), "")
	require.NoError(t, err)
	require.NoError(t, m.Abort(s.ID))

	assert.Eventually(t, func() bool {
		_, err := m.Get(s.ID)
		return errors.Is(err, ErrSessionNotFound)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_PublishesEvents(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)

	opts := fastOptions()
	opts.FPS = 50
	m := NewManager(ManagerConfig{Data: testutil.BattleData(), Scheduler: sched, PubSub: ps, Options: opts})
	t.Cleanup(m.StopAll)

	s, err := m.Start(context.Background(), slimes(1), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, unsub, err := ps.Subscribe(ctx, "battle:"+s.ID)
	require.NoError(t, err)
	defer unsub()

	select {
	case msg := <-ch:
		var env struct {
			Type  string `json:"type"`
			Frame int    `json:"frame"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.NotEmpty(t, env.Type)
		assert.Positive(t, env.Frame)
	case <-time.After(2 * time.Second):
		t.Fatal("no presentation event published")
	}
}

func TestSimulate_HooksAndSwitches(t *testing.T) {
	hc := hook.NewHookCenter()
	ends := &endRecorder{}
	hc.Register(hook.OnBattleEnd, 0, "test", ends.hook)
	hc.Register(hook.OnBattleStart, 0, "switches", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		ev := d.(*StartEvent)
		assert.True(t, ev.Switches[3], "request switches are visible to start handlers")
		ev.Switches[4] = true
		return d, nil
	})

	req := slimes(1)
	req.Switches = map[int]bool{3: true}
	res, err := Simulate(context.Background(), SimulateConfig{
		Data:    testutil.BattleData(),
		Options: fastOptions(),
		Hooks:   hc,
	}, req)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{3: true, 4: true}, res.Switches)
	require.Equal(t, 1, ends.len())
	assert.Equal(t, res.BattleID, ends.reports[0].BattleID)

	hc.Register(hook.OnBattleStart, 10, "deny", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		return d, hook.ErrInterrupt
	})
	_, err = Simulate(context.Background(), SimulateConfig{Data: testutil.BattleData(), Hooks: hc}, req)
	assert.ErrorIs(t, err, hook.ErrInterrupt)
	assert.Equal(t, 1, ends.len())
}
