package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, name, src string) *Script {
	t.Helper()
	s, err := Compile(name, src)
	require.NoError(t, err)
	return s
}

func TestVMPool_Call(t *testing.T) {
	p := NewVMPool(1, 200*time.Millisecond, nil)
	s := mustCompile(t, "add.js", `function add(a, b) { return a + b; }`)

	v, found, err := p.Call(context.Background(), s.prog, "add", 2, 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(5), v.Export())

	_, found, err = p.Call(context.Background(), s.prog, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestVMPool_DefinitionsDoNotLeak(t *testing.T) {
	p := NewVMPool(1, 200*time.Millisecond, nil)
	a := mustCompile(t, "a.js", `function onBattleEnd() { return 1; }`)
	b := mustCompile(t, "b.js", `var x = 1;`)

	_, found, err := p.Call(context.Background(), a.prog, FnBattleEnd)
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = p.Call(context.Background(), b.prog, FnBattleEnd)
	require.NoError(t, err)
	assert.False(t, found, "a pooled VM must not keep the previous script's handler")
}

func TestVMPool_Timeout(t *testing.T) {
	p := NewVMPool(1, 30*time.Millisecond, nil)
	s := mustCompile(t, "loop.js", `function spin() { for (;;) {} }`)

	_, _, err := p.Call(context.Background(), s.prog, "spin")
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)

	ok := mustCompile(t, "ok.js", `function one() { return 1; }`)
	v, _, err := p.Call(context.Background(), ok.prog, "one")
	require.NoError(t, err, "the pool is refilled after a timeout")
	assert.Equal(t, int64(1), v.Export())
}

func TestVMPool_ContextCanceled(t *testing.T) {
	p := NewVMPool(1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := mustCompile(t, "one.js", `function one() { return 1; }`)
	_, _, err := p.Call(ctx, s.prog, "one")
	assert.Error(t, err)
}

func TestVMPool_SandboxedGlobals(t *testing.T) {
	p := NewVMPool(1, 200*time.Millisecond, nil)
	s := mustCompile(t, "g.js", `function inspect() { return [typeof require, typeof eval, Math.random(), Math.max(2, 7)]; }`)

	v, _, err := p.Call(context.Background(), s.prog, "inspect")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"undefined", "undefined", int64(0), int64(7)}, v.Export())
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("bad.js", "function {")
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), []byte("var b = 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.JS"), []byte("var a = 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	scripts, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a.JS", scripts[0].Name)
	assert.Equal(t, "b.js", scripts[1].Name)

	none, err := LoadDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.js"), []byte("function {"), 0o644))
	_, err = LoadDir(dir)
	assert.Error(t, err)
}

func startEvent(troop int) *session.StartEvent {
	return &session.StartEvent{
		BattleID: "b-1",
		Request:  session.StartRequest{TroopID: troop, Actors: []session.ActorSpec{{ID: 1}, {ID: 2}}, Seed: 9},
		Switches: battle.Switches{1: true},
	}
}

func TestRunner_BattleStart(t *testing.T) {
	src := `
function onBattleStart(battle) {
	if (battle.troopId === 2) {
		return false;
	}
	if (battle.getSwitch(1) && battle.actorIds.length === 2) {
		battle.setSwitch(5, true);
	}
}`
	hc := hook.NewHookCenter()
	NewRunner(NewVMPool(2, time.Second, nil), []*Script{mustCompile(t, "rules.js", src)}, nil).Register(hc)
	assert.Equal(t, 1, hc.Len(hook.OnBattleStart))
	assert.Equal(t, 1, hc.Len(hook.OnBattleEnd))

	ev := startEvent(1)
	_, err := hc.Trigger(context.Background(), hook.OnBattleStart, ev)
	require.NoError(t, err)
	assert.True(t, ev.Switches[5])

	_, err = hc.Trigger(context.Background(), hook.OnBattleStart, startEvent(2))
	assert.ErrorIs(t, err, hook.ErrInterrupt)
}

func TestRunner_BattleEnd(t *testing.T) {
	src := `
function onBattleEnd(report) {
	if (report.outcome !== "victory" || report.rewards.exp !== 12) {
		throw new Error("unexpected report " + report.outcome);
	}
}`
	hc := hook.NewHookCenter()
	NewRunner(NewVMPool(1, time.Second, nil), []*Script{mustCompile(t, "end.js", src)}, nil).Register(hc)

	rep := &session.Report{BattleID: "b-1", Outcome: "victory", Rewards: battle.Rewards{Exp: 12}}
	_, err := hc.Trigger(context.Background(), hook.OnBattleEnd, rep)
	assert.NoError(t, err)

	rep.Outcome = "defeat"
	_, err = hc.Trigger(context.Background(), hook.OnBattleEnd, rep)
	require.Error(t, err)
	assert.NotErrorIs(t, err, hook.ErrInterrupt)
	assert.Contains(t, err.Error(), "unexpected report defeat")
}

func TestRunner_WrongPayload(t *testing.T) {
	hc := hook.NewHookCenter()
	NewRunner(NewVMPool(1, time.Second, nil), []*Script{mustCompile(t, "x.js", "var x;")}, nil).Register(hc)
	_, err := hc.Trigger(context.Background(), hook.OnBattleEnd, "nope")
	assert.Error(t, err)
}
