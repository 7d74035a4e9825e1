package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"go.uber.org/zap"
)

// Global function names a script may define.
const (
	FnBattleStart = "onBattleStart"
	FnBattleEnd   = "onBattleEnd"
)

// hookPriority runs scripts after the built-in handlers of the same event.
const hookPriority = 500

// Script is a compiled battle hook script.
type Script struct {
	Name string
	prog *goja.Program
}

// Compile compiles src under name.
func Compile(name, src string) (*Script, error) {
	prog, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", name, err)
	}
	return &Script{Name: name, prog: prog}, nil
}

// LoadDir compiles every .js file of dir in name order. A missing directory
// yields no scripts.
func LoadDir(dir string) ([]*Script, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".js") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scripts := make([]*Script, 0, len(names))
	for _, name := range names {
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("script: read %s: %w", name, err)
		}
		s, err := Compile(name, string(src))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// Runner binds scripts to the battle lifecycle hooks.
//
// onBattleStart(battle) sees {id, troopId, actorIds, seed} plus
// getSwitch(id) and setSwitch(id, on); returning false rejects the battle.
// onBattleEnd(report) receives the battle report as JSON data.
type Runner struct {
	pool    *VMPool
	scripts []*Script
	logger  *zap.Logger
}

// NewRunner creates a Runner over pool.
func NewRunner(pool *VMPool, scripts []*Script, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{pool: pool, scripts: scripts, logger: logger}
}

// Register installs one handler per script and event on hc.
func (r *Runner) Register(hc *hook.HookCenter) {
	for _, s := range r.scripts {
		hc.Register(hook.OnBattleStart, hookPriority, "script:"+s.Name, func(ctx context.Context, _ string, data interface{}) (interface{}, error) {
			ev, ok := data.(*session.StartEvent)
			if !ok {
				return data, fmt.Errorf("script: unexpected payload %T", data)
			}
			return data, r.battleStart(ctx, s, ev)
		})
		hc.Register(hook.OnBattleEnd, hookPriority, "script:"+s.Name, func(ctx context.Context, _ string, data interface{}) (interface{}, error) {
			rep, ok := data.(*session.Report)
			if !ok {
				return data, fmt.Errorf("script: unexpected payload %T", data)
			}
			return data, r.battleEnd(ctx, s, rep)
		})
	}
	r.logger.Info("battle scripts registered", zap.Int("count", len(r.scripts)))
}

func (r *Runner) battleStart(ctx context.Context, s *Script, ev *session.StartEvent) error {
	battle := map[string]interface{}{
		"id":        ev.BattleID,
		"troopId":   ev.Request.TroopID,
		"actorIds":  ev.Request.ActorIDs(),
		"seed":      ev.Request.Seed,
		"getSwitch": func(id int) bool { return ev.Switches[id] },
		"setSwitch": func(id int, on bool) { ev.Switches[id] = on },
	}
	res, found, err := r.pool.Call(ctx, s.prog, FnBattleStart, battle)
	if err != nil {
		r.logger.Warn("battle start script failed",
			zap.String("script", s.Name), zap.String("battle_id", ev.BattleID), zap.Error(err))
		return fmt.Errorf("script %s: %w", s.Name, err)
	}
	if ok, isBool := exportBool(res); found && isBool && !ok {
		return fmt.Errorf("script %s rejected battle: %w", s.Name, hook.ErrInterrupt)
	}
	return nil
}

func (r *Runner) battleEnd(ctx context.Context, s *Script, rep *session.Report) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	if _, _, err := r.pool.Call(ctx, s.prog, FnBattleEnd, data); err != nil {
		r.logger.Warn("battle end script failed",
			zap.String("script", s.Name), zap.String("battle_id", rep.BattleID), zap.Error(err))
		return fmt.Errorf("script %s: %w", s.Name, err)
	}
	return nil
}

func exportBool(v goja.Value) (value, ok bool) {
	if v == nil {
		return false, false
	}
	value, ok = v.Export().(bool)
	return value, ok
}
