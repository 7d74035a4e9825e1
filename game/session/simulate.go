package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/game/presentation"
	"github.com/kasuganosora/rpg2kbattle/model"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"go.uber.org/zap"
)

// ctxCheckInterval is how many frames pass between context checks.
const ctxCheckInterval = 256

// SimulationResult is the outcome of a headless battle.
type SimulationResult struct {
	Report
	Allies []presentation.BattlerSnapshot `json:"allies"`
	Events []presentation.Envelope        `json:"events,omitempty"`
}

// SimulateConfig holds what Simulate needs besides the request.
type SimulateConfig struct {
	Data       *resource.ResourceLoader
	Options    Options
	Hooks      *hook.HookCenter // optional; start and end hooks fire like for live sessions
	Logger     *zap.Logger
	TraceID    string
	KeepEvents bool
}

// Simulate runs a battle to completion without a clock, choosing auto battle
// every round. A battle that outlasts Options.MaxTicks is aborted.
func Simulate(ctx context.Context, cfg SimulateConfig, req StartRequest) (*SimulationResult, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	opts := cfg.Options.withDefaults()
	id := uuid.NewString()
	logger := cfg.Logger.With(zap.String("battle_id", id))

	bctx, seed, err := newBattle(cfg.Data, req, opts, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Hooks != nil {
		if err := triggerStart(ctx, cfg.Hooks, id, req, bctx, logger); err != nil {
			return nil, err
		}
	}
	rec := &presentation.Recorder{}
	s := newSession(sessionConfig{
		id:      id,
		source:  model.SourceSimulation,
		req:     req,
		seed:    seed,
		opts:    opts,
		ctx:     bctx,
		emitter: rec,
	})
	s.TraceID = cfg.TraceID

	autoBattle := battle.OptionAutoBattle
	var report *Report
	for frame := 0; report == nil; frame++ {
		if frame%ctxCheckInterval == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if frame == opts.MaxTicks {
			logger.Warn("simulation tick limit reached", zap.Int("frames", frame), zap.Int("turns", bctx.Turn))
			_ = s.abort()
		}
		if awaitingInput(s.scene.State()) && len(s.input.pending) == 0 {
			if s.scene.State() == battle.StateSelectOption {
				_ = s.push(SignalConfirm, &autoBattle)
			} else {
				_ = s.push(SignalConfirm, nil)
			}
		}
		report = s.step()
	}

	res := &SimulationResult{
		Report: *report,
		Allies: presentation.SnapshotParty(bctx.Allies),
	}
	if cfg.KeepEvents {
		res.Events = rec.Events()
	}
	if cfg.Hooks != nil {
		triggerEnd(ctx, cfg.Hooks, &res.Report, logger)
	}
	return res, nil
}
