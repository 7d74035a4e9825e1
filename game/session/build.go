package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/rpg2kbattle/config"
	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrSessionFinished = errors.New("session: finished")
	ErrInvalidRequest  = errors.New("session: invalid request")
)

// ActorSpec puts a database actor into the party.
type ActorSpec struct {
	ID    int `json:"id"`
	Level int `json:"level,omitempty"` // 0 = initial level
	HP    int `json:"hp,omitempty"`    // 0 = full
	SP    int `json:"sp,omitempty"`    // 0 = full
}

// StartRequest describes a battle to set up.
type StartRequest struct {
	TroopID       int          `json:"troop_id"`
	Actors        []ActorSpec  `json:"actors"`
	Items         map[int]int  `json:"items,omitempty"` // item ID -> count
	Gold          int          `json:"gold,omitempty"`
	Seed          int64        `json:"seed,omitempty"` // 0 = clock
	EscapeAllowed bool         `json:"escape_allowed"`
	Switches      map[int]bool `json:"switches,omitempty"`
}

// ActorIDs lists the requested actor IDs in party order.
func (r StartRequest) ActorIDs() []int {
	ids := make([]int, len(r.Actors))
	for i, a := range r.Actors {
		ids[i] = a.ID
	}
	return ids
}

// Options are the engine settings shared by every battle of a service.
type Options struct {
	Engine                battle.Engine
	LegacySPDamageMessage bool
	Timing                battle.Timing
	FPS                   int
	MaxTicks              int
	SessionTTL            time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Engine:                battle.EngineRPG2k,
		LegacySPDamageMessage: true,
		Timing:                battle.DefaultTiming(),
		FPS:                   60,
		MaxTicks:              200000,
		SessionTTL:            10 * time.Minute,
	}
}

// OptionsFromConfig converts the battle section of the service config.
func OptionsFromConfig(cfg config.BattleConfig) Options {
	o := Options{
		Engine:                battle.ParseEngine(cfg.Engine),
		LegacySPDamageMessage: cfg.LegacySPDamageMessage,
		Timing: battle.Timing{
			ActionWait:          cfg.ActionWait,
			EscapeWait:          cfg.EscapeWait,
			TargetFlashInterval: cfg.TargetFlashInterval,
			EncounterShortWait:  cfg.EncounterShortWait,
			EncounterLongWait:   cfg.EncounterLongWait,
		},
		FPS:        cfg.FPS,
		MaxTicks:   cfg.MaxSimulationTicks,
		SessionTTL: cfg.SessionTTL,
	}
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.FPS <= 0 {
		o.FPS = def.FPS
	}
	if o.MaxTicks <= 0 {
		o.MaxTicks = def.MaxTicks
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = def.SessionTTL
	}
	return o
}

// newBattle builds the parties and battle context of req. The returned seed
// is the one actually used.
func newBattle(data *resource.ResourceLoader, req StartRequest, opts Options, logger *zap.Logger) (*battle.Context, int64, error) {
	troop, err := data.Troop(req.TroopID)
	if err != nil {
		return nil, 0, err
	}
	if len(req.Actors) == 0 {
		return nil, 0, fmt.Errorf("%w: no actors", ErrInvalidRequest)
	}

	allies := battle.NewParty(battle.FactionAlly)
	for _, spec := range req.Actors {
		a := data.ActorByID(spec.ID)
		if a == nil {
			return nil, 0, fmt.Errorf("actor %d: %w", spec.ID, resource.ErrNotFound)
		}
		allies.Add(battle.NewActorBattler(data, battle.ActorConfig{
			Actor: a,
			Level: spec.Level,
			HP:    spec.HP,
			SP:    spec.SP,
		}))
	}
	for id, n := range req.Items {
		if data.ItemByID(id) == nil {
			return nil, 0, fmt.Errorf("item %d: %w", id, resource.ErrNotFound)
		}
		allies.AddItem(id, n)
	}
	allies.GainGold(req.Gold)

	enemies := battle.NewParty(battle.FactionEnemy)
	for _, m := range troop.Members {
		e := data.EnemyByID(m.EnemyID)
		if e == nil {
			logger.Warn("troop member skipped", zap.Int("troop_id", troop.ID), zap.Int("enemy_id", m.EnemyID))
			continue
		}
		eb := battle.NewEnemyBattler(data, e)
		eb.SetHidden(m.Invisible)
		enemies.Add(eb)
	}
	if enemies.Len() == 0 {
		return nil, 0, fmt.Errorf("%w: troop %d has no enemies", ErrInvalidRequest, troop.ID)
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ctx := battle.NewContext(battle.ContextConfig{
		Data:                  data,
		RNG:                   battle.NewRNG(seed),
		Allies:                allies,
		Enemies:               enemies,
		EscapeAllowed:         req.EscapeAllowed,
		Engine:                opts.Engine,
		LegacySPDamageMessage: opts.LegacySPDamageMessage,
		Logger:                logger,
	})
	for id, on := range req.Switches {
		ctx.Switches[id] = on
	}
	return ctx, seed, nil
}
