package battle

import (
	"time"

	"github.com/kasuganosora/rpg2kbattle/resource"
	"go.uber.org/zap"
)

// Engine selects the message style of the battle system.
type Engine int

const (
	EngineRPG2k Engine = iota
	EngineRPG2k3
)

// ParseEngine maps a config value to an Engine, defaulting to RPG2k.
func ParseEngine(s string) Engine {
	if s == "rpg2k3" {
		return EngineRPG2k3
	}
	return EngineRPG2k
}

func (e Engine) String() string {
	if e == EngineRPG2k3 {
		return "rpg2k3"
	}
	return "rpg2k"
}

// Switches holds the game switches touched during battle.
type Switches map[int]bool

// Context is the per-battle state shared by algorithms, the presenter and the
// scene. Nothing in it outlives the battle.
type Context struct {
	Data    *resource.ResourceLoader
	RNG     RNG
	Allies  *Party
	Enemies *Party

	Switches Switches

	// EscapeFailCount raises the odds of later escape attempts.
	EscapeFailCount int
	EscapeAllowed   bool
	Turn            int

	Engine                Engine
	LegacySPDamageMessage bool

	Logger *zap.Logger
}

// ContextConfig configures a Context.
type ContextConfig struct {
	Data                  *resource.ResourceLoader
	RNG                   RNG // nil = seeded from the clock
	Allies                *Party
	Enemies               *Party
	EscapeAllowed         bool
	Engine                Engine
	LegacySPDamageMessage bool
	Logger                *zap.Logger
}

// NewContext creates a battle context.
func NewContext(cfg ContextConfig) *Context {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RNG == nil {
		cfg.RNG = NewRNG(time.Now().UnixNano())
	}
	if cfg.Data == nil {
		cfg.Data = resource.NewLoader("")
	}
	if cfg.Allies == nil {
		cfg.Allies = NewParty(FactionAlly)
	}
	if cfg.Enemies == nil {
		cfg.Enemies = NewParty(FactionEnemy)
	}
	return &Context{
		Data:                  cfg.Data,
		RNG:                   cfg.RNG,
		Allies:                cfg.Allies,
		Enemies:               cfg.Enemies,
		Switches:              make(Switches),
		EscapeAllowed:         cfg.EscapeAllowed,
		Engine:                cfg.Engine,
		LegacySPDamageMessage: cfg.LegacySPDamageMessage,
		Logger:                cfg.Logger,
	}
}

// PartyOf returns the party of the given faction.
func (c *Context) PartyOf(f Faction) *Party {
	if f == FactionAlly {
		return c.Allies
	}
	return c.Enemies
}

// OpponentsOf returns the party facing the given faction.
func (c *Context) OpponentsOf(f Faction) *Party {
	if f == FactionAlly {
		return c.Enemies
	}
	return c.Allies
}

// Terms returns the battle vocabulary.
func (c *Context) Terms() *resource.Terms {
	if c.Data.Terms == nil {
		c.Data.Terms = resource.DefaultTerms()
	}
	return c.Data.Terms
}

func (c *Context) sounds() *resource.SystemSounds {
	if c.Data.System == nil {
		c.Data.System = &resource.SystemData{}
	}
	return &c.Data.System.Sounds
}

// sound returns a pointer to s, or nil when s names no file.
func sound(s resource.Sound) *resource.Sound {
	if s.IsEmpty() {
		return nil
	}
	return &s
}

// state returns the state record, or nil.
func (c *Context) state(id int) *resource.State {
	return c.Data.StateByID(id)
}

// End resets battle-only state on every battler. Called once the scene has
// produced its result.
func (c *Context) End() {
	for _, p := range []*Party{c.Allies, c.Enemies} {
		for _, b := range p.Members() {
			b.EndBattle()
		}
	}
	c.EscapeFailCount = 0
}
