package battle

import (
	"github.com/kasuganosora/rpg2kbattle/resource"
)

// Faction tells which side a battler fights on.
type Faction int

const (
	FactionAlly Faction = iota
	FactionEnemy
)

func (f Faction) String() string {
	if f == FactionAlly {
		return "ally"
	}
	return "enemy"
}

// Stat indices for base parameters and battle modifiers.
const (
	StatMaxHP = iota
	StatMaxSP
	StatAttack
	StatDefense
	StatSpirit
	StatAgility
)

const (
	maxHPLimit = 9999
	maxSPLimit = 999
	statLimit  = 999
)

// StateEntry tracks an inflicted state on a battler.
type StateEntry struct {
	StateID int
	Turns   int // battle turns the state has been held
}

// Battler represents any combatant. The set of implementations is closed:
// *ActorBattler and *EnemyBattler.
type Battler interface {
	// ID is the actor or enemy database ID.
	ID() int
	Name() string
	Faction() Faction
	Index() int
	Party() *Party

	HP() int
	SP() int
	MaxHP() int
	MaxSP() int
	SetHP(v int)
	SetSP(v int)
	ChangeHP(delta int)
	ChangeSP(delta int)

	Atk() int
	Def() int
	Spi() int
	Agi() int
	ChangeStatModifier(stat, delta int)

	StateIDs() []int
	HasState(stateID int) bool
	AddState(stateID int)
	RemoveState(stateID int)
	// SignificantRestriction is the restriction of the highest priority
	// state that restricts, or RestrictionNormal.
	SignificantRestriction() int
	// NextBattleTurn advances state turn counters and releases expired
	// states. Returns the released state IDs.
	NextBattleTurn(rng RNG) []int
	// InflictedStates returns the states still held, death excluded.
	InflictedStates() []int
	// ApplyConditions applies per-turn HP/SP changes of held states.
	ApplyConditions()

	IsDead() bool
	IsHidden() bool
	// Exists reports whether the battler is alive and on the field.
	Exists() bool
	CanAct() bool

	AttributeRank(attributeID int) int
	StateProbability(stateID int) int
	HitChance() int
	CriticalHitChance() int

	IsDefending() bool
	SetDefending(v bool)
	IsCharged() bool
	SetCharged(v bool)

	// EndBattle clears battle-only modifiers and flags.
	EndBattle()

	base() *baseBattler
}

// ---------------------------------------------------------------------------
//  baseBattler: shared implementation for actors and enemies
// ---------------------------------------------------------------------------

type baseBattler struct {
	id        int
	name      string
	faction   Faction
	index     int
	party     *Party
	hp, sp    int
	params    [6]int // 0=mhp,1=msp,2=atk,3=def,4=spi,5=agi (base + equipment)
	modifiers [6]int // battle-only; only 2..5 are used
	states    []StateEntry
	defending bool
	charged   bool
	hidden    bool
	attrRanks []int
	stRanks   []int
	data      *resource.ResourceLoader
}

func (b *baseBattler) base() *baseBattler { return b }

func (b *baseBattler) ID() int          { return b.id }
func (b *baseBattler) Name() string     { return b.name }
func (b *baseBattler) Faction() Faction { return b.faction }
func (b *baseBattler) Index() int       { return b.index }
func (b *baseBattler) Party() *Party    { return b.party }
func (b *baseBattler) HP() int          { return b.hp }
func (b *baseBattler) SP() int          { return b.sp }

func (b *baseBattler) MaxHP() int { return clamp(b.params[StatMaxHP], 1, maxHPLimit) }
func (b *baseBattler) MaxSP() int { return clamp(b.params[StatMaxSP], 0, maxSPLimit) }

func (b *baseBattler) stat(i int) int { return clamp(b.params[i]+b.modifiers[i], 1, statLimit) }

func (b *baseBattler) Atk() int { return b.stat(StatAttack) }
func (b *baseBattler) Def() int { return b.stat(StatDefense) }
func (b *baseBattler) Spi() int { return b.stat(StatSpirit) }
func (b *baseBattler) Agi() int { return b.stat(StatAgility) }

// ChangeStatModifier adds delta to a battle modifier. The effective value
// stays within 1..999.
func (b *baseBattler) ChangeStatModifier(stat, delta int) {
	if stat < StatAttack || stat > StatAgility {
		return
	}
	v := clamp(b.params[stat]+b.modifiers[stat]+delta, 1, statLimit)
	b.modifiers[stat] = v - b.params[stat]
}

// SetHP clamps v to 0..MaxHP. Reaching 0 inflicts death.
func (b *baseBattler) SetHP(v int) {
	b.hp = clamp(v, 0, b.MaxHP())
	if b.hp == 0 {
		b.AddState(resource.DeathStateID)
	}
}

func (b *baseBattler) SetSP(v int) {
	b.sp = clamp(v, 0, b.MaxSP())
}

// ChangeHP is a no-op on dead battlers; revival goes through RemoveState.
func (b *baseBattler) ChangeHP(delta int) {
	if b.IsDead() {
		return
	}
	b.SetHP(b.hp + delta)
}

func (b *baseBattler) ChangeSP(delta int) {
	b.SetSP(b.sp + delta)
}

// --- State management ---

func (b *baseBattler) HasState(stateID int) bool {
	for _, s := range b.states {
		if s.StateID == stateID {
			return true
		}
	}
	return false
}

func (b *baseBattler) StateIDs() []int {
	ids := make([]int, len(b.states))
	for i, s := range b.states {
		ids[i] = s.StateID
	}
	return ids
}

// AddState inflicts a state. Death zeroes HP and clears every other state
// and flag; nothing else can be inflicted on the dead.
func (b *baseBattler) AddState(stateID int) {
	if b.HasState(stateID) {
		return
	}
	if stateID == resource.DeathStateID {
		b.hp = 0
		b.states = b.states[:0]
		b.defending = false
		b.charged = false
	} else if b.IsDead() {
		return
	}
	b.states = append(b.states, StateEntry{StateID: stateID})
}

// RemoveState cures a state. Curing death leaves the battler with at least
// 1 HP.
func (b *baseBattler) RemoveState(stateID int) {
	for i, s := range b.states {
		if s.StateID == stateID {
			b.states = append(b.states[:i], b.states[i+1:]...)
			break
		}
	}
	if stateID == resource.DeathStateID && b.hp == 0 {
		b.hp = 1
	}
}

func (b *baseBattler) SignificantRestriction() int {
	best, priority := resource.RestrictionNormal, -1
	for _, e := range b.states {
		st := b.data.StateByID(e.StateID)
		if st == nil || st.Restriction == resource.RestrictionNormal {
			continue
		}
		if st.Priority > priority {
			best, priority = st.Restriction, st.Priority
		}
	}
	return best
}

func (b *baseBattler) NextBattleTurn(rng RNG) []int {
	var healed []int
	for _, id := range b.StateIDs() {
		if id == resource.DeathStateID {
			continue
		}
		entry := b.entry(id)
		entry.Turns++
		st := b.data.StateByID(id)
		if st == nil || st.HoldTurn <= 0 || entry.Turns < st.HoldTurn {
			continue
		}
		if rng.Intn(100) < st.AutoReleaseProb {
			b.RemoveState(id)
			healed = append(healed, id)
		}
	}
	return healed
}

func (b *baseBattler) entry(stateID int) *StateEntry {
	for i := range b.states {
		if b.states[i].StateID == stateID {
			return &b.states[i]
		}
	}
	return &StateEntry{}
}

func (b *baseBattler) InflictedStates() []int {
	var ids []int
	for _, s := range b.states {
		if s.StateID != resource.DeathStateID {
			ids = append(ids, s.StateID)
		}
	}
	return ids
}

func (b *baseBattler) ApplyConditions() {
	for _, id := range b.InflictedStates() {
		st := b.data.StateByID(id)
		if st == nil {
			continue
		}
		hp := st.HPChangeVal + b.MaxHP()*st.HPChangeMax/100
		switch st.HPChangeType {
		case resource.ChangeLose:
			b.ChangeHP(-hp)
		case resource.ChangeGain:
			b.ChangeHP(hp)
		}
		sp := st.SPChangeVal + b.MaxSP()*st.SPChangeMax/100
		switch st.SPChangeType {
		case resource.ChangeLose:
			b.ChangeSP(-sp)
		case resource.ChangeGain:
			b.ChangeSP(sp)
		}
	}
}

func (b *baseBattler) IsDead() bool   { return b.HasState(resource.DeathStateID) }
func (b *baseBattler) IsHidden() bool { return b.hidden }
func (b *baseBattler) Exists() bool   { return !b.hidden && !b.IsDead() }

func (b *baseBattler) CanAct() bool {
	return !b.IsDead() && b.SignificantRestriction() != resource.RestrictionDoNothing
}

func (b *baseBattler) AttributeRank(attributeID int) int {
	if attributeID >= 1 && attributeID <= len(b.attrRanks) {
		return b.attrRanks[attributeID-1]
	}
	return resource.DefaultRank
}

// StateProbability is the percent chance the state lands on this battler.
func (b *baseBattler) StateProbability(stateID int) int {
	st := b.data.StateByID(stateID)
	if st == nil {
		return 0
	}
	rank := resource.DefaultRank
	if stateID >= 1 && stateID <= len(b.stRanks) {
		rank = b.stRanks[stateID-1]
	}
	return st.RankRate(rank)
}

func (b *baseBattler) IsDefending() bool   { return b.defending }
func (b *baseBattler) SetDefending(v bool) { b.defending = v }
func (b *baseBattler) IsCharged() bool     { return b.charged }
func (b *baseBattler) SetCharged(v bool)   { b.charged = v }

func (b *baseBattler) EndBattle() {
	b.modifiers = [6]int{}
	b.defending = false
	b.charged = false
	b.hidden = false
	for _, id := range b.StateIDs() {
		if id != resource.DeathStateID {
			b.RemoveState(id)
		}
	}
}

// ---------------------------------------------------------------------------
//  ActorBattler
// ---------------------------------------------------------------------------

// ActorBattler is a party member.
type ActorBattler struct {
	baseBattler
	actor      *resource.Actor
	level      int
	exp        int
	weapon     *resource.Item
	skills     []int
	autoBattle bool
}

// ActorConfig configures an ActorBattler.
type ActorConfig struct {
	Actor *resource.Actor
	Level int // 0 = actor's initial level
	HP    int // 0 = full
	SP    int // 0 = full
	Exp   int
}

// NewActorBattler builds an actor from its database record. Parameters come
// from the level curves plus equipment bonuses.
func NewActorBattler(data *resource.ResourceLoader, cfg ActorConfig) *ActorBattler {
	a := cfg.Actor
	level := cfg.Level
	if level <= 0 {
		level = max(a.InitialLevel, 1)
	}
	ab := &ActorBattler{
		baseBattler: baseBattler{
			id:        a.ID,
			name:      a.Name,
			faction:   FactionAlly,
			attrRanks: a.AttributeRanks,
			stRanks:   a.StateRanks,
			data:      data,
		},
		actor:      a,
		level:      level,
		exp:        cfg.Exp,
		autoBattle: a.AutoBattle,
	}
	curves := a.Parameters
	ab.params = [6]int{
		resource.At(curves.MaxHP, level),
		resource.At(curves.MaxSP, level),
		resource.At(curves.Attack, level),
		resource.At(curves.Defense, level),
		resource.At(curves.Spirit, level),
		resource.At(curves.Agility, level),
	}
	for _, id := range a.EquipmentIDs() {
		item := data.ItemByID(id)
		if item == nil {
			continue
		}
		ab.params[StatAttack] += item.AtkPoints
		ab.params[StatDefense] += item.DefPoints
		ab.params[StatSpirit] += item.SpiPoints
		ab.params[StatAgility] += item.AgiPoints
		if id == a.WeaponID && item.Type == resource.ItemWeapon {
			ab.weapon = item
		}
	}
	ab.skills = data.SkillsForLevel(a.ID, level)
	ab.hp = ab.MaxHP()
	if cfg.HP > 0 {
		ab.hp = min(cfg.HP, ab.MaxHP())
	}
	ab.sp = ab.MaxSP()
	if cfg.SP > 0 {
		ab.sp = min(cfg.SP, ab.MaxSP())
	}
	return ab
}

func (a *ActorBattler) Actor() *resource.Actor { return a.actor }
func (a *ActorBattler) Level() int             { return a.level }
func (a *ActorBattler) Exp() int               { return a.exp }
func (a *ActorBattler) GainExp(n int)          { a.exp += n }

// Weapon returns the equipped weapon, or nil when unarmed.
func (a *ActorBattler) Weapon() *resource.Item { return a.weapon }

// SkillIDs returns the learned skills.
func (a *ActorBattler) SkillIDs() []int { return a.skills }

// AutoBattle reports whether the actor picks its own actions.
func (a *ActorBattler) AutoBattle() bool { return a.autoBattle }

func (a *ActorBattler) HitChance() int {
	if a.weapon != nil {
		return a.weapon.Hit
	}
	return 90
}

func (a *ActorBattler) CriticalHitChance() int {
	if !a.actor.CriticalHit {
		return 0
	}
	return a.actor.CriticalHitChance
}

// ---------------------------------------------------------------------------
//  EnemyBattler
// ---------------------------------------------------------------------------

// EnemyBattler is a troop member.
type EnemyBattler struct {
	baseBattler
	enemy *resource.Enemy
}

// NewEnemyBattler builds a full-health enemy.
func NewEnemyBattler(data *resource.ResourceLoader, e *resource.Enemy) *EnemyBattler {
	eb := &EnemyBattler{baseBattler: baseBattler{faction: FactionEnemy, data: data}}
	eb.setEnemy(e)
	eb.hp = eb.MaxHP()
	eb.sp = eb.MaxSP()
	return eb
}

func (e *EnemyBattler) setEnemy(en *resource.Enemy) {
	e.enemy = en
	e.id = en.ID
	e.name = en.Name
	e.params = [6]int{en.MaxHP, en.MaxSP, en.Attack, en.Defense, en.Spirit, en.Agility}
	e.attrRanks = en.AttributeRanks
	e.stRanks = en.StateRanks
}

func (e *EnemyBattler) Enemy() *resource.Enemy { return e.enemy }

// SetHidden hides or reveals the enemy. Hidden enemies are out of the battle.
func (e *EnemyBattler) SetHidden(v bool) { e.hidden = v }

// Transform swaps the enemy record in place. HP and SP are kept, clamped to
// the new maxima.
func (e *EnemyBattler) Transform(en *resource.Enemy) {
	e.setEnemy(en)
	e.hp = min(e.hp, e.MaxHP())
	e.sp = min(e.sp, e.MaxSP())
}

func (e *EnemyBattler) HitChance() int {
	if e.enemy.Miss {
		return 70
	}
	return 90
}

func (e *EnemyBattler) CriticalHitChance() int {
	if !e.enemy.CriticalHit {
		return 0
	}
	return e.enemy.CriticalHitChance
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
