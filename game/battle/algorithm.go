package battle

import (
	"github.com/kasuganosora/rpg2kbattle/resource"
)

// Kind identifies a battle algorithm.
type Kind int

const (
	KindNormal Kind = iota
	KindSkill
	KindItem
	KindDefend
	KindObserve
	KindCharge
	KindSelfDestruct
	KindEscape
	KindTransform
	KindNoMove
	KindNormalDual
)

var kindNames = [...]string{
	"normal", "skill", "item", "defend", "observe", "charge",
	"self_destruct", "escape", "transform", "no_move", "normal_dual",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Unset marks an Outcome field the action does not touch.
const Unset = -1

// Outcome is what Execute computed for the current target. Apply commits it.
type Outcome struct {
	HP      int
	SP      int
	Attack  int
	Defense int
	Spirit  int
	Agility int
	Switch  int

	Healing  bool
	Success  bool
	Killed   bool
	Critical bool
	Absorb   bool

	// Conditions are states to inflict, or to cure when Healing.
	Conditions []*resource.State
	// Cures are states removed regardless of Healing.
	Cures []*resource.State
}

func (o *Outcome) reset() {
	*o = Outcome{
		HP:      Unset,
		SP:      Unset,
		Attack:  Unset,
		Defense: Unset,
		Spirit:  Unset,
		Agility: Unset,
		Switch:  Unset,
	}
}

// Algorithm is one battle action: who acts, on whom, and how. Execute
// computes the outcome for the current target and Apply commits it. Multi
// target actions repeat both after TargetNext.
type Algorithm interface {
	Kind() Kind
	Source() Battler
	// Target returns the current target, or nil.
	Target() Battler
	// SetTarget replaces the target list with t.
	SetTarget(t Battler)
	// NoTarget reports whether the action acts without a target.
	NoTarget() bool
	IsTargetValid() bool
	// TargetNext advances to the next target. The first-attack flag drops
	// on the first successful advance.
	TargetNext() bool
	IsFirstAttack() bool

	// Execute computes the outcome. The bool is the success flag: false
	// for a miss. A non-nil error aborts the action.
	Execute() (bool, error)
	Apply()
	Outcome() *Outcome

	StartMessage() string
	// ResultMessages appends the result lines to out.
	ResultMessages(out []string) []string
	DeathMessage() string

	Animation() *resource.Animation
	SourceAnimationState() SpriteState
	StartSound() *resource.Sound
	ResultSound() *resource.Sound
	DeathSound() *resource.Sound
}

// ---------------------------------------------------------------------------
//  base: shared target handling and outcome commit
// ---------------------------------------------------------------------------

type base struct {
	ctx         *Context
	kind        Kind
	source      Battler
	targets     []Battler
	cursor      int
	noTarget    bool
	firstAttack bool
	out         Outcome
}

func newBase(ctx *Context, kind Kind, source Battler) base {
	b := base{ctx: ctx, kind: kind, source: source, noTarget: true, firstAttack: true}
	b.out.reset()
	return b
}

func newTargetBase(ctx *Context, kind Kind, source, target Battler) base {
	b := newBase(ctx, kind, source)
	b.noTarget = false
	b.SetTarget(target)
	return b
}

func newPartyBase(ctx *Context, kind Kind, source Battler, party *Party) base {
	b := newBase(ctx, kind, source)
	b.noTarget = false
	b.targets = party.ActiveBattlers()
	return b
}

func (b *base) Kind() Kind          { return b.kind }
func (b *base) Source() Battler     { return b.source }
func (b *base) NoTarget() bool      { return b.noTarget }
func (b *base) IsFirstAttack() bool { return b.firstAttack }
func (b *base) Outcome() *Outcome   { return &b.out }

func (b *base) Target() Battler {
	if b.cursor < len(b.targets) {
		return b.targets[b.cursor]
	}
	return nil
}

func (b *base) SetTarget(t Battler) {
	b.targets = b.targets[:0]
	b.cursor = 0
	if t != nil {
		b.targets = append(b.targets, t)
	}
}

func (b *base) IsTargetValid() bool {
	if b.noTarget {
		return true
	}
	t := b.Target()
	return t != nil && !t.IsDead()
}

func (b *base) TargetNext() bool {
	if b.cursor+1 < len(b.targets) {
		b.cursor++
		b.firstAttack = false
		return true
	}
	return false
}

func (b *base) Animation() *resource.Animation    { return nil }
func (b *base) SourceAnimationState() SpriteState { return SpriteIdle }
func (b *base) StartSound() *resource.Sound       { return nil }

func (b *base) ResultSound() *resource.Sound {
	t := b.Target()
	if b.out.Healing || t == nil {
		return nil
	}
	s := b.ctx.sounds()
	if !b.out.Success {
		return sound(s.Evasion)
	}
	if t.Faction() == FactionAlly {
		return sound(s.ActorDamaged)
	}
	return sound(s.EnemyDamaged)
}

func (b *base) DeathSound() *resource.Sound {
	t := b.Target()
	if t == nil || t.Faction() == FactionAlly {
		return nil
	}
	return sound(b.ctx.sounds().EnemyKill)
}

// apply commits the outcome to the current target. A failed outcome only
// drops the source's defending flag.
func (b *base) apply() {
	defer b.source.SetDefending(false)
	t := b.Target()
	o := &b.out
	if t == nil || !o.Success {
		return
	}

	// Revive before the HP change; ChangeHP ignores the dead.
	if o.Healing && t.IsDead() {
		for _, st := range o.Conditions {
			if st.ID == resource.DeathStateID {
				t.RemoveState(st.ID)
			}
		}
	}

	if o.HP != Unset {
		before := t.HP()
		if o.Healing {
			t.ChangeHP(o.HP)
		} else {
			t.ChangeHP(-o.HP)
			if o.Absorb {
				b.source.ChangeHP(min(before, o.HP))
			}
		}
	}
	if o.SP != Unset {
		before := t.SP()
		if o.Healing {
			t.ChangeSP(o.SP)
		} else {
			t.ChangeSP(-o.SP)
			if o.Absorb {
				b.source.ChangeSP(min(before, o.SP))
			}
		}
	}

	for _, m := range [...]struct{ stat, v int }{
		{StatAttack, o.Attack},
		{StatDefense, o.Defense},
		{StatSpirit, o.Spirit},
		{StatAgility, o.Agility},
	} {
		stat, v := m.stat, m.v
		if v == Unset {
			continue
		}
		if o.Healing {
			t.ChangeStatModifier(stat, v)
		} else {
			t.ChangeStatModifier(stat, -v)
			if o.Absorb {
				b.source.ChangeStatModifier(stat, v)
			}
		}
	}

	if o.Switch != Unset {
		b.ctx.Switches[o.Switch] = true
	}

	for _, st := range o.Conditions {
		if o.Healing {
			t.RemoveState(st.ID)
		} else {
			t.AddState(st.ID)
		}
	}
	for _, st := range o.Cures {
		t.RemoveState(st.ID)
	}
}

// attributeMultiplier averages the target's rates for the selected
// attributes. Returns 0 when none is selected; callers only use it when the
// set has a selection.
func (b *base) attributeMultiplier(set []bool) float64 {
	t := b.Target()
	sum, n := 0, 0
	for i, on := range set {
		if !on {
			continue
		}
		attr := b.ctx.Data.AttributeByID(i + 1)
		if attr == nil {
			continue
		}
		sum += attr.RankRate(t.AttributeRank(attr.ID))
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n*100)
}

func anySet(set []bool) bool {
	for _, on := range set {
		if on {
			return true
		}
	}
	return false
}

func (b *base) isAllySource() bool { return b.source.Faction() == FactionAlly }
