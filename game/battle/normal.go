package battle

import (
	"github.com/kasuganosora/rpg2kbattle/resource"
)

// Normal is a plain weapon or unarmed attack.
type Normal struct {
	base
}

// NewNormal attacks a single target.
func NewNormal(ctx *Context, source, target Battler) *Normal {
	return &Normal{base: newTargetBase(ctx, KindNormal, source, target)}
}

// NewNormalOnParty attacks every active member of a party in turn.
func NewNormalOnParty(ctx *Context, source Battler, party *Party) *Normal {
	return &Normal{base: newPartyBase(ctx, KindNormal, source, party)}
}

func (n *Normal) weapon() *resource.Item {
	if a, ok := n.source.(*ActorBattler); ok {
		return a.Weapon()
	}
	return nil
}

// HitRate returns the hit chance in percent, adjusted by the agility
// ratio of target to source unless the weapon ignores evasion.
func HitRate(hit, sourceAgi, targetAgi int, ignoreEvasion bool) int {
	if ignoreEvasion {
		return hit
	}
	ratio := float64(targetAgi) / float64(max(sourceAgi, 1))
	return int(100 - float64(100-hit)*(1+(ratio-1)/2))
}

func (n *Normal) Execute() (bool, error) {
	n.out.reset()
	src, tgt := n.source, n.Target()
	if tgt == nil {
		return false, ErrNoTarget
	}
	rng := n.ctx.RNG

	hit := src.HitChance()
	crit := src.CriticalHitChance()
	multiplier := 1.0
	weapon := n.weapon()
	if weapon != nil {
		crit += weapon.CriticalHit
		if anySet(weapon.AttributeSet) {
			multiplier = n.attributeMultiplier(weapon.AttributeSet)
		}
	}
	toHit := HitRate(hit, src.Agi(), tgt.Agi(), weapon != nil && weapon.IgnoreEvasion)

	if rng.Intn(100) >= toHit {
		return false, nil
	}

	if !src.IsCharged() && rng.Intn(100) < crit {
		n.out.Critical = true
	}

	effect := max(src.Atk()/2-tgt.Def()/4, 0)
	effect += jitter(rng, effect)
	effect = max(int(float64(effect)*multiplier), 0)

	hp := effect
	if n.out.Critical {
		hp *= 3
	}
	if src.IsCharged() {
		hp *= 2
	}
	if tgt.IsDefending() {
		hp /= 2
	}
	n.out.HP = hp
	n.out.Success = true

	if tgt.HP()-hp <= 0 {
		n.out.Killed = true
		if death := n.ctx.state(resource.DeathStateID); death != nil {
			n.out.Conditions = append(n.out.Conditions, death)
		}
		return true, nil
	}

	if weapon != nil {
		for i, on := range weapon.StateSet {
			if !on {
				continue
			}
			st := n.ctx.state(i + 1)
			if st == nil {
				continue
			}
			if rng.Intn(100) < weapon.StateChance*tgt.StateProbability(st.ID)/100 {
				if weapon.StateEffect {
					n.out.Cures = append(n.out.Cures, st)
				} else {
					n.out.Conditions = append(n.out.Conditions, st)
				}
			}
		}
	}
	return true, nil
}

// Apply commits the damage, spends the charge and, on the first target,
// the weapon's SP cost.
func (n *Normal) Apply() {
	n.apply()
	n.source.SetCharged(false)
	if w := n.weapon(); w != nil && n.firstAttack {
		n.source.ChangeSP(-w.SPCost)
	}
}

func (n *Normal) StartMessage() string {
	if n.ctx.Engine != EngineRPG2k {
		return ""
	}
	return n.source.Name() + n.ctx.Terms().Attacking
}

func (n *Normal) Animation() *resource.Animation {
	a, ok := n.source.(*ActorBattler)
	if !ok {
		return nil
	}
	if w := a.Weapon(); w != nil {
		return n.ctx.Data.AnimationByID(w.AnimationID)
	}
	return n.ctx.Data.AnimationByID(a.Actor().UnarmedAnimationID)
}

func (n *Normal) SourceAnimationState() SpriteState { return SpriteLeftHand }

func (n *Normal) StartSound() *resource.Sound {
	if n.isAllySource() {
		return nil
	}
	return sound(n.ctx.sounds().EnemyAttacks)
}

// NormalDual is the enemy double attack: two normal attacks on the same
// target. The presenter resolves the second one through TargetNext, so a
// charge only doubles the first hit.
type NormalDual struct {
	Normal
}

func NewNormalDual(ctx *Context, source, target Battler) *NormalDual {
	d := &NormalDual{Normal: Normal{base: newTargetBase(ctx, KindNormalDual, source, target)}}
	if target != nil {
		d.targets = append(d.targets, target)
	}
	return d
}
