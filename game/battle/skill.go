package battle

import (
	"fmt"

	"github.com/kasuganosora/rpg2kbattle/resource"
)

// Skill casts a skill, either learned or invoked through a special item.
type Skill struct {
	base
	skill *resource.Skill
	item  *resource.Item // non-nil when the skill comes from an item
}

func NewSkill(ctx *Context, source, target Battler, skill *resource.Skill, item *resource.Item) *Skill {
	return &Skill{base: newTargetBase(ctx, KindSkill, source, target), skill: skill, item: item}
}

func NewSkillOnParty(ctx *Context, source Battler, party *Party, skill *resource.Skill, item *resource.Item) *Skill {
	return &Skill{base: newPartyBase(ctx, KindSkill, source, party), skill: skill, item: item}
}

// NewSkillOnSelf casts a self-scoped skill; the source is its own target.
func NewSkillOnSelf(ctx *Context, source Battler, skill *resource.Skill, item *resource.Item) *Skill {
	return NewSkill(ctx, source, source, skill, item)
}

func (s *Skill) SkillData() *resource.Skill { return s.skill }
func (s *Skill) Item() *resource.Item       { return s.item }

func (s *Skill) healing() bool {
	switch s.skill.Scope {
	case resource.ScopeAlly, resource.ScopeParty, resource.ScopeSelf:
		return true
	}
	return false
}

// IsTargetValid lets allied healing skills target the dead only when they
// cure death.
func (s *Skill) IsTargetValid() bool {
	if s.noTarget {
		return true
	}
	t := s.Target()
	if t == nil {
		return false
	}
	if s.isAllySource() && (s.skill.Scope == resource.ScopeAlly || s.skill.Scope == resource.ScopeParty) {
		if t.IsDead() {
			return len(s.skill.StateEffects) > 0 && s.skill.StateEffects[0]
		}
		return true
	}
	return !t.IsDead()
}

func (s *Skill) Execute() (bool, error) {
	s.out.reset()
	sk := s.skill
	if s.item != nil && s.item.SkillID != sk.ID {
		return false, fmt.Errorf("%w: item %d invokes skill %d, not %d", ErrUnsupportedRule, s.item.ID, s.item.SkillID, sk.ID)
	}
	src, tgt := s.source, s.Target()
	if tgt == nil {
		return false, ErrNoTarget
	}
	rng := s.ctx.RNG
	o := &s.out
	o.Healing = s.healing()

	switch sk.Type {
	case resource.SkillNormal, resource.SkillSubskill:
		if o.Healing {
			o.Success = true
			s.affect(sk.Power)
		} else if rng.Intn(100) < sk.Hit {
			o.Success = true
			effect := sk.Power + src.Atk()*sk.PhysicalRate/20 + src.Spi()*sk.MagicalRate/40
			if !sk.IgnoreDefense {
				effect -= tgt.Def()*sk.PhysicalRate/40 + tgt.Spi()*sk.MagicalRate/80
			}
			if anySet(sk.AttributeEffects) {
				effect = int(float64(effect) * s.attributeMultiplier(sk.AttributeEffects))
			}
			effect = max(effect, 0)
			effect = max(effect+variance(rng, effect, sk.Variance), 0)

			if sk.AffectHP {
				o.HP = effect
				if tgt.IsDefending() {
					o.HP /= 2
				}
				if tgt.HP()-o.HP <= 0 {
					o.Killed = true
					if death := s.ctx.state(resource.DeathStateID); death != nil {
						o.Conditions = append(o.Conditions, death)
					}
				}
			}
			if sk.AffectSP {
				o.SP = min(effect, tgt.SP())
			}
			s.affectStats(effect)
		}

		for i, on := range sk.StateEffects {
			if !on {
				continue
			}
			if !o.Healing && rng.Intn(100) >= sk.Hit {
				continue
			}
			o.Success = true
			st := s.ctx.state(i + 1)
			if st == nil {
				continue
			}
			if o.Healing || rng.Intn(100) < tgt.StateProbability(st.ID) {
				o.Conditions = append(o.Conditions, st)
			}
		}
	case resource.SkillSwitch:
		o.Switch = sk.SwitchID
		o.Success = true
	default:
		return false, fmt.Errorf("%w: skill %d has type %d", ErrUnsupportedRule, sk.ID, sk.Type)
	}

	o.Absorb = sk.AbsorbDamage
	if o.Absorb && o.SP != Unset && tgt.SP() == 0 {
		o.Success = false
	}
	return o.Success, nil
}

func (s *Skill) affect(v int) {
	if s.skill.AffectHP {
		s.out.HP = v
	}
	if s.skill.AffectSP {
		s.out.SP = v
	}
	s.affectStats(v)
}

func (s *Skill) affectStats(v int) {
	if s.skill.AffectAttack {
		s.out.Attack = v
	}
	if s.skill.AffectDefense {
		s.out.Defense = v
	}
	if s.skill.AffectSpirit {
		s.out.Spirit = v
	}
	if s.skill.AffectAgility {
		s.out.Agility = v
	}
}

// Apply commits the outcome and pays for the cast once per action: an item
// use when invoked through an item, SP otherwise.
func (s *Skill) Apply() {
	s.apply()
	if !s.firstAttack {
		return
	}
	if s.item != nil {
		s.ctx.PartyOf(s.source.Faction()).ConsumeItemUse(s.item)
		return
	}
	s.source.ChangeSP(-s.skill.SPCost)
}

func (s *Skill) StartMessage() string {
	if s.ctx.Engine != EngineRPG2k {
		return s.source.Name() + ": " + s.skill.Name
	}
	if s.item != nil && s.item.UsingMessage == 0 {
		return itemStartMessage(s.ctx, s.source, s.item)
	}
	msg := s.source.Name() + s.skill.UsingMessage1
	if s.skill.UsingMessage2 != "" {
		msg += "\n" + s.skill.UsingMessage2
	}
	return msg
}

func (s *Skill) ResultMessages(out []string) []string {
	t := s.Target()
	if t == nil {
		return out
	}
	if !s.out.Success {
		terms := s.ctx.Terms()
		var msg string
		switch s.skill.FailureMessage {
		case 0:
			msg = terms.SkillFailureA
		case 1:
			msg = terms.SkillFailureB
		case 2:
			msg = terms.SkillFailureC
		default:
			msg = terms.Dodge
		}
		return append(out, t.Name()+msg)
	}
	return s.base.ResultMessages(out)
}

func (s *Skill) Animation() *resource.Animation {
	return s.ctx.Data.AnimationByID(s.skill.AnimationID)
}

func (s *Skill) SourceAnimationState() SpriteState { return SpriteSkillUse }

func (s *Skill) StartSound() *resource.Sound {
	if s.skill.Type == resource.SkillSwitch {
		return sound(s.skill.SoundEffect)
	}
	if s.isAllySource() {
		return nil
	}
	return sound(s.ctx.sounds().EnemyAttacks)
}
