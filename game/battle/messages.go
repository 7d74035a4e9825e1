package battle

import (
	"strconv"

	"github.com/kasuganosora/rpg2kbattle/resource"
)

// ResultMessages appends one line per effect of the outcome on the current
// target. Must be called after Execute and before Apply: condition lines
// depend on the states the target holds before the outcome lands.
func (b *base) ResultMessages(out []string) []string {
	t := b.Target()
	if t == nil {
		return out
	}
	terms := b.ctx.Terms()
	o := &b.out
	name := t.Name()
	ally := t.Faction() == FactionAlly

	if !o.Success {
		out = append(out, name+terms.Dodge)
	}

	if o.HP != Unset {
		switch {
		case o.Healing:
			if !t.IsDead() {
				out = append(out, name+" "+terms.HealthPoints+" "+strconv.Itoa(o.HP)+terms.HPRecovery)
			}
		default:
			if o.Critical {
				out = append(out, pick(ally, terms.ActorCritical, terms.EnemyCritical))
			}
			switch {
			case o.HP == 0:
				out = append(out, name+pick(ally, terms.ActorUndamaged, terms.EnemyUndamaged))
			case o.Absorb:
				out = append(out, name+" "+terms.HealthPoints+" "+strconv.Itoa(o.HP)+
					pick(ally, terms.ActorHPAbsorbed, terms.EnemyHPAbsorbed))
			default:
				out = append(out, name+" "+strconv.Itoa(o.HP)+pick(ally, terms.ActorDamaged, terms.EnemyDamaged))
			}
		}
	}

	if o.SP != Unset {
		sp := strconv.Itoa(o.SP)
		switch {
		case o.Healing:
			out = append(out, name+" "+terms.SpiritPoints+" "+sp+terms.HPRecovery)
		case o.Absorb:
			out = append(out, name+" "+terms.SpiritPoints+" "+sp+
				pick(ally, terms.ActorHPAbsorbed, terms.EnemyHPAbsorbed))
		case b.ctx.LegacySPDamageMessage:
			out = append(out, name+" "+terms.Attack+" "+sp)
		default:
			out = append(out, name+" "+terms.SpiritPoints+" "+sp+pick(ally, terms.ActorDamaged, terms.EnemyDamaged))
		}
	}

	for _, m := range [...]struct {
		term string
		v    int
	}{
		{terms.Attack, o.Attack},
		{terms.Defense, o.Defense},
		{terms.Spirit, o.Spirit},
		{terms.Agility, o.Agility},
	} {
		if m.v != Unset {
			out = append(out, name+" "+m.term+" "+strconv.Itoa(m.v))
		}
	}

	for _, st := range o.Conditions {
		if t.HasState(st.ID) {
			if o.Healing {
				out = append(out, name+st.MessageRecovery)
			} else if st.MessageAlready != "" {
				out = append(out, name+st.MessageAlready)
			}
			continue
		}
		if o.Healing {
			continue
		}
		if st.ID == resource.DeathStateID {
			// A lethal hit reports death through DeathMessage.
			if !o.Killed {
				out = append(out, name+pick(ally, st.MessageActor, st.MessageEnemy))
			}
			return out
		}
		out = append(out, name+pick(ally, st.MessageActor, st.MessageEnemy))
	}

	for _, st := range o.Cures {
		if t.HasState(st.ID) {
			out = append(out, name+st.MessageRecovery)
		}
	}
	return out
}

// DeathMessage is the line shown when the attack itself killed the target.
func (b *base) DeathMessage() string {
	t := b.Target()
	if !b.out.Killed || t == nil {
		return ""
	}
	st := b.ctx.state(resource.DeathStateID)
	if st == nil {
		return ""
	}
	return t.Name() + pick(t.Faction() == FactionAlly, st.MessageActor, st.MessageEnemy)
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
