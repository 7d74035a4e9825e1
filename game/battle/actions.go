package battle

import (
	"fmt"

	"github.com/kasuganosora/rpg2kbattle/resource"
)

// The algorithms below act on their source only.

// Defend halves damage taken until the next round.
type Defend struct{ base }

func NewDefend(ctx *Context, source Battler) *Defend {
	return &Defend{base: newBase(ctx, KindDefend, source)}
}

func (d *Defend) Execute() (bool, error) {
	d.out.reset()
	d.out.Success = true
	return true, nil
}

func (d *Defend) Apply() { d.source.SetDefending(true) }

func (d *Defend) StartMessage() string {
	return rpg2kOnly(d.ctx, d.source.Name()+d.ctx.Terms().Defending)
}

func (d *Defend) SourceAnimationState() SpriteState { return SpriteDefending }

// Observe only shows its start message.
type Observe struct{ base }

func NewObserve(ctx *Context, source Battler) *Observe {
	return &Observe{base: newBase(ctx, KindObserve, source)}
}

func (ob *Observe) Execute() (bool, error) {
	ob.out.reset()
	ob.out.Success = true
	return true, nil
}

func (ob *Observe) Apply() {}

func (ob *Observe) StartMessage() string {
	return rpg2kOnly(ob.ctx, ob.source.Name()+ob.ctx.Terms().Observing)
}

// Charge doubles the damage of the source's next normal attack.
type Charge struct{ base }

func NewCharge(ctx *Context, source Battler) *Charge {
	return &Charge{base: newBase(ctx, KindCharge, source)}
}

func (c *Charge) Execute() (bool, error) {
	c.out.reset()
	c.out.Success = true
	return true, nil
}

func (c *Charge) Apply() { c.source.SetCharged(true) }

func (c *Charge) StartMessage() string {
	return rpg2kOnly(c.ctx, c.source.Name()+c.ctx.Terms().Focus)
}

// SelfDestruct hits every active member of a party and removes the source
// from battle. It always hits, never crits and ignores charge.
type SelfDestruct struct{ base }

func NewSelfDestruct(ctx *Context, source Battler, party *Party) *SelfDestruct {
	return &SelfDestruct{base: newPartyBase(ctx, KindSelfDestruct, source, party)}
}

func (sd *SelfDestruct) Execute() (bool, error) {
	sd.out.reset()
	tgt := sd.Target()
	if tgt == nil {
		return false, ErrNoTarget
	}
	effect := max(sd.source.Atk()-tgt.Def()/2, 0)
	effect = max(effect+jitter(sd.ctx.RNG, effect), 0)
	if tgt.IsDefending() {
		effect /= 2
	}
	sd.out.HP = effect
	sd.out.Success = true
	if tgt.HP()-effect <= 0 {
		sd.out.Killed = true
		if death := sd.ctx.state(resource.DeathStateID); death != nil {
			sd.out.Conditions = append(sd.out.Conditions, death)
		}
	}
	return true, nil
}

func (sd *SelfDestruct) Apply() {
	sd.apply()
	if e, ok := sd.source.(*EnemyBattler); ok {
		e.SetHidden(true)
	}
}

func (sd *SelfDestruct) StartMessage() string {
	return rpg2kOnly(sd.ctx, sd.source.Name()+sd.ctx.Terms().Autodestruction)
}

func (sd *SelfDestruct) SourceAnimationState() SpriteState { return SpriteDead }

func (sd *SelfDestruct) StartSound() *resource.Sound {
	return sound(sd.ctx.sounds().EnemyKill)
}

// Escape flees the battle. Enemies always get away; the party's odds grow
// with every failed attempt.
type Escape struct{ base }

func NewEscape(ctx *Context, source Battler) *Escape {
	return &Escape{base: newBase(ctx, KindEscape, source)}
}

// EscapeChance is the party's escape chance in percent: 150% of the ratio of
// average agilities, raised by 10% per earlier failure. The percentage is
// truncated toward zero, so 82.5 becomes 82.
func EscapeChance(allyAgi, enemyAgi, failures int) int {
	if enemyAgi <= 0 {
		return 100
	}
	toHit := 1.5 * float64(allyAgi) / float64(enemyAgi)
	for i := 0; i < failures; i++ {
		toHit += toHit * 0.1
	}
	return int(toHit * 100)
}

func (e *Escape) Execute() (bool, error) {
	e.out.reset()
	e.out.Success = true
	if e.isAllySource() {
		chance := EscapeChance(e.ctx.Allies.AverageAgility(), e.ctx.Enemies.AverageAgility(), e.ctx.EscapeFailCount)
		e.out.Success = e.ctx.RNG.Intn(100) < chance
	}
	return e.out.Success, nil
}

func (e *Escape) Apply() {
	if !e.out.Success {
		e.ctx.EscapeFailCount++
	}
	if en, ok := e.source.(*EnemyBattler); ok {
		en.SetHidden(true)
	}
}

func (e *Escape) StartMessage() string {
	if e.ctx.Engine != EngineRPG2k || e.isAllySource() {
		return ""
	}
	return e.source.Name() + e.ctx.Terms().EnemyEscape
}

func (e *Escape) ResultMessages(out []string) []string {
	if !e.isAllySource() {
		return out
	}
	if e.out.Success {
		return append(out, e.ctx.Terms().EscapeSuccess)
	}
	return append(out, e.ctx.Terms().EscapeFailure)
}

func (e *Escape) SourceAnimationState() SpriteState {
	if e.isAllySource() {
		return SpriteIdle
	}
	return SpriteDead
}

func (e *Escape) StartSound() *resource.Sound {
	if e.isAllySource() {
		return nil
	}
	return sound(e.ctx.sounds().Escape)
}

// Transform turns an enemy into another enemy.
type Transform struct {
	base
	enemyID int
}

func NewTransform(ctx *Context, source Battler, enemyID int) *Transform {
	return &Transform{base: newBase(ctx, KindTransform, source), enemyID: enemyID}
}

func (tr *Transform) Execute() (bool, error) {
	tr.out.reset()
	if _, ok := tr.source.(*EnemyBattler); !ok {
		return false, fmt.Errorf("%w: only enemies transform", ErrUnsupportedRule)
	}
	if tr.ctx.Data.EnemyByID(tr.enemyID) == nil {
		return false, fmt.Errorf("transform into enemy %d: %w", tr.enemyID, resource.ErrNotFound)
	}
	tr.out.Success = true
	return true, nil
}

func (tr *Transform) Apply() {
	if e, ok := tr.source.(*EnemyBattler); ok {
		if en := tr.ctx.Data.EnemyByID(tr.enemyID); en != nil {
			e.Transform(en)
		}
	}
}

func (tr *Transform) StartMessage() string {
	return rpg2kOnly(tr.ctx, tr.source.Name()+tr.ctx.Terms().EnemyTransform)
}

// NoMove is queued for battlers whose states keep them from acting.
type NoMove struct{ base }

func NewNoMove(ctx *Context, source Battler) *NoMove {
	return &NoMove{base: newBase(ctx, KindNoMove, source)}
}

func (nm *NoMove) Execute() (bool, error) {
	nm.out.reset()
	nm.out.Success = true
	return true, nil
}

func (nm *NoMove) Apply() {}

// StartMessage reports the first state that holds the source in place.
func (nm *NoMove) StartMessage() string {
	for _, id := range nm.source.StateIDs() {
		st := nm.ctx.state(id)
		if st == nil || st.Restriction != resource.RestrictionDoNothing {
			continue
		}
		if st.MessageAffected == "" {
			return ""
		}
		return nm.source.Name() + st.MessageAffected
	}
	return ""
}

func rpg2kOnly(ctx *Context, msg string) string {
	if ctx.Engine != EngineRPG2k {
		return ""
	}
	return msg
}
