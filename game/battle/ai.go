package battle

import (
	"fmt"

	"github.com/kasuganosora/rpg2kbattle/resource"
	"go.uber.org/zap"
)

// ChooseEnemyAction picks one of the enemy's database actions. Actions whose
// condition fails are dropped, then one is drawn with probability
// proportional to its rating. Returns nil when nothing qualifies.
func ChooseEnemyAction(ctx *Context, enemy *EnemyBattler) *resource.EnemyAction {
	valid := filterValidActions(ctx, enemy)
	total := 0
	for _, a := range valid {
		total += a.Rating
	}
	if total == 0 {
		return nil
	}
	which := ctx.RNG.Intn(total)
	for _, a := range valid {
		which -= a.Rating
		if which < 0 {
			return a
		}
	}
	return valid[len(valid)-1]
}

func filterValidActions(ctx *Context, enemy *EnemyBattler) []*resource.EnemyAction {
	var valid []*resource.EnemyAction
	for i := range enemy.Enemy().Actions {
		a := &enemy.Enemy().Actions[i]
		if a.Rating <= 0 {
			continue
		}
		if a.Kind == resource.EnemyActionSkill {
			sk := ctx.Data.SkillByID(a.SkillID)
			if sk == nil || sk.SPCost > enemy.SP() {
				continue
			}
		}
		if checkCondition(ctx, enemy, a) {
			valid = append(valid, a)
		}
	}
	return valid
}

// checkCondition evaluates an enemy action condition. Range conditions are
// inclusive on both ends.
func checkCondition(ctx *Context, enemy *EnemyBattler, a *resource.EnemyAction) bool {
	p1, p2 := a.ConditionParam1, a.ConditionParam2
	inRange := func(v int) bool { return v >= p1 && v <= p2 }
	switch a.ConditionType {
	case resource.ConditionAlways:
		return true
	case resource.ConditionSwitch:
		return ctx.Switches[a.SwitchID]
	case resource.ConditionTurn:
		// turn p1 + p2 * X
		if p2 == 0 {
			return ctx.Turn == p1
		}
		return ctx.Turn >= p1 && (ctx.Turn-p1)%p2 == 0
	case resource.ConditionActors:
		return inRange(len(ctx.Enemies.ActiveBattlers()))
	case resource.ConditionHP:
		return inRange(enemy.HP() * 100 / enemy.MaxHP())
	case resource.ConditionSP:
		if enemy.MaxSP() == 0 {
			return inRange(0)
		}
		return inRange(enemy.SP() * 100 / enemy.MaxSP())
	case resource.ConditionPartyLevel:
		return inRange(ctx.Allies.AverageLevel())
	case resource.ConditionPartyFatigue:
		return inRange(ctx.Allies.Fatigue())
	}
	return true
}

// CreateEnemyAction builds the algorithm for a chosen enemy action. Targets
// are drawn at random among the opposing party's active members.
func CreateEnemyAction(ctx *Context, enemy *EnemyBattler, a *resource.EnemyAction) (Algorithm, error) {
	randomFoe := func() (Battler, error) {
		t := ctx.Allies.RandomActiveBattler(ctx.RNG)
		if t == nil {
			return nil, ErrNoTarget
		}
		return t, nil
	}

	switch a.Kind {
	case resource.EnemyActionBasic:
		switch a.Basic {
		case resource.BasicAttack:
			t, err := randomFoe()
			if err != nil {
				return nil, err
			}
			return NewNormal(ctx, enemy, t), nil
		case resource.BasicDualAttack:
			t, err := randomFoe()
			if err != nil {
				return nil, err
			}
			return NewNormalDual(ctx, enemy, t), nil
		case resource.BasicDefense:
			return NewDefend(ctx, enemy), nil
		case resource.BasicObserve:
			return NewObserve(ctx, enemy), nil
		case resource.BasicCharge:
			return NewCharge(ctx, enemy), nil
		case resource.BasicAutodestruction:
			return NewSelfDestruct(ctx, enemy, ctx.Allies), nil
		case resource.BasicEscape:
			return NewEscape(ctx, enemy), nil
		case resource.BasicNothing:
			return NewNoMove(ctx, enemy), nil
		}
		return nil, fmt.Errorf("%w: basic enemy action %d", ErrUnsupportedRule, a.Basic)

	case resource.EnemyActionSkill:
		sk := ctx.Data.SkillByID(a.SkillID)
		if sk == nil {
			return nil, fmt.Errorf("enemy %d skill %d: %w", enemy.ID(), a.SkillID, resource.ErrNotFound)
		}
		switch sk.Scope {
		case resource.ScopeEnemy:
			t, err := randomFoe()
			if err != nil {
				return nil, err
			}
			return NewSkill(ctx, enemy, t, sk, nil), nil
		case resource.ScopeAlly:
			t := ctx.Enemies.RandomActiveBattler(ctx.RNG)
			if t == nil {
				return nil, ErrNoTarget
			}
			return NewSkill(ctx, enemy, t, sk, nil), nil
		case resource.ScopeEnemies:
			return NewSkillOnParty(ctx, enemy, ctx.Allies, sk, nil), nil
		case resource.ScopeParty:
			return NewSkillOnParty(ctx, enemy, ctx.Enemies, sk, nil), nil
		default:
			return NewSkillOnSelf(ctx, enemy, sk, nil), nil
		}

	case resource.EnemyActionTransformation:
		return NewTransform(ctx, enemy, a.EnemyID), nil
	}
	return nil, fmt.Errorf("%w: enemy action kind %d", ErrUnsupportedRule, a.Kind)
}

// restrictedAction is the forced attack of a battler whose state makes it
// attack at random: its foes, or its own side.
func restrictedAction(ctx *Context, b Battler) Algorithm {
	var target Battler
	switch b.SignificantRestriction() {
	case resource.RestrictionAttackEnemy:
		target = ctx.OpponentsOf(b.Faction()).RandomActiveBattler(ctx.RNG)
	case resource.RestrictionAttackAlly:
		target = ctx.PartyOf(b.Faction()).RandomActiveBattler(ctx.RNG)
	default:
		return nil
	}
	if target == nil {
		return nil
	}
	return NewNormal(ctx, b, target)
}

// EnemyActions declares the round's action of every active enemy.
func EnemyActions(ctx *Context) []Algorithm {
	var out []Algorithm
	for _, m := range ctx.Enemies.ActiveBattlers() {
		enemy, ok := m.(*EnemyBattler)
		if !ok {
			continue
		}
		if !enemy.CanAct() {
			out = append(out, NewNoMove(ctx, enemy))
			continue
		}
		if alg := restrictedAction(ctx, enemy); alg != nil {
			out = append(out, alg)
			continue
		}
		a := ChooseEnemyAction(ctx, enemy)
		if a == nil {
			continue
		}
		alg, err := CreateEnemyAction(ctx, enemy, a)
		if err != nil {
			ctx.Logger.Warn("enemy action skipped",
				zap.Int("enemy_id", enemy.ID()), zap.Error(err))
			continue
		}
		out = append(out, alg)
	}
	return out
}
