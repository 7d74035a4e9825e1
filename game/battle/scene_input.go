package battle

import (
	"github.com/kasuganosora/rpg2kbattle/resource"
)

func (s *Scene) processInput() {
	if s.input == nil {
		return
	}
	if s.input.Confirm() {
		switch s.state {
		case StateSelectOption:
			s.optionSelected()
		case StateSelectActor:
			s.selectNextActor()
		case StateSelectCommand:
			s.commandSelected()
		case StateSelectEnemyTarget:
			s.enemySelected()
		case StateSelectAllyTarget:
			s.allySelected()
		case StateSelectItem:
			s.itemSelected()
		case StateSelectSkill:
			s.skillSelected()
		}
		return
	}
	if s.input.Cancel() {
		switch s.state {
		case StateSelectOption, StateSelectActor, StateSelectCommand,
			StateSelectEnemyTarget, StateSelectAllyTarget, StateSelectItem, StateSelectSkill:
			s.playSystem(s.ctx.sounds().Cancel)
		default:
			return
		}
		switch s.state {
		case StateSelectCommand:
			s.actorIndex--
			s.selectPreviousActor()
		case StateSelectEnemyTarget, StateSelectAllyTarget, StateSelectItem, StateSelectSkill:
			s.setState(StateSelectCommand)
		}
	}
}

func (s *Scene) playSystem(se resource.Sound) {
	if p := sound(se); p != nil {
		s.sink.PlaySound(*p)
	}
}

func (s *Scene) optionSelected() {
	switch s.cursors[StateSelectOption] {
	case OptionBattle:
		s.playSystem(s.ctx.sounds().Decision)
		s.autoBattle = false
		s.actorIndex = 0
		s.setState(StateSelectActor)
	case OptionAutoBattle:
		s.playSystem(s.ctx.sounds().Decision)
		s.autoBattle = true
		s.actorIndex = 0
		s.setState(StateAutoBattle)
	case OptionEscape:
		if !s.ctx.EscapeAllowed {
			s.playSystem(s.ctx.sounds().Buzzer)
			return
		}
		s.playSystem(s.ctx.sounds().Decision)
		s.setState(StateEscape)
	}
}

func (s *Scene) commandSelected() {
	s.playSystem(s.ctx.sounds().Decision)
	switch s.cursors[StateSelectCommand] {
	case CommandAttack:
		s.setState(StateSelectEnemyTarget)
	case CommandSkill:
		s.setState(StateSelectSkill)
	case CommandDefend:
		s.queue.Push(NewDefend(s.ctx, s.activeActor))
		s.selectNextActor()
	case CommandItem:
		s.setState(StateSelectItem)
	}
}

func (s *Scene) enemySelected() {
	candidates := s.ctx.Enemies.ActiveBattlers()
	if len(candidates) == 0 {
		return
	}
	target := candidates[clamp(s.cursors[StateSelectEnemyTarget], 0, len(candidates)-1)]
	s.playSystem(s.ctx.sounds().Decision)

	switch s.previous {
	case StateSelectCommand:
		s.queue.Push(NewNormal(s.ctx, s.activeActor, target))
	case StateSelectSkill:
		s.queue.Push(NewSkill(s.ctx, s.activeActor, target, s.pendingSkill, nil))
	case StateSelectItem:
		s.queue.Push(NewSkill(s.ctx, s.activeActor, target, s.pendingSkill, s.pendingItem))
	}
	s.selectNextActor()
}

func (s *Scene) allySelected() {
	target := s.ctx.Allies.Member(clamp(s.cursors[StateSelectAllyTarget], 0, s.ctx.Allies.Len()-1))
	s.playSystem(s.ctx.sounds().Decision)

	switch s.previous {
	case StateSelectSkill:
		s.queue.Push(NewSkill(s.ctx, s.activeActor, target, s.pendingSkill, nil))
	case StateSelectItem:
		if s.pendingItem.Type == resource.ItemSpecial {
			s.queue.Push(NewSkill(s.ctx, s.activeActor, target, s.pendingSkill, s.pendingItem))
		} else {
			s.queue.Push(NewItem(s.ctx, s.activeActor, target, s.pendingItem))
		}
	}
	s.selectNextActor()
}

func (s *Scene) itemSelected() {
	items := s.ItemChoices()
	if len(items) == 0 {
		s.playSystem(s.ctx.sounds().Buzzer)
		return
	}
	item := items[clamp(s.cursors[StateSelectItem], 0, len(items)-1)]
	s.pendingItem = item
	s.pendingSkill = nil

	switch item.Type {
	case resource.ItemMedicine:
		s.playSystem(s.ctx.sounds().Decision)
		if item.EntireParty {
			s.queue.Push(NewItemOnParty(s.ctx, s.activeActor, s.ctx.Allies, item))
			s.selectNextActor()
			return
		}
		s.setState(StateSelectAllyTarget)
	case resource.ItemSwitch:
		s.playSystem(s.ctx.sounds().Decision)
		s.queue.Push(NewItemOnSelf(s.ctx, s.activeActor, item))
		s.selectNextActor()
	case resource.ItemSpecial:
		sk := s.ctx.Data.SkillByID(item.SkillID)
		if sk == nil {
			s.playSystem(s.ctx.sounds().Buzzer)
			return
		}
		s.playSystem(s.ctx.sounds().Decision)
		s.pendingSkill = sk
		s.beginSkill(sk, item)
	default:
		s.playSystem(s.ctx.sounds().Buzzer)
	}
}

func (s *Scene) skillSelected() {
	skills := s.SkillChoices()
	if len(skills) == 0 {
		s.playSystem(s.ctx.sounds().Buzzer)
		return
	}
	sk := skills[clamp(s.cursors[StateSelectSkill], 0, len(skills)-1)]
	if sk.SPCost > s.activeActor.SP() || !usableInBattle(sk) {
		s.playSystem(s.ctx.sounds().Buzzer)
		return
	}
	s.playSystem(s.ctx.sounds().Decision)
	s.pendingSkill = sk
	s.pendingItem = nil
	s.beginSkill(sk, nil)
}

func usableInBattle(sk *resource.Skill) bool {
	switch sk.Type {
	case resource.SkillNormal, resource.SkillSubskill:
		return true
	case resource.SkillSwitch:
		return sk.OccasionBattle
	}
	return false
}

// beginSkill queues a skill whose scope needs no target choice, or opens the
// matching target menu.
func (s *Scene) beginSkill(sk *resource.Skill, item *resource.Item) {
	switch sk.Scope {
	case resource.ScopeEnemy:
		s.setState(StateSelectEnemyTarget)
	case resource.ScopeAlly:
		s.setState(StateSelectAllyTarget)
	case resource.ScopeEnemies:
		s.queue.Push(NewSkillOnParty(s.ctx, s.activeActor, s.ctx.Enemies, sk, item))
		s.selectNextActor()
	case resource.ScopeParty:
		s.queue.Push(NewSkillOnParty(s.ctx, s.activeActor, s.ctx.Allies, sk, item))
		s.selectNextActor()
	default:
		s.queue.Push(NewSkillOnSelf(s.ctx, s.activeActor, sk, item))
		s.selectNextActor()
	}
}

// ---- Actor selection ----

// selectNextActor walks the party from actorIndex. Actors that cannot be
// commanded get their action queued here; the first one that can opens the
// command menu. Past the last actor the round starts.
func (s *Scene) selectNextActor() {
	members := s.ctx.Allies.Members()
	if s.actorIndex >= len(members) {
		s.startRound()
		return
	}
	actor, _ := members[s.actorIndex].(*ActorBattler)
	s.actorIndex++
	if actor == nil || actor.IsDead() {
		s.selectNextActor()
		return
	}
	s.activeActor = actor

	if !actor.CanAct() {
		s.queue.Push(NewNoMove(s.ctx, actor))
		s.selectNextActor()
		return
	}
	if alg := restrictedAction(s.ctx, actor); alg != nil {
		s.queue.Push(alg)
		s.selectNextActor()
		return
	}
	if s.autoBattle || actor.AutoBattle() {
		if target := s.ctx.Enemies.RandomActiveBattler(s.ctx.RNG); target != nil {
			s.queue.Push(NewNormal(s.ctx, actor, target))
		}
		s.selectNextActor()
		return
	}
	s.setState(StateSelectCommand)
}

// selectPreviousActor steps back to the previous commandable actor and
// withdraws its queued action. From the first actor it returns to the party
// menu with an empty queue.
func (s *Scene) selectPreviousActor() {
	members := s.ctx.Allies.Members()
	if s.actorIndex <= 0 || Battler(s.activeActor) == members[0] {
		s.actorIndex = 0
		s.queue.Clear()
		s.setState(StateSelectOption)
		return
	}
	s.actorIndex--
	prev, _ := members[s.actorIndex].(*ActorBattler)
	s.queue.RemoveLast(prev)
	s.activeActor = prev
	if prev == nil || !commandable(prev) {
		s.selectPreviousActor()
		return
	}
	s.setState(StateSelectActor)
}

func commandable(a *ActorBattler) bool {
	return !a.IsDead() && a.CanAct() && !a.AutoBattle() &&
		a.SignificantRestriction() == resource.RestrictionNormal
}
