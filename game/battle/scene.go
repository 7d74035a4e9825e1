package battle

import (
	"strconv"

	"github.com/kasuganosora/rpg2kbattle/resource"
	"go.uber.org/zap"
)

// SceneState is the state of the battle scene.
type SceneState int

const (
	StateStart SceneState = iota
	StateSelectOption
	StateSelectActor
	StateAutoBattle
	StateSelectCommand
	StateSelectEnemyTarget
	StateSelectAllyTarget
	StateSelectItem
	StateSelectSkill
	StateBattle
	StateVictory
	StateDefeat
	StateEscape
	numSceneStates
)

var sceneStateNames = [...]string{
	"start", "select_option", "select_actor", "auto_battle", "select_command",
	"select_enemy_target", "select_ally_target", "select_item", "select_skill",
	"battle", "victory", "defeat", "escape",
}

func (s SceneState) String() string {
	if int(s) < len(sceneStateNames) {
		return sceneStateNames[s]
	}
	return "unknown"
}

// Result is how a battle ended.
type Result int

const (
	ResultNone Result = iota
	ResultVictory
	ResultDefeat
	ResultEscape
	ResultAbort
)

func (r Result) String() string {
	switch r {
	case ResultVictory:
		return "victory"
	case ResultDefeat:
		return "defeat"
	case ResultEscape:
		return "escape"
	case ResultAbort:
		return "abort"
	}
	return "none"
}

// Options of the party menu.
const (
	OptionBattle = iota
	OptionAutoBattle
	OptionEscape
)

// Commands of the actor menu.
const (
	CommandAttack = iota
	CommandSkill
	CommandDefend
	CommandItem
)

const maxMessageLines = 4

// Timing holds the scene's tick counts.
type Timing struct {
	ActionWait          int
	EscapeWait          int
	TargetFlashInterval int
	EncounterShortWait  int
	EncounterLongWait   int
}

// DefaultTiming returns the classic 60 FPS timings.
func DefaultTiming() Timing {
	return Timing{
		ActionWait:          DefaultActionWait,
		EscapeWait:          60,
		TargetFlashInterval: 60,
		EncounterShortWait:  6,
		EncounterLongWait:   30,
	}
}

// SceneConfig configures a Scene.
type SceneConfig struct {
	Context *Context
	Sink    Sink
	Input   Input
	Timing  Timing // zero fields use DefaultTiming
}

// Scene drives a battle from the encounter message to its result. Update
// is called once per frame; menu cursors are moved with Select and
// confirmed through Input.
type Scene struct {
	ctx       *Context
	sink      Sink
	input     Input
	timing    Timing
	queue     *ActionQueue
	presenter *ActionPresenter

	state    SceneState
	previous SceneState
	cursors  [numSceneStates]int

	actorIndex  int
	activeActor *ActorBattler
	autoBattle  bool

	pendingSkill *resource.Skill
	pendingItem  *resource.Item

	encounterNext  int
	encounterSleep int
	flashCount     int

	escapeBegin   bool
	escapeSuccess bool
	escapeCounter int

	result         Result
	rewards        Rewards
	abortRequested bool
	fleeRequested  bool
}

// NewScene creates a scene in StateStart.
func NewScene(cfg SceneConfig) *Scene {
	t := cfg.Timing
	def := DefaultTiming()
	if t.ActionWait <= 0 {
		t.ActionWait = def.ActionWait
	}
	if t.EscapeWait <= 0 {
		t.EscapeWait = def.EscapeWait
	}
	if t.TargetFlashInterval <= 0 {
		t.TargetFlashInterval = def.TargetFlashInterval
	}
	if t.EncounterShortWait <= 0 {
		t.EncounterShortWait = def.EncounterShortWait
	}
	if t.EncounterLongWait <= 0 {
		t.EncounterLongWait = def.EncounterLongWait
	}
	return &Scene{
		ctx:         cfg.Context,
		sink:        cfg.Sink,
		input:       cfg.Input,
		timing:      t,
		queue:       NewActionQueue(),
		presenter:   NewActionPresenter(cfg.Context, cfg.Sink, t.ActionWait),
		escapeBegin: true,
	}
}

func (s *Scene) Context() *Context           { return s.ctx }
func (s *Scene) State() SceneState           { return s.state }
func (s *Scene) Result() Result              { return s.result }
func (s *Scene) Rewards() Rewards            { return s.rewards }
func (s *Scene) Queue() *ActionQueue         { return s.queue }
func (s *Scene) Presenter() *ActionPresenter { return s.presenter }
func (s *Scene) ActiveActor() *ActorBattler  { return s.activeActor }
func (s *Scene) AutoBattleSelected() bool    { return s.autoBattle }
func (s *Scene) Finished() bool              { return s.result != ResultNone }

// Cursor returns the menu cursor of the current state.
func (s *Scene) Cursor() int { return s.cursors[s.state] }

// Select moves the cursor of the current menu, clamped to its entries.
func (s *Scene) Select(i int) {
	n := s.menuLen()
	if n == 0 {
		return
	}
	s.cursors[s.state] = clamp(i, 0, n-1)
	if se := sound(s.ctx.sounds().Cursor); se != nil {
		s.sink.PlaySound(*se)
	}
}

func (s *Scene) menuLen() int {
	switch s.state {
	case StateSelectOption:
		return 3
	case StateSelectCommand:
		return 4
	case StateSelectEnemyTarget:
		return len(s.ctx.Enemies.ActiveBattlers())
	case StateSelectAllyTarget:
		return s.ctx.Allies.Len()
	case StateSelectSkill:
		return len(s.SkillChoices())
	case StateSelectItem:
		return len(s.ItemChoices())
	}
	return 0
}

// Abort ends the battle with ResultAbort on the next tick.
func (s *Scene) Abort() { s.abortRequested = true }

// Flee ends the battle with ResultEscape on the next result check.
func (s *Scene) Flee() { s.fleeRequested = true }

// SkillChoices lists the skills the active actor can pick in battle.
func (s *Scene) SkillChoices() []*resource.Skill {
	if s.activeActor == nil {
		return nil
	}
	var out []*resource.Skill
	for _, id := range s.activeActor.SkillIDs() {
		if sk := s.ctx.Data.SkillByID(id); sk != nil {
			out = append(out, sk)
		}
	}
	return out
}

// ItemChoices lists the held items usable in battle.
func (s *Scene) ItemChoices() []*resource.Item {
	var out []*resource.Item
	for _, item := range s.ctx.Data.Items {
		if item == nil || s.ctx.Allies.ItemCount(item.ID) == 0 {
			continue
		}
		switch item.Type {
		case resource.ItemMedicine, resource.ItemSpecial:
			out = append(out, item)
		case resource.ItemSwitch:
			if item.OccasionBattle {
				out = append(out, item)
			}
		}
	}
	return out
}

// TargetCandidates lists the battlers the target cursor can point at.
func (s *Scene) TargetCandidates() []Battler {
	switch s.state {
	case StateSelectEnemyTarget:
		return s.ctx.Enemies.ActiveBattlers()
	case StateSelectAllyTarget:
		return s.ctx.Allies.Members()
	}
	return nil
}

// Update advances the scene by one tick.
func (s *Scene) Update() {
	if s.Finished() || s.checkAbort() {
		return
	}
	s.processActions()
	if s.Finished() {
		return
	}
	s.processInput()
}

func (s *Scene) setState(next SceneState) {
	s.previous = s.state
	s.state = next

	switch next {
	case StateSelectEnemyTarget, StateSelectAllyTarget:
		s.flashCount = 0
		s.cursors[next] = 0
	case StateSelectSkill, StateSelectItem:
		s.cursors[next] = 0
	case StateSelectActor:
		s.selectNextActor()
	case StateAutoBattle:
		s.setState(StateSelectActor)
	}
}

func (s *Scene) processActions() {
	switch s.state {
	case StateStart:
		if s.displayEncounter() {
			s.setState(StateSelectOption)
			s.checkResultConditions()
		}
	case StateSelectOption:
		if !s.ctx.Allies.IsAnyControllable() {
			s.actorIndex = 0
			s.selectNextActor()
		}
	case StateSelectActor, StateAutoBattle:
		s.checkResultConditions()
	case StateBattle:
		s.battleStep()
	case StateSelectEnemyTarget:
		candidates := s.ctx.Enemies.ActiveBattlers()
		if len(candidates) == 0 {
			return
		}
		s.flashCount++
		if s.flashCount >= s.timing.TargetFlashInterval {
			target := candidates[clamp(s.cursors[s.state], 0, len(candidates)-1)]
			s.sink.FlashBattler(target, flashWhite, flashFrames)
			s.flashCount = 0
		}
	case StateEscape:
		if s.checkResultConditions() {
			return
		}
		s.escapeStep()
	}
}

func (s *Scene) battleStep() {
	front := s.queue.Front()
	if front == nil {
		s.actorIndex = 0
		s.setState(StateSelectOption)
		return
	}
	if !s.presenter.Busy() && !front.Source.Exists() {
		s.queue.PopFront()
		return
	}
	if s.presenter.Process(front.Algorithm) {
		s.queue.PopFront()
		s.sink.ClearMessages()
		s.checkResultConditions()
	}
}

// displayEncounter shows one "appeared" line per visible enemy. Returns
// true once every line has been shown.
func (s *Scene) displayEncounter() bool {
	if s.encounterSleep > 0 {
		s.encounterSleep--
		if s.encounterSleep > 0 {
			return false
		}
	}
	enemies := s.ctx.Enemies.ActiveBattlers()
	if s.encounterNext >= len(enemies) {
		s.sink.ClearMessages()
		return true
	}
	if s.sink.LineCount() == maxMessageLines {
		s.sink.ClearMessages()
	}
	s.sink.PushMessage(enemies[s.encounterNext].Name() + s.ctx.Terms().Encounter)
	s.encounterNext++
	if s.encounterNext == len(enemies) || s.sink.LineCount() == maxMessageLines {
		s.encounterSleep = s.timing.EncounterLongWait
	} else {
		s.encounterSleep = s.timing.EncounterShortWait
	}
	return false
}

// ---- Result checks ----

func (s *Scene) checkResultConditions() bool {
	return s.checkLose() || s.checkWin() || s.checkAbort() || s.checkFlee()
}

func (s *Scene) checkWin() bool {
	if s.ctx.Enemies.IsAnyActive() {
		return false
	}
	s.state = StateVictory
	s.rewards = CollectRewards(s.ctx)
	terms := s.ctx.Terms()

	s.sink.ClearMessages()
	s.sink.PushMessage(terms.Victory)
	s.sink.PushMessage(strconv.Itoa(s.rewards.Exp) + terms.ExpReceived)
	if s.rewards.Gold > 0 {
		s.sink.PushMessage(terms.GoldReceivedA + " " + strconv.Itoa(s.rewards.Gold) + terms.Gold + terms.GoldReceivedB)
	}
	for _, id := range s.rewards.Items {
		if item := s.ctx.Data.ItemByID(id); item != nil {
			s.sink.PushMessage(item.Name + terms.ItemReceived)
		}
	}
	for _, m := range s.ctx.Allies.ActiveBattlers() {
		s.sink.SetSpriteState(m, SpriteVictory)
	}
	if m := sound(s.ctx.Data.System.VictoryMusic); m != nil {
		s.sink.PlayMusic(*m)
	}
	s.finish(ResultVictory)
	return true
}

func (s *Scene) checkLose() bool {
	if s.ctx.Allies.IsAnyActive() {
		return false
	}
	s.state = StateDefeat
	s.sink.ClearMessages()
	s.sink.PushMessage(s.ctx.Terms().Defeat)
	if m := sound(s.ctx.Data.System.DefeatMusic); m != nil {
		s.sink.PlayMusic(*m)
	}
	s.finish(ResultDefeat)
	return true
}

func (s *Scene) checkAbort() bool {
	if !s.abortRequested {
		return false
	}
	s.finish(ResultAbort)
	return true
}

func (s *Scene) checkFlee() bool {
	if !s.fleeRequested {
		return false
	}
	s.finish(ResultEscape)
	return true
}

func (s *Scene) finish(r Result) {
	s.result = r
	s.queue.Clear()
	s.ctx.Logger.Info("battle finished",
		zap.Stringer("result", r), zap.Int("turns", s.ctx.Turn))
}

// ---- Escape ----

func (s *Scene) escapeStep() {
	if s.escapeBegin {
		s.sink.ClearMessages()
		alg := NewEscape(s.ctx, s.ctx.Allies.Member(0))
		s.escapeSuccess, _ = alg.Execute()
		alg.Apply()
		if msgs := alg.ResultMessages(nil); len(msgs) > 0 {
			s.sink.PushMessage(msgs[0])
		}
		s.escapeBegin = false
		return
	}

	s.escapeCounter++
	if s.escapeCounter <= s.timing.EscapeWait {
		return
	}
	s.escapeBegin = true
	s.escapeCounter = 0
	if s.escapeSuccess {
		if se := sound(s.ctx.sounds().Escape); se != nil {
			s.sink.PlaySound(*se)
		}
		s.finish(ResultEscape)
		return
	}
	s.sink.ClearMessages()
	s.startRound()
}

// ---- Rounds ----

// startRound queues the enemies' actions, orders the round and enters
// StateBattle.
func (s *Scene) startRound() {
	s.setState(StateBattle)
	for _, alg := range EnemyActions(s.ctx) {
		s.queue.Push(alg)
	}
	s.queue.SortByAgility()
	s.nextTurn()
}

// nextTurn advances the turn counter and drops the one-round auto battle
// choice. Guards stay up until their owner acts again.
func (s *Scene) nextTurn() {
	s.ctx.Turn++
	s.autoBattle = false
}
