package battle

import (
	"github.com/kasuganosora/rpg2kbattle/resource"
)

func curves(hp, sp, atk, def, spi, agi int) resource.ParamCurves {
	return resource.ParamCurves{
		MaxHP:   []int{hp},
		MaxSP:   []int{sp},
		Attack:  []int{atk},
		Defense: []int{def},
		Spirit:  []int{spi},
		Agility: []int{agi},
	}
}

// makeTestRes builds a small database:
//
//	actors:  1 Alex (unarmed), 2 Brian (Short Sword)
//	enemies: 1 Slime, 2 Bat (weak to fire), 3 Golem (slow, no actions)
//	states:  1 Death, 2 Poison, 3 Sleep, 4 Berserk
func makeTestRes() *resource.ResourceLoader {
	return &resource.ResourceLoader{
		System: &resource.SystemData{
			Sounds: resource.SystemSounds{
				Cursor:       resource.Sound{Name: "cursor"},
				Decision:     resource.Sound{Name: "decision"},
				Cancel:       resource.Sound{Name: "cancel"},
				Buzzer:       resource.Sound{Name: "buzzer"},
				BattleStart:  resource.Sound{Name: "battle_start"},
				Escape:       resource.Sound{Name: "escape"},
				EnemyAttacks: resource.Sound{Name: "enemy_attacks"},
				EnemyDamaged: resource.Sound{Name: "enemy_damaged"},
				ActorDamaged: resource.Sound{Name: "actor_damaged"},
				Evasion:      resource.Sound{Name: "evasion"},
				EnemyKill:    resource.Sound{Name: "enemy_kill"},
				UseItem:      resource.Sound{Name: "use_item"},
			},
			VictoryMusic: resource.Sound{Name: "victory"},
			DefeatMusic:  resource.Sound{Name: "defeat"},
		},
		Terms: resource.DefaultTerms(),
		Actors: []*resource.Actor{
			nil,
			{
				ID: 1, Name: "Alex", InitialLevel: 1,
				Parameters:         curves(100, 30, 20, 10, 10, 10),
				UnarmedAnimationID: 1,
				Skills: []resource.Learning{
					{Level: 1, SkillID: 1},
					{Level: 1, SkillID: 2},
					{Level: 1, SkillID: 3},
					{Level: 1, SkillID: 4},
					{Level: 5, SkillID: 6},
				},
			},
			{
				ID: 2, Name: "Brian", InitialLevel: 3,
				Parameters: curves(80, 10, 15, 8, 5, 9),
				WeaponID:   3,
			},
		},
		Enemies: []*resource.Enemy{
			nil,
			{
				ID: 1, Name: "Slime", MaxHP: 30, MaxSP: 10,
				Attack: 10, Defense: 8, Spirit: 5, Agility: 10,
				Exp: 5, Gold: 10, DropID: 1, DropProb: 50,
				Actions: []resource.EnemyAction{
					{Kind: resource.EnemyActionBasic, Basic: resource.BasicAttack, Rating: 5},
				},
			},
			{
				ID: 2, Name: "Bat", MaxHP: 20,
				Attack: 12, Defense: 4, Spirit: 2, Agility: 12,
				Exp: 3, Gold: 4,
				AttributeRanks: []int{resource.DefaultRank, 0},
				Actions: []resource.EnemyAction{
					{Kind: resource.EnemyActionBasic, Basic: resource.BasicAttack, Rating: 5},
					{
						Kind: resource.EnemyActionBasic, Basic: resource.BasicDefense, Rating: 5,
						ConditionType: resource.ConditionHP, ConditionParam1: 0, ConditionParam2: 50,
					},
				},
			},
			{
				ID: 3, Name: "Golem", MaxHP: 200,
				Attack: 40, Defense: 30, Spirit: 1, Agility: 30,
			},
		},
		Items: []*resource.Item{
			nil,
			{ID: 1, Name: "Potion", Type: resource.ItemMedicine, Uses: 1, RecoverHP: 50},
			{ID: 2, Name: "Phoenix", Type: resource.ItemMedicine, Uses: 1, RecoverHPRate: 10, StateSet: []bool{true}},
			{
				ID: 3, Name: "Short Sword", Type: resource.ItemWeapon,
				AtkPoints: 10, Hit: 90, SPCost: 2, AnimationID: 1,
				StateSet: []bool{false, true}, StateChance: 50,
			},
			{ID: 4, Name: "Lever", Type: resource.ItemSwitch, Uses: 1, SwitchID: 7, OccasionBattle: true},
			{ID: 5, Name: "Fire Scroll", Type: resource.ItemSpecial, Uses: 1, SkillID: 2},
			{ID: 6, Name: "Tonic", Type: resource.ItemMedicine, RecoverSP: 10},
			{ID: 7, Name: "Mega Potion", Type: resource.ItemMedicine, Uses: 1, RecoverHP: 20, EntireParty: true},
		},
		Skills: []*resource.Skill{
			nil,
			{
				ID: 1, Name: "Heal", Type: resource.SkillNormal, Scope: resource.ScopeAlly,
				SPCost: 5, Power: 30, AffectHP: true, UsingMessage1: " casts Heal!",
			},
			{
				ID: 2, Name: "Fire", Type: resource.SkillNormal, Scope: resource.ScopeEnemy,
				SPCost: 4, Power: 20, Hit: 100, AffectHP: true, AnimationID: 2,
				AttributeEffects: []bool{false, true},
				UsingMessage1:    " casts Fire!", UsingMessage2: "The air burns.",
			},
			{
				ID: 3, Name: "Drain Mind", Type: resource.SkillNormal, Scope: resource.ScopeEnemy,
				Power: 5, Hit: 100, AffectSP: true, AbsorbDamage: true, FailureMessage: 1,
				UsingMessage1: " drains!",
			},
			{
				ID: 4, Name: "Raise", Type: resource.SkillNormal, Scope: resource.ScopeAlly,
				SPCost: 10, Power: 10, AffectHP: true, StateEffects: []bool{true},
				UsingMessage1: " casts Raise!",
			},
			{ID: 5, Name: "Beam", Type: resource.SkillTeleport, Scope: resource.ScopeEnemy},
			{
				ID: 6, Name: "Sleep", Type: resource.SkillNormal, Scope: resource.ScopeEnemy,
				Hit: 100, StateEffects: []bool{false, false, true}, UsingMessage1: " casts Sleep!",
			},
			{
				ID: 7, Name: "Bell", Type: resource.SkillSwitch, Scope: resource.ScopeSelf,
				SwitchID: 9, OccasionBattle: true, SoundEffect: resource.Sound{Name: "bell"},
			},
			{
				ID: 8, Name: "Drain", Type: resource.SkillNormal, Scope: resource.ScopeEnemy,
				Power: 50, Hit: 100, AffectHP: true, AbsorbDamage: true,
				UsingMessage1: " drains!",
			},
		},
		States: []*resource.State{
			nil,
			{
				ID: 1, Name: "Death", Priority: 100,
				ARate: 100, BRate: 100, CRate: 100, DRate: 100, ERate: 100,
				MessageActor: " has fallen.", MessageEnemy: " is defeated.",
				MessageRecovery: " was revived.",
			},
			{
				ID: 2, Name: "Poison", Priority: 10,
				ARate: 100, BRate: 80, CRate: 60, DRate: 30, ERate: 0,
				HoldTurn: 3, AutoReleaseProb: 50,
				HPChangeType: resource.ChangeLose, HPChangeVal: 5,
				MessageActor: " is poisoned.", MessageEnemy: " is poisoned.",
				MessageAlready:  " is already poisoned.",
				MessageAffected: " suffers from poison.",
				MessageRecovery: " is no longer poisoned.",
			},
			{
				ID: 3, Name: "Sleep", Priority: 50, Restriction: resource.RestrictionDoNothing,
				ARate: 100, BRate: 100, CRate: 100, DRate: 100, ERate: 100,
				HoldTurn: 1, AutoReleaseProb: 100,
				MessageActor: " fell asleep.", MessageEnemy: " fell asleep.",
				MessageAffected: " is asleep.", MessageRecovery: " woke up.",
			},
			{
				ID: 4, Name: "Berserk", Priority: 40, Restriction: resource.RestrictionAttackAlly,
				ARate: 100, BRate: 100, CRate: 100, DRate: 100, ERate: 100,
				MessageAffected: " is berserk.",
			},
		},
		Attributes: []*resource.Attribute{
			nil,
			{ID: 1, Name: "Sword", ARate: 200, BRate: 150, CRate: 100, DRate: 50, ERate: 0},
			{ID: 2, Name: "Fire", Type: 1, ARate: 200, BRate: 150, CRate: 100, DRate: 50, ERate: 0},
		},
		Animations: []*resource.Animation{
			nil,
			{ID: 1, Name: "Punch"},
			{ID: 2, Name: "Flame"},
		},
	}
}

// scriptedRNG replays queued values. Values past the bound are clamped to
// n-1; an exhausted script returns 0.
type scriptedRNG struct {
	vals  []int
	calls []int
}

func (r *scriptedRNG) Intn(n int) int {
	r.calls = append(r.calls, n)
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[0]
	r.vals = r.vals[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func (r *scriptedRNG) push(vals ...int) { r.vals = append(r.vals, vals...) }

type testBattle struct {
	res   *resource.ResourceLoader
	rng   *scriptedRNG
	ctx   *Context
	alex  *ActorBattler
	brian *ActorBattler
	slime *EnemyBattler
	bat   *EnemyBattler
}

// newTestBattle puts Alex and Brian against a Slime and a Bat. rolls are
// the first values the RNG returns.
func newTestBattle(rolls ...int) *testBattle {
	res := makeTestRes()
	tb := &testBattle{res: res, rng: &scriptedRNG{vals: rolls}}
	tb.alex = NewActorBattler(res, ActorConfig{Actor: res.ActorByID(1)})
	tb.brian = NewActorBattler(res, ActorConfig{Actor: res.ActorByID(2)})
	tb.slime = NewEnemyBattler(res, res.EnemyByID(1))
	tb.bat = NewEnemyBattler(res, res.EnemyByID(2))
	tb.ctx = NewContext(ContextConfig{
		Data:          res,
		RNG:           tb.rng,
		Allies:        NewParty(FactionAlly, tb.alex, tb.brian),
		Enemies:       NewParty(FactionEnemy, tb.slime, tb.bat),
		EscapeAllowed: true,
	})
	return tb
}

// recordingSink keeps a message window like the real one and logs every
// other call.
type recordingSink struct {
	lines      []string
	pushed     []string
	sprites    map[Battler]SpriteState
	sounds     []string
	music      []string
	flashes    []Battler
	animations []string
	playing    bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{sprites: make(map[Battler]SpriteState)}
}

func (s *recordingSink) PushMessage(text string) {
	s.lines = append(s.lines, text)
	s.pushed = append(s.pushed, text)
}

func (s *recordingSink) PopMessage() {
	if len(s.lines) > 0 {
		s.lines = s.lines[:len(s.lines)-1]
	}
}

func (s *recordingSink) ClearMessages()                                 { s.lines = nil }
func (s *recordingSink) LineCount() int                                 { return len(s.lines) }
func (s *recordingSink) SetSpriteState(b Battler, st SpriteState)       { s.sprites[b] = st }
func (s *recordingSink) FlashBattler(b Battler, _ Color, _ int)         { s.flashes = append(s.flashes, b) }
func (s *recordingSink) PlaySound(se resource.Sound)                    { s.sounds = append(s.sounds, se.Name) }
func (s *recordingSink) PlayMusic(m resource.Sound)                     { s.music = append(s.music, m.Name) }
func (s *recordingSink) IsAnimationPlaying() bool                       { return s.playing }
func (s *recordingSink) ShowAnimation(a *resource.Animation, _ Battler) { s.animations = append(s.animations, a.Name) }

func (s *recordingSink) played(name string) bool {
	for _, n := range s.sounds {
		if n == name {
			return true
		}
	}
	return false
}

// scriptedInput reports each key press once.
type scriptedInput struct {
	confirm, cancel bool
}

func (in *scriptedInput) Confirm() bool {
	v := in.confirm
	in.confirm = false
	return v
}

func (in *scriptedInput) Cancel() bool {
	v := in.cancel
	in.cancel = false
	return v
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
