package resource

// ---- RPG2k Data Structures ----

// Parameter curves, indexed by level-1.
type ParamCurves struct {
	MaxHP   []int `json:"maxHp"`
	MaxSP   []int `json:"maxSp"`
	Attack  []int `json:"attack"`
	Defense []int `json:"defense"`
	Spirit  []int `json:"spirit"`
	Agility []int `json:"agility"`
}

// At returns the value of curve at level (1-based), clamping to the curve ends.
func At(curve []int, level int) int {
	if len(curve) == 0 {
		return 0
	}
	if level < 1 {
		level = 1
	}
	if level > len(curve) {
		level = len(curve)
	}
	return curve[level-1]
}

// Learning is a skill an actor learns at a certain level.
type Learning struct {
	Level   int `json:"level"`
	SkillID int `json:"skillId"`
}

type Actor struct {
	ID                 int         `json:"id"`
	Name               string      `json:"name"`
	Title              string      `json:"title"`
	InitialLevel       int         `json:"initialLevel"`
	FinalLevel         int         `json:"finalLevel"`
	Parameters         ParamCurves `json:"parameters"`
	WeaponID           int         `json:"weaponId"`
	ShieldID           int         `json:"shieldId"`
	ArmorID            int         `json:"armorId"`
	HelmetID           int         `json:"helmetId"`
	AccessoryID        int         `json:"accessoryId"`
	CriticalHit        bool        `json:"criticalHit"`
	CriticalHitChance  int         `json:"criticalHitChance"`
	UnarmedAnimationID int         `json:"unarmedAnimationId"`
	AutoBattle         bool        `json:"autoBattle"`
	SuperGuard         bool        `json:"superGuard"`
	AttributeRanks     []int       `json:"attributeRanks"`
	StateRanks         []int       `json:"stateRanks"`
	Skills             []Learning  `json:"skills"`
	ExpBase            int         `json:"expBase"`
	ExpInflation       int         `json:"expInflation"`
}

// EquipmentIDs returns the non-zero equipment slots of the actor.
func (a *Actor) EquipmentIDs() []int {
	var ids []int
	for _, id := range []int{a.WeaponID, a.ShieldID, a.ArmorID, a.HelmetID, a.AccessoryID} {
		if id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Enemy action kinds.
const (
	EnemyActionBasic = iota
	EnemyActionSkill
	EnemyActionTransformation
)

// Basic enemy behaviours.
const (
	BasicAttack = iota
	BasicDualAttack
	BasicDefense
	BasicObserve
	BasicCharge
	BasicAutodestruction
	BasicEscape
	BasicNothing
)

// Enemy action conditions.
const (
	ConditionAlways = iota
	ConditionSwitch
	ConditionTurn
	ConditionActors
	ConditionHP
	ConditionSP
	ConditionPartyLevel
	ConditionPartyFatigue
)

type EnemyAction struct {
	Kind            int `json:"kind"`
	Basic           int `json:"basic"`
	SkillID         int `json:"skillId"`
	EnemyID         int `json:"enemyId"`
	ConditionType   int `json:"conditionType"`
	ConditionParam1 int `json:"conditionParam1"`
	ConditionParam2 int `json:"conditionParam2"`
	SwitchID        int `json:"switchId"`
	Rating          int `json:"rating"`
}

type Enemy struct {
	ID                int           `json:"id"`
	Name              string        `json:"name"`
	BattlerName       string        `json:"battlerName"`
	MaxHP             int           `json:"maxHp"`
	MaxSP             int           `json:"maxSp"`
	Attack            int           `json:"attack"`
	Defense           int           `json:"defense"`
	Spirit            int           `json:"spirit"`
	Agility           int           `json:"agility"`
	Exp               int           `json:"exp"`
	Gold              int           `json:"gold"`
	DropID            int           `json:"dropId"`
	DropProb          int           `json:"dropProb"`
	CriticalHit       bool          `json:"criticalHit"`
	CriticalHitChance int           `json:"criticalHitChance"`
	Miss              bool          `json:"miss"`
	AttributeRanks    []int         `json:"attributeRanks"`
	StateRanks        []int         `json:"stateRanks"`
	Actions           []EnemyAction `json:"actions"`
}

// Item types.
const (
	ItemNormal = iota
	ItemWeapon
	ItemShield
	ItemArmor
	ItemHelmet
	ItemAccessory
	ItemMedicine
	ItemBook
	ItemMaterial
	ItemSpecial
	ItemSwitch
)

type Item struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        int    `json:"type"`
	Price       int    `json:"price"`
	Uses        int    `json:"uses"`

	// equipment
	AtkPoints     int    `json:"atkPoints"`
	DefPoints     int    `json:"defPoints"`
	SpiPoints     int    `json:"spiPoints"`
	AgiPoints     int    `json:"agiPoints"`
	Hit           int    `json:"hit"`
	CriticalHit   int    `json:"criticalHit"`
	IgnoreEvasion bool   `json:"ignoreEvasion"`
	SPCost        int    `json:"spCost"`
	AnimationID   int    `json:"animationId"`
	AttributeSet  []bool `json:"attributeSet"`
	StateSet      []bool `json:"stateSet"`
	StateChance   int    `json:"stateChance"`
	StateEffect   bool   `json:"stateEffect"`

	// medicine
	EntireParty   bool `json:"entireParty"`
	RecoverHPRate int  `json:"recoverHpRate"`
	RecoverHP     int  `json:"recoverHp"`
	RecoverSPRate int  `json:"recoverSpRate"`
	RecoverSP     int  `json:"recoverSp"`

	// special
	SkillID      int `json:"skillId"`
	UsingMessage int `json:"usingMessage"` // 0 = item message, 1 = skill message

	// switch
	SwitchID       int  `json:"switchId"`
	OccasionBattle bool `json:"occasionBattle"`
}

// Skill types.
const (
	SkillNormal = iota
	SkillTeleport
	SkillEscape
	SkillSwitch
	SkillSubskill
)

// Skill scopes.
const (
	ScopeEnemy = iota
	ScopeEnemies
	ScopeSelf
	ScopeAlly
	ScopeParty
)

type Skill struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	UsingMessage1    string `json:"usingMessage1"`
	UsingMessage2    string `json:"usingMessage2"`
	FailureMessage   int    `json:"failureMessage"`
	Type             int    `json:"type"`
	SPCost           int    `json:"spCost"`
	Scope            int    `json:"scope"`
	SwitchID         int    `json:"switchId"`
	AnimationID      int    `json:"animationId"`
	SoundEffect      Sound  `json:"soundEffect"`
	OccasionBattle   bool   `json:"occasionBattle"`
	Power            int    `json:"power"`
	PhysicalRate     int    `json:"physicalRate"`
	MagicalRate      int    `json:"magicalRate"`
	Variance         int    `json:"variance"`
	Hit              int    `json:"hit"`
	AffectHP         bool   `json:"affectHp"`
	AffectSP         bool   `json:"affectSp"`
	AffectAttack     bool   `json:"affectAttack"`
	AffectDefense    bool   `json:"affectDefense"`
	AffectSpirit     bool   `json:"affectSpirit"`
	AffectAgility    bool   `json:"affectAgility"`
	AbsorbDamage     bool   `json:"absorbDamage"`
	IgnoreDefense    bool   `json:"ignoreDefense"`
	StateEffects     []bool `json:"stateEffects"`
	AttributeEffects []bool `json:"attributeEffects"`
}

// State restrictions.
const (
	RestrictionNormal = iota
	RestrictionDoNothing
	RestrictionAttackEnemy
	RestrictionAttackAlly
)

// Per-turn HP/SP change direction.
const (
	ChangeNone = iota
	ChangeLose
	ChangeGain
)

// DeathStateID is the state attached to battlers at zero HP.
const DeathStateID = 1

type State struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Priority        int    `json:"priority"`
	Restriction     int    `json:"restriction"`
	ARate           int    `json:"aRate"`
	BRate           int    `json:"bRate"`
	CRate           int    `json:"cRate"`
	DRate           int    `json:"dRate"`
	ERate           int    `json:"eRate"`
	HoldTurn        int    `json:"holdTurn"`
	AutoReleaseProb int    `json:"autoReleaseProb"`
	HPChangeType    int    `json:"hpChangeType"`
	HPChangeMax     int    `json:"hpChangeMax"`
	HPChangeVal     int    `json:"hpChangeVal"`
	SPChangeType    int    `json:"spChangeType"`
	SPChangeMax     int    `json:"spChangeMax"`
	SPChangeVal     int    `json:"spChangeVal"`
	MessageActor    string `json:"messageActor"`
	MessageEnemy    string `json:"messageEnemy"`
	MessageAlready  string `json:"messageAlready"`
	MessageAffected string `json:"messageAffected"`
	MessageRecovery string `json:"messageRecovery"`
}

// RankRate returns the rate for rank 0..4 (A..E).
func (s *State) RankRate(rank int) int {
	return rankRate(rank, s.ARate, s.BRate, s.CRate, s.DRate, s.ERate)
}

type Attribute struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Type  int    `json:"type"` // 0 = physical, 1 = magical
	ARate int    `json:"aRate"`
	BRate int    `json:"bRate"`
	CRate int    `json:"cRate"`
	DRate int    `json:"dRate"`
	ERate int    `json:"eRate"`
}

// RankRate returns the rate for rank 0..4 (A..E).
func (a *Attribute) RankRate(rank int) int {
	return rankRate(rank, a.ARate, a.BRate, a.CRate, a.DRate, a.ERate)
}

func rankRate(rank, a, b, c, d, e int) int {
	switch rank {
	case 0:
		return a
	case 1:
		return b
	case 2:
		return c
	case 3:
		return d
	case 4:
		return e
	}
	return 0
}

// DefaultRank is the rank (C) used when a battler has no explicit entry.
const DefaultRank = 2

type Animation struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	AnimationName string `json:"animationName"`
	Frames        int    `json:"frames"`
	Scope         int    `json:"scope"`
	Position      int    `json:"position"`
}

type TroopMember struct {
	EnemyID   int  `json:"enemyId"`
	X         int  `json:"x"`
	Y         int  `json:"y"`
	Invisible bool `json:"invisible"`
}

type Troop struct {
	ID      int           `json:"id"`
	Name    string        `json:"name"`
	Members []TroopMember `json:"members"`
}

// Sound references a sound effect or music file by name.
type Sound struct {
	Name    string `json:"name"`
	Volume  int    `json:"volume"`
	Tempo   int    `json:"tempo"`
	Balance int    `json:"balance"`
}

// IsEmpty reports whether the sound has no file.
func (s Sound) IsEmpty() bool {
	return s.Name == "" || s.Name == "(OFF)"
}

type SystemSounds struct {
	Cursor       Sound `json:"cursor"`
	Decision     Sound `json:"decision"`
	Cancel       Sound `json:"cancel"`
	Buzzer       Sound `json:"buzzer"`
	BattleStart  Sound `json:"battleStart"`
	Escape       Sound `json:"escape"`
	EnemyAttacks Sound `json:"enemyAttacks"`
	EnemyDamaged Sound `json:"enemyDamaged"`
	ActorDamaged Sound `json:"actorDamaged"`
	Evasion      Sound `json:"evasion"`
	EnemyKill    Sound `json:"enemyKill"`
	UseItem      Sound `json:"useItem"`
}

type SystemData struct {
	GameTitle    string       `json:"gameTitle"`
	Sounds       SystemSounds `json:"sounds"`
	VictoryMusic Sound        `json:"victoryMusic"`
	DefeatMusic  Sound        `json:"defeatMusic"`
}
