package resource

// Terms holds the battle vocabulary. Most entries are suffixes appended to a
// battler name, following the RPG2k database layout.
type Terms struct {
	Encounter       string `json:"encounter"`
	SpecialCombat   string `json:"specialCombat"`
	EscapeSuccess   string `json:"escapeSuccess"`
	EscapeFailure   string `json:"escapeFailure"`
	Victory         string `json:"victory"`
	Defeat          string `json:"defeat"`
	ExpReceived     string `json:"expReceived"`
	GoldReceivedA   string `json:"goldReceivedA"`
	GoldReceivedB   string `json:"goldReceivedB"`
	ItemReceived    string `json:"itemReceived"`
	Attacking       string `json:"attacking"`
	ActorCritical   string `json:"actorCritical"`
	EnemyCritical   string `json:"enemyCritical"`
	Defending       string `json:"defending"`
	Observing       string `json:"observing"`
	Focus           string `json:"focus"`
	Autodestruction string `json:"autodestruction"`
	EnemyEscape     string `json:"enemyEscape"`
	EnemyTransform  string `json:"enemyTransform"`
	EnemyDamaged    string `json:"enemyDamaged"`
	EnemyUndamaged  string `json:"enemyUndamaged"`
	ActorDamaged    string `json:"actorDamaged"`
	ActorUndamaged  string `json:"actorUndamaged"`
	SkillFailureA   string `json:"skillFailureA"`
	SkillFailureB   string `json:"skillFailureB"`
	SkillFailureC   string `json:"skillFailureC"`
	Dodge           string `json:"dodge"`
	UseItem         string `json:"useItem"`
	HPRecovery      string `json:"hpRecovery"`
	ActorHPAbsorbed string `json:"actorHpAbsorbed"`
	EnemyHPAbsorbed string `json:"enemyHpAbsorbed"`
	Gold            string `json:"gold"`
	HealthPoints    string `json:"healthPoints"`
	SpiritPoints    string `json:"spiritPoints"`
	Attack          string `json:"attack"`
	Defense         string `json:"defense"`
	Spirit          string `json:"spirit"`
	Agility         string `json:"agility"`
	CommandAttack   string `json:"commandAttack"`
	CommandSkill    string `json:"commandSkill"`
	CommandDefend   string `json:"commandDefend"`
	CommandItem     string `json:"commandItem"`
	CommandBattle   string `json:"commandBattle"`
	CommandAuto     string `json:"commandAuto"`
	CommandEscape   string `json:"commandEscape"`
}

// DefaultTerms returns the English RPG2k vocabulary.
func DefaultTerms() *Terms {
	return &Terms{
		Encounter:       " appeared!",
		SpecialCombat:   "Preemptive attack!",
		EscapeSuccess:   "Escaped safely.",
		EscapeFailure:   "Could not escape!",
		Victory:         "Victory!",
		Defeat:          "The party was defeated...",
		ExpReceived:     " experience points received.",
		GoldReceivedA:   "Found",
		GoldReceivedB:   ".",
		ItemReceived:    " found!",
		Attacking:       " attacks!",
		ActorCritical:   "A critical hit!",
		EnemyCritical:   "A painful blow!",
		Defending:       " is defending.",
		Observing:       " is watching closely.",
		Focus:           " is gathering strength.",
		Autodestruction: " self-destructs!",
		EnemyEscape:     " ran away.",
		EnemyTransform:  " transformed.",
		EnemyDamaged:    " damage taken.",
		EnemyUndamaged:  " took no damage.",
		ActorDamaged:    " damage taken.",
		ActorUndamaged:  " took no damage.",
		SkillFailureA:   " was not affected.",
		SkillFailureB:   " resisted.",
		SkillFailureC:   " was unaffected.",
		Dodge:           " dodged the attack.",
		UseItem:         " used.",
		HPRecovery:      " recovered.",
		ActorHPAbsorbed: " absorbed.",
		EnemyHPAbsorbed: " absorbed.",
		Gold:            "G",
		HealthPoints:    "HP",
		SpiritPoints:    "SP",
		Attack:          "Attack",
		Defense:         "Defense",
		Spirit:          "Spirit",
		Agility:         "Agility",
		CommandAttack:   "Attack",
		CommandSkill:    "Skill",
		CommandDefend:   "Defend",
		CommandItem:     "Item",
		CommandBattle:   "Fight",
		CommandAuto:     "Auto",
		CommandEscape:   "Escape",
	}
}
