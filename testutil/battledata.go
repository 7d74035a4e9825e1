package testutil

import "github.com/kasuganosora/rpg2kbattle/resource"

func level1(hp, sp, atk, def, spi, agi int) resource.ParamCurves {
	return resource.ParamCurves{
		MaxHP:   []int{hp},
		MaxSP:   []int{sp},
		Attack:  []int{atk},
		Defense: []int{def},
		Spirit:  []int{spi},
		Agility: []int{agi},
	}
}

// BattleData returns a small game database for service-level tests.
//
//	actors:  1 Hero, 2 Mage
//	troops:  1 two Slimes (an easy win), 2 Dragon (a certain loss)
//
// Every table is freshly allocated, so callers may modify the result.
func BattleData() *resource.ResourceLoader {
	return &resource.ResourceLoader{
		System: &resource.SystemData{
			GameTitle: "Test",
			Sounds: resource.SystemSounds{
				Cursor:       resource.Sound{Name: "Cursor1", Volume: 100, Tempo: 100, Balance: 50},
				Decision:     resource.Sound{Name: "Decision1", Volume: 100, Tempo: 100, Balance: 50},
				Cancel:       resource.Sound{Name: "Cancel1", Volume: 100, Tempo: 100, Balance: 50},
				Buzzer:       resource.Sound{Name: "Buzzer1", Volume: 100, Tempo: 100, Balance: 50},
				Escape:       resource.Sound{Name: "Escape1", Volume: 100, Tempo: 100, Balance: 50},
				EnemyAttacks: resource.Sound{Name: "Attack1", Volume: 100, Tempo: 100, Balance: 50},
				EnemyDamaged: resource.Sound{Name: "Damage1", Volume: 100, Tempo: 100, Balance: 50},
				ActorDamaged: resource.Sound{Name: "Damage2", Volume: 100, Tempo: 100, Balance: 50},
				Evasion:      resource.Sound{Name: "Miss", Volume: 100, Tempo: 100, Balance: 50},
				EnemyKill:    resource.Sound{Name: "Kill1", Volume: 100, Tempo: 100, Balance: 50},
				UseItem:      resource.Sound{Name: "Item1", Volume: 100, Tempo: 100, Balance: 50},
			},
			VictoryMusic: resource.Sound{Name: "Victory1", Volume: 100, Tempo: 100, Balance: 50},
			DefeatMusic:  resource.Sound{Name: "GameOver", Volume: 100, Tempo: 100, Balance: 50},
		},
		Terms: resource.DefaultTerms(),
		Actors: []*resource.Actor{
			nil,
			{
				ID: 1, Name: "Hero", InitialLevel: 1,
				Parameters:         level1(300, 20, 80, 40, 20, 40),
				UnarmedAnimationID: 1,
				Skills:             []resource.Learning{{Level: 1, SkillID: 1}},
			},
			{
				ID: 2, Name: "Mage", InitialLevel: 1,
				Parameters:         level1(150, 60, 30, 20, 60, 30),
				UnarmedAnimationID: 1,
				Skills:             []resource.Learning{{Level: 1, SkillID: 1}, {Level: 1, SkillID: 2}},
			},
		},
		Enemies: []*resource.Enemy{
			nil,
			{
				ID: 1, Name: "Slime", MaxHP: 30, MaxSP: 0,
				Attack: 10, Defense: 4, Spirit: 4, Agility: 5,
				Exp: 5, Gold: 10, DropID: 1, DropProb: 100,
				Actions: []resource.EnemyAction{
					{Kind: resource.EnemyActionBasic, Basic: resource.BasicAttack, Rating: 5},
				},
			},
			{
				ID: 2, Name: "Dragon", MaxHP: 9999, MaxSP: 999,
				Attack: 999, Defense: 999, Spirit: 999, Agility: 999,
				Exp: 500, Gold: 1000,
				Actions: []resource.EnemyAction{
					{Kind: resource.EnemyActionBasic, Basic: resource.BasicAttack, Rating: 5},
				},
			},
		},
		Items: []*resource.Item{
			nil,
			{ID: 1, Name: "Potion", Type: resource.ItemMedicine, Uses: 1, RecoverHP: 50},
		},
		Skills: []*resource.Skill{
			nil,
			{
				ID: 1, Name: "Cure", Type: resource.SkillNormal, Scope: resource.ScopeAlly,
				SPCost: 5, Power: 40, AffectHP: true, UsingMessage1: " casts Cure!",
			},
			{
				ID: 2, Name: "Blaze", Type: resource.SkillNormal, Scope: resource.ScopeEnemies,
				SPCost: 10, Power: 50, Hit: 100, AffectHP: true, AnimationID: 2,
				UsingMessage1: " casts Blaze!",
			},
		},
		States: []*resource.State{
			nil,
			{
				ID: 1, Name: "Death", Priority: 100, Restriction: resource.RestrictionDoNothing,
				ARate: 100, BRate: 80, CRate: 60, DRate: 30,
				MessageActor: " has fallen.", MessageEnemy: " is defeated.",
			},
		},
		Animations: []*resource.Animation{
			nil,
			{ID: 1, Name: "Hit", AnimationName: "Slash", Frames: 3},
			{ID: 2, Name: "Blaze", AnimationName: "Fire1", Frames: 4, Scope: 1},
		},
		Troops: []*resource.Troop{
			nil,
			{ID: 1, Name: "Slime*2", Members: []resource.TroopMember{{EnemyID: 1}, {EnemyID: 1}}},
			{ID: 2, Name: "Dragon", Members: []resource.TroopMember{{EnemyID: 2}}},
		},
	}
}
