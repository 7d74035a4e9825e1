package battle

import "github.com/kasuganosora/rpg2kbattle/resource"

// Party is one side of a battle: the player's actors or the enemy troop.
// Allied parties also carry the inventory and gold.
type Party struct {
	faction Faction
	members []Battler
	items   map[int]int
	gold    int
}

// NewParty creates a party and assigns member indices.
func NewParty(f Faction, members ...Battler) *Party {
	p := &Party{faction: f, items: make(map[int]int)}
	for _, m := range members {
		p.Add(m)
	}
	return p
}

// Add appends a battler to the party.
func (p *Party) Add(b Battler) {
	base := b.base()
	base.party = p
	base.index = len(p.members)
	base.faction = p.faction
	p.members = append(p.members, b)
}

func (p *Party) Faction() Faction     { return p.faction }
func (p *Party) Members() []Battler   { return p.members }
func (p *Party) Len() int             { return len(p.members) }
func (p *Party) Member(i int) Battler { return p.members[i] }

// ActiveBattlers returns members that are alive and on the field.
func (p *Party) ActiveBattlers() []Battler {
	var out []Battler
	for _, m := range p.members {
		if m.Exists() {
			out = append(out, m)
		}
	}
	return out
}

// IsAnyActive reports whether at least one member can still fight.
func (p *Party) IsAnyActive() bool {
	for _, m := range p.members {
		if m.Exists() {
			return true
		}
	}
	return false
}

// IsAnyControllable reports whether a member can receive commands.
func (p *Party) IsAnyControllable() bool {
	for _, m := range p.members {
		if m.Exists() && m.CanAct() {
			return true
		}
	}
	return false
}

// NextActiveBattler returns the first active member after b, wrapping
// around. Returns nil when none is left.
func (p *Party) NextActiveBattler(b Battler) Battler {
	n := len(p.members)
	start := 0
	if b != nil && b.Party() == p {
		start = b.Index() + 1
	}
	for i := 0; i < n; i++ {
		m := p.members[(start+i)%n]
		if m != b && m.Exists() {
			return m
		}
	}
	return nil
}

// RandomActiveBattler picks a uniformly random active member, or nil.
func (p *Party) RandomActiveBattler(rng RNG) Battler {
	active := p.ActiveBattlers()
	if len(active) == 0 {
		return nil
	}
	return active[rng.Intn(len(active))]
}

// AverageAgility is the mean agility of active members, 0 when none.
func (p *Party) AverageAgility() int {
	active := p.ActiveBattlers()
	if len(active) == 0 {
		return 0
	}
	sum := 0
	for _, m := range active {
		sum += m.Agi()
	}
	return sum / len(active)
}

// AverageLevel is the mean level of the party's actors, 0 for enemy parties.
func (p *Party) AverageLevel() int {
	sum, n := 0, 0
	for _, m := range p.members {
		if a, ok := m.(*ActorBattler); ok {
			sum += a.Level()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// Fatigue is the percentage of HP and SP the party has lost.
func (p *Party) Fatigue() int {
	cur, total := 0, 0
	for _, m := range p.members {
		cur += m.HP() + m.SP()
		total += m.MaxHP() + m.MaxSP()
	}
	if total == 0 {
		return 0
	}
	return 100 - cur*100/total
}

// ---- Inventory ----

// ItemCount returns how many of the item the party holds.
func (p *Party) ItemCount(itemID int) int { return p.items[itemID] }

// AddItem changes the held count of an item, never below zero.
func (p *Party) AddItem(itemID, n int) {
	c := p.items[itemID] + n
	if c <= 0 {
		delete(p.items, itemID)
		return
	}
	p.items[itemID] = c
}

// ConsumeItemUse removes one item. Items with zero uses are unlimited.
func (p *Party) ConsumeItemUse(item *resource.Item) {
	if item == nil || item.Uses == 0 {
		return
	}
	p.AddItem(item.ID, -1)
}

// Items returns a copy of the inventory.
func (p *Party) Items() map[int]int {
	out := make(map[int]int, len(p.items))
	for k, v := range p.items {
		out[k] = v
	}
	return out
}

func (p *Party) Gold() int      { return p.gold }
func (p *Party) GainGold(n int) { p.gold = max(p.gold+n, 0) }
