package battle

// Rewards is what a won battle pays out.
type Rewards struct {
	Exp   int   `json:"exp"`
	Gold  int   `json:"gold"`
	Items []int `json:"items,omitempty"`
}

// Exp sums the experience of defeated members. Escaped or self-destructed
// enemies give nothing.
func (p *Party) Exp() int {
	sum := 0
	for _, m := range p.members {
		if e, ok := m.(*EnemyBattler); ok && e.IsDead() {
			sum += e.Enemy().Exp
		}
	}
	return sum
}

// Money sums the gold of defeated members.
func (p *Party) Money() int {
	sum := 0
	for _, m := range p.members {
		if e, ok := m.(*EnemyBattler); ok && e.IsDead() {
			sum += e.Enemy().Gold
		}
	}
	return sum
}

// GenerateDrops rolls the drop of every defeated member.
// Each enemy drops its item with DropProb percent chance.
func (p *Party) GenerateDrops(rng RNG) []int {
	var drops []int
	for _, m := range p.members {
		e, ok := m.(*EnemyBattler)
		if !ok || !e.IsDead() || e.Enemy().DropID <= 0 {
			continue
		}
		if rng.Intn(100) < e.Enemy().DropProb {
			drops = append(drops, e.Enemy().DropID)
		}
	}
	return drops
}

// CollectRewards computes the rewards of the enemy party and grants them to
// the allies: exp to every living actor, gold and items to the party.
func CollectRewards(ctx *Context) Rewards {
	r := Rewards{
		Exp:   ctx.Enemies.Exp(),
		Gold:  ctx.Enemies.Money(),
		Items: ctx.Enemies.GenerateDrops(ctx.RNG),
	}
	for _, m := range ctx.Allies.ActiveBattlers() {
		if a, ok := m.(*ActorBattler); ok {
			a.GainExp(r.Exp)
		}
	}
	ctx.Allies.GainGold(r.Gold)
	for _, id := range r.Items {
		ctx.Allies.AddItem(id, 1)
	}
	return r
}
