package battle

import (
	"fmt"

	"github.com/kasuganosora/rpg2kbattle/resource"
)

// Item uses a medicine or switch item.
type Item struct {
	base
	item *resource.Item
}

func NewItem(ctx *Context, source, target Battler, item *resource.Item) *Item {
	return &Item{base: newTargetBase(ctx, KindItem, source, target), item: item}
}

func NewItemOnParty(ctx *Context, source Battler, party *Party, item *resource.Item) *Item {
	return &Item{base: newPartyBase(ctx, KindItem, source, party), item: item}
}

// NewItemOnSelf uses an item without a separate target, such as a switch.
func NewItemOnSelf(ctx *Context, source Battler, item *resource.Item) *Item {
	return NewItem(ctx, source, source, item)
}

func (it *Item) ItemData() *resource.Item { return it.item }

// IsTargetValid only accepts dead targets for medicine that cures death.
func (it *Item) IsTargetValid() bool {
	if it.noTarget {
		return true
	}
	t := it.Target()
	if t == nil {
		return false
	}
	if t.IsDead() {
		return it.item.Type == resource.ItemMedicine && len(it.item.StateSet) > 0 && it.item.StateSet[0]
	}
	return it.item.Type == resource.ItemMedicine || it.item.Type == resource.ItemSwitch
}

func (it *Item) Execute() (bool, error) {
	it.out.reset()
	t := it.Target()
	if t == nil {
		return false, ErrNoTarget
	}
	item := it.item
	o := &it.out
	switch item.Type {
	case resource.ItemMedicine:
		o.Healing = true
		o.Success = true
		if item.RecoverHP != 0 || item.RecoverHPRate != 0 {
			o.HP = item.RecoverHP + t.MaxHP()*item.RecoverHPRate/100
		}
		if item.RecoverSP != 0 || item.RecoverSPRate != 0 {
			o.SP = item.RecoverSP + t.MaxSP()*item.RecoverSPRate/100
		}
		for i, on := range item.StateSet {
			if !on {
				continue
			}
			if st := it.ctx.state(i + 1); st != nil {
				o.Conditions = append(o.Conditions, st)
			}
		}
	case resource.ItemSwitch:
		o.Switch = item.SwitchID
		o.Success = true
	default:
		return false, fmt.Errorf("%w: item %d has type %d", ErrUnsupportedRule, item.ID, item.Type)
	}
	return true, nil
}

// Apply commits the outcome and consumes the item once per action.
func (it *Item) Apply() {
	it.apply()
	if it.firstAttack {
		it.ctx.PartyOf(it.source.Faction()).ConsumeItemUse(it.item)
	}
}

func (it *Item) StartMessage() string {
	return itemStartMessage(it.ctx, it.source, it.item)
}

func itemStartMessage(ctx *Context, source Battler, item *resource.Item) string {
	if ctx.Engine != EngineRPG2k {
		return source.Name() + ": " + item.Name
	}
	return source.Name() + " " + item.Name + ctx.Terms().UseItem
}

func (it *Item) SourceAnimationState() SpriteState { return SpriteItem }

func (it *Item) StartSound() *resource.Sound {
	if it.item.Type == resource.ItemSwitch {
		return sound(it.ctx.sounds().UseItem)
	}
	if it.isAllySource() {
		return nil
	}
	return sound(it.ctx.sounds().EnemyAttacks)
}
