package battle

import "sort"

// Action is a queued algorithm together with the battler that declared it.
type Action struct {
	Source    Battler
	Algorithm Algorithm
}

// ActionQueue holds the actions of a round in execution order.
type ActionQueue struct {
	actions []*Action
}

func NewActionQueue() *ActionQueue { return &ActionQueue{} }

func (q *ActionQueue) Push(alg Algorithm) {
	q.actions = append(q.actions, &Action{Source: alg.Source(), Algorithm: alg})
}

// Front returns the next action, or nil.
func (q *ActionQueue) Front() *Action {
	if len(q.actions) == 0 {
		return nil
	}
	return q.actions[0]
}

func (q *ActionQueue) PopFront() {
	if len(q.actions) > 0 {
		q.actions[0] = nil
		q.actions = q.actions[1:]
	}
}

// RemoveLast drops the most recent action declared by source.
func (q *ActionQueue) RemoveLast(source Battler) bool {
	for i := len(q.actions) - 1; i >= 0; i-- {
		if q.actions[i].Source == source {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			return true
		}
	}
	return false
}

func (q *ActionQueue) Clear()             { q.actions = nil }
func (q *ActionQueue) Len() int           { return len(q.actions) }
func (q *ActionQueue) Actions() []*Action { return q.actions }

// SortByAgility orders actions by descending source agility. Ties keep
// their declaration order.
func (q *ActionQueue) SortByAgility() {
	sort.SliceStable(q.actions, func(i, j int) bool {
		return q.actions[i].Source.Agi() > q.actions[j].Source.Agi()
	})
}
