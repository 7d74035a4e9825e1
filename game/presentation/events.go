package presentation

import "github.com/kasuganosora/rpg2kbattle/game/battle"

// Event is one presentation step, serialised for remote renderers.
type Event interface {
	EventType() string
}

// Envelope wraps an event with the frame it was produced on.
type Envelope struct {
	Type    string `json:"type"`
	Frame   int    `json:"frame"`
	Payload Event  `json:"payload"`
}

// BattlerRef identifies a battler in event payloads.
type BattlerRef struct {
	Index int    `json:"index"`
	Ally  bool   `json:"ally"`
	Name  string `json:"name"`
}

// BattlerSnapshot is the full visible state of a battler.
type BattlerSnapshot struct {
	Index  int    `json:"index"`
	Ally   bool   `json:"ally"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
	HP     int    `json:"hp"`
	MaxHP  int    `json:"max_hp"`
	SP     int    `json:"sp"`
	MaxSP  int    `json:"max_sp"`
	States []int  `json:"states"`
	Level  int    `json:"level,omitempty"` // actors only
	Hidden bool   `json:"hidden,omitempty"`
	Dead   bool   `json:"dead,omitempty"`
}

func RefBattler(b battle.Battler) BattlerRef {
	return BattlerRef{Index: b.Index(), Ally: b.Faction() == battle.FactionAlly, Name: b.Name()}
}

func SnapshotBattler(b battle.Battler) BattlerSnapshot {
	s := BattlerSnapshot{
		Index:  b.Index(),
		Ally:   b.Faction() == battle.FactionAlly,
		ID:     b.ID(),
		Name:   b.Name(),
		HP:     b.HP(),
		MaxHP:  b.MaxHP(),
		SP:     b.SP(),
		MaxSP:  b.MaxSP(),
		States: b.StateIDs(),
		Hidden: b.IsHidden(),
		Dead:   b.IsDead(),
	}
	if a, ok := b.(*battle.ActorBattler); ok {
		s.Level = a.Level()
	}
	return s
}

// SnapshotParty snapshots every member of p in order.
func SnapshotParty(p *battle.Party) []BattlerSnapshot {
	out := make([]BattlerSnapshot, 0, p.Len())
	for _, m := range p.Members() {
		out = append(out, SnapshotBattler(m))
	}
	return out
}

// --- Concrete event types ---

type EventBattleStart struct {
	Allies  []BattlerSnapshot `json:"allies"`
	Enemies []BattlerSnapshot `json:"enemies"`
}

func (EventBattleStart) EventType() string { return "battle_start" }

type EventMessagePush struct {
	Text string `json:"text"`
	Line int    `json:"line"`
}

func (EventMessagePush) EventType() string { return "message_push" }

type EventMessagePop struct{}

func (EventMessagePop) EventType() string { return "message_pop" }

type EventMessageClear struct{}

func (EventMessageClear) EventType() string { return "message_clear" }

type EventSprite struct {
	Battler BattlerRef `json:"battler"`
	State   string     `json:"state"`
}

func (EventSprite) EventType() string { return "sprite" }

type EventFlash struct {
	Battler BattlerRef `json:"battler"`
	R       uint8      `json:"r"`
	G       uint8      `json:"g"`
	B       uint8      `json:"b"`
	A       uint8      `json:"a"`
	Frames  int        `json:"frames"`
}

func (EventFlash) EventType() string { return "flash" }

// Cue is an audio file reference. Path is empty when the file was not found.
type Cue struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Volume  int    `json:"volume"`
	Tempo   int    `json:"tempo"`
	Balance int    `json:"balance"`
}

type EventSound struct {
	Cue
}

func (EventSound) EventType() string { return "sound" }

type EventMusic struct {
	Cue
}

func (EventMusic) EventType() string { return "music" }

type EventAnimation struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Sheet  string      `json:"sheet"`
	Path   string      `json:"path,omitempty"`
	Frames int         `json:"frames"`
	Target *BattlerRef `json:"target,omitempty"` // nil: whole screen
}

func (EventAnimation) EventType() string { return "animation" }

type EventSceneState struct {
	State       string      `json:"state"`
	Turn        int         `json:"turn"`
	Cursor      int         `json:"cursor"`
	ActiveActor *BattlerRef `json:"active_actor,omitempty"`
}

func (EventSceneState) EventType() string { return "scene_state" }

type EventBattleEnd struct {
	Result string            `json:"result"`
	Turns  int               `json:"turns"`
	Exp    int               `json:"exp"`
	Gold   int               `json:"gold"`
	Items  []int             `json:"items"`
	Allies []BattlerSnapshot `json:"allies"`
}

func (EventBattleEnd) EventType() string { return "battle_end" }
