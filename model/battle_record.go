package model

import (
	"time"

	"gorm.io/datatypes"
)

// Battle outcomes as stored.
const (
	OutcomeVictory = "victory"
	OutcomeDefeat  = "defeat"
	OutcomeEscape  = "escape"
	OutcomeAbort   = "abort"
)

// Where a battle ran.
const (
	SourceSimulation = "simulation"
	SourceSession    = "session"
)

// BattleRecord is one finished battle.
type BattleRecord struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"-"`
	BattleID    string         `gorm:"uniqueIndex:idx_battle_id;size:36;not null" json:"battle_id"`
	TraceID     string         `gorm:"size:36" json:"trace_id,omitempty"`
	Source      string         `gorm:"size:16;not null" json:"source"`
	TroopID     int            `gorm:"index:idx_battle_troop" json:"troop_id"`
	ActorIDs    datatypes.JSON `json:"actor_ids"`
	Seed        int64          `json:"seed"`
	Engine      string         `gorm:"size:8" json:"engine"`
	Outcome     string         `gorm:"size:16;not null;index:idx_battle_outcome" json:"outcome"`
	Turns       int            `json:"turns"`
	Ticks       int            `json:"ticks"`
	EscapeFails int            `json:"escape_fails"`
	Exp         int            `json:"exp"`
	Gold        int            `json:"gold"`
	Drops       datatypes.JSON `json:"drops"`
	Transcript  datatypes.JSON `json:"transcript"`
	CreatedAt   time.Time      `gorm:"index:idx_battle_created;autoCreateTime:milli" json:"created_at"`
}
