package model

import (
	"time"

	"gorm.io/datatypes"
)

// CharacterSnapshot is the last synced state of a member's character.
// Info, Equipment, Daevanion and AttackPower hold the JSON payloads as served.
type CharacterSnapshot struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID      string         `gorm:"uniqueIndex;size:64;not null" json:"memberId"`
	CharacterID   string         `gorm:"index:idx_snapshot_char;size:128;not null" json:"characterId"`
	ServerID      int            `gorm:"index:idx_snapshot_char" json:"serverId"`
	CharacterName string         `gorm:"size:64" json:"characterName"`
	ClassName     string         `gorm:"size:32" json:"className"`
	Level         int            `json:"level"`
	ItemLevel     float64        `json:"itemLevel"`
	FinalPower    int64          `gorm:"index:idx_snapshot_power" json:"finalPower"`
	Info          datatypes.JSON `json:"info"`
	Equipment     datatypes.JSON `json:"equipment"`
	Daevanion     datatypes.JSON `json:"daevanion"`
	AttackPower   datatypes.JSON `json:"attackPower"`
	SyncRunID     string         `gorm:"size:36" json:"syncRunId"`
	SyncedAt      time.Time      `json:"syncedAt"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}
