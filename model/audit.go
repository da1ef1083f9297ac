package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records upstream fetches, sync outcomes and admin actions.
type AuditLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID     string         `gorm:"index:idx_audit_trace;size:36;not null" json:"trace_id"`
	MemberID    string         `gorm:"index:idx_audit_member;size:64" json:"member_id"`
	CharacterID string         `gorm:"size:128" json:"character_id"`
	ServerID    int            `json:"server_id"`
	Action      string         `gorm:"size:64;not null" json:"action"`
	Request     datatypes.JSON `json:"request"`
	Response    datatypes.JSON `json:"response"`
	Error       string         `gorm:"type:text" json:"error"`
	IP          string         `gorm:"size:45" json:"ip"`
	DurationMs  int            `json:"duration_ms"`
	CreatedAt   time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
