package model

import (
	"strings"
	"time"
)

// Member roles.
const (
	RoleLeader = "leader"
	RoleElite  = "elite"
	RoleMember = "member"
)

// Member is one legion member and the game character it is tracked by.
type Member struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Role        string    `gorm:"size:16;default:member" json:"role"`
	CharacterID string    `gorm:"size:128" json:"characterId"`
	ServerID    int       `json:"serverId"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Member validation messages shown to admins.
const (
	MsgCharacterMissing    = "未配置角色信息"
	MsgCharacterIncomplete = "角色配置不完整"
)

// CharacterError returns "" when the member can be synced, otherwise the
// message explaining what is missing.
func (m *Member) CharacterError() string {
	hasChar := strings.TrimSpace(m.CharacterID) != ""
	hasServer := m.ServerID != 0
	switch {
	case hasChar && hasServer:
		return ""
	case !hasChar && !hasServer:
		return MsgCharacterMissing
	default:
		return MsgCharacterIncomplete
	}
}
