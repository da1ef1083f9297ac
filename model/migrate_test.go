package model_test

import (
	"testing"
	"time"

	"github.com/chunxia/legion/model"
	"github.com/chunxia/legion/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Member
	m := &model.Member{ID: "m1", Name: "温禾", Role: model.RoleLeader, CharacterID: "abc=", ServerID: 1001}
	require.NoError(t, db.Create(m).Error)

	var found model.Member
	require.NoError(t, db.First(&found, "id = ?", "m1").Error)
	assert.Equal(t, "温禾", found.Name)
	assert.Equal(t, 1001, found.ServerID)

	// CharacterSnapshot
	snap := &model.CharacterSnapshot{
		MemberID:    m.ID,
		CharacterID: m.CharacterID,
		ServerID:    m.ServerID,
		FinalPower:  1416,
		AttackPower: datatypes.JSON(`{"finalPower":1416}`),
		SyncedAt:    time.Now(),
	}
	require.NoError(t, db.Create(snap).Error)
	assert.Greater(t, snap.ID, int64(0))

	var gotSnap model.CharacterSnapshot
	require.NoError(t, db.First(&gotSnap, "member_id = ?", "m1").Error)
	assert.JSONEq(t, `{"finalPower":1416}`, string(gotSnap.AttackPower))

	// AuditLog
	al := &model.AuditLog{
		TraceID: "trace-001", Action: "roster.sync", MemberID: "m1",
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(al).Error)
}

func TestSnapshot_MemberUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Create(&model.CharacterSnapshot{MemberID: "m1", CharacterID: "a"}).Error)
	assert.Error(t, db.Create(&model.CharacterSnapshot{MemberID: "m1", CharacterID: "b"}).Error)
}
