package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  admin_key: secret\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.AdminKey)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 8*time.Hour, cfg.Cache.CharacterTTL)
	assert.Equal(t, 4*time.Hour, cfg.Cache.CompareTTL)
	assert.Equal(t, "https://tw.ncsoft.com/aion2/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "lastWrite", cfg.Daevanion.FlagPolicy)
	assert.Equal(t, 500*time.Millisecond, cfg.Roster.MemberDelay)
	assert.Equal(t, 12*time.Hour, cfg.Security.SessionTTL)
	assert.Empty(t, cfg.Security.JWTSecret)
}

func TestLoad_Members(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
roster:
  sync_interval: 1h
  members:
    - id: m1
      name: 温禾
      role: leader
      character_id: "abc="
      server_id: 1001
    - id: m2
      name: 新人
power:
  daevanion_flat: ["额外攻击力"]
`))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Roster.SyncInterval)
	require.Len(t, cfg.Roster.Members, 2)
	assert.Equal(t, "abc=", cfg.Roster.Members[0].CharacterID)
	assert.Equal(t, 1001, cfg.Roster.Members[0].ServerID)
	assert.Empty(t, cfg.Roster.Members[1].CharacterID)
	assert.Equal(t, []string{"额外攻击力"}, cfg.Power.DaevanionFlat)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LEGION_SERVER_PORT", "9090")
	t.Setenv("LEGION_CACHE_REDIS_ADDR", "redis:6379")
	cfg, err := Load(writeConfig(t, "server:\n  port: 8081\n"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6*time.Hour, cfg.Roster.SyncInterval)
}
