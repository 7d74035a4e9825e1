package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, "rpg2k", cfg.Battle.Engine)
	assert.Equal(t, 30, cfg.Battle.ActionWait)
	assert.Equal(t, 60, cfg.Battle.EscapeWait)
	assert.True(t, cfg.Battle.LegacySPDamageMessage)
	assert.Equal(t, 10*time.Minute, cfg.Battle.SessionTTL)
	assert.Equal(t, time.Hour, cfg.Database.MySQLMaxLife)
	assert.Equal(t, time.Hour, cfg.Data.AssetCacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
data:
  data_path: /srv/game/data
  rtp_paths:
    - /srv/rtp2000
battle:
  engine: rpg2k3
  action_wait: 10
  legacy_sp_damage_message: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/game/data", cfg.Data.DataPath)
	assert.Equal(t, []string{"/srv/rtp2000"}, cfg.Data.RTPPaths)
	assert.Equal(t, "rpg2k3", cfg.Battle.Engine)
	assert.Equal(t, 10, cfg.Battle.ActionWait)
	assert.False(t, cfg.Battle.LegacySPDamageMessage)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Battle.FPS)
	assert.Equal(t, 200000, cfg.Battle.MaxSimulationTicks)
	assert.Equal(t, 4, cfg.Script.VMPoolSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Script.Timeout)
	assert.Empty(t, cfg.Security.AllowedOrigins)
}
