package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
timezone: Europe/Berlin
log_format: yaml
default_owner: me
cache:
  enabled: true
  ttl: 2m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "text", cfg.LogFormat, "unknown formats fall back to text")
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "me", cfg.DefaultOwner)
	assert.Equal(t, "X-User-ID", cfg.OwnerHeader)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 62*24*time.Hour, cfg.MaxWindow())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("listen: [unterminated"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	zone := filepath.Join(dir, "zone.yaml")
	require.NoError(t, os.WriteFile(zone, []byte("timezone: Mars/Olympus\n"), 0o600))
	_, err = Load(zone)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Users = map[string]string{"alice": "pw"}
	cfg.MaxWindowDays = 31
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	assert.Error(t, Save(path, nil))
}
