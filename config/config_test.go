package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database: data/circulation.db
log:
  level: debug
  file: circulation.log
http:
  addr: 127.0.0.1:9000
  mode: dev
  allow_origins:
    - http://localhost:3000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/circulation.db", cfg.Database)
	assert.Equal(t, "outbox.db", cfg.Outbox, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "circulation.log", cfg.Log.File)
	assert.Equal(t, "dev", cfg.HTTP.Mode)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowOrigins)
	assert.Equal(t, 10, cfg.Reports.PopularLimit)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":   "database: [",
		"mode":       "http:\n  mode: staging\n",
		"level":      "log:\n  level: verbose\n",
		"empty path": "database: \"\"\n",
		"limit":      "reports:\n  popular_limit: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
