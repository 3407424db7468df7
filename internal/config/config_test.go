package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	assert.Equal(t, "http://localhost:5000", cfg.Server)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "state.db", filepath.Base(cfg.StatePath))
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultClientConfig().Server, cfg.Server)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server: http://logs.example.org\ncontest_server: http://contest.example.org\ntimeout: 5s\nrate_limit: 2.5\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("LOGSHACK_LOG_LEVEL", "debug")
	t.Setenv("LOGSHACK_SERVER", "http://override.example.org")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override.example.org", cfg.Server, "environment wins over file")
	assert.Equal(t, "http://contest.example.org", cfg.ContestBase())
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestContestBase_FallsBackToServer(t *testing.T) {
	cfg := ClientConfig{Server: "http://a"}
	assert.Equal(t, "http://a", cfg.ContestBase())
}

func TestValidate(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.Server = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultClientConfig()
	cfg.RateLimit = -1
	assert.Error(t, cfg.Validate())
}
