package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	api, err := cfg.GetAPI()
	require.NoError(t, err)
	assert.Equal(t, APIConfig{BaseURL: "http://localhost:8000", Timeout: 0}, api)

	poller, err := cfg.GetPoller()
	require.NoError(t, err)
	assert.Equal(t, PollerConfig{Enabled: true, Interval: 20 * time.Second}, poller)

	durable, err := cfg.GetDurableStore()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", durable.Type)
	assert.Zero(t, durable.TTL)

	session, err := cfg.GetSessionStore()
	require.NoError(t, err)
	assert.Equal(t, "memory", session.Type)
	assert.Equal(t, 30*time.Minute, session.TTL)
	assert.Equal(t, 5*time.Minute, session.CleanupFrequency)

	intake, err := cfg.GetIntake()
	require.NoError(t, err)
	assert.False(t, intake.Enabled)
	assert.Empty(t, intake.AllowedDomains)
	assert.Equal(t, 10*time.Second, intake.ScanTimeout)

	assert.Equal(t, ":8080", cfg.GetServer().ListenAddress)
	assert.Equal(t, LoggingConfig{Level: "info", Format: "json"}, cfg.GetLogging())
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: http://classifier:9000/
poller:
  interval: 45s
  enabled: false
intake:
  enabled: true
  allowed_domains:
    - example.com
    - corp.test
`), 0o600))

	t.Setenv("SPAM_DASH_API_TIMEOUT", "5s")
	t.Setenv("SPAM_DASH_SERVER_LISTEN_ADDRESS", "127.0.0.1:9999")

	cfg, err := New(path)
	require.NoError(t, err)

	api, err := cfg.GetAPI()
	require.NoError(t, err)
	assert.Equal(t, "http://classifier:9000/", api.BaseURL)
	assert.Equal(t, 5*time.Second, api.Timeout)

	poller, err := cfg.GetPoller()
	require.NoError(t, err)
	assert.Equal(t, PollerConfig{Enabled: false, Interval: 45 * time.Second}, poller)

	intake, err := cfg.GetIntake()
	require.NoError(t, err)
	assert.True(t, intake.Enabled)
	assert.Equal(t, []string{"example.com", "corp.test"}, intake.AllowedDomains)

	assert.Equal(t, "127.0.0.1:9999", cfg.GetServer().ListenAddress)
}

func TestExplicitMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("poller.interval", "soon")

	_, err := cfg.GetPoller()
	assert.Error(t, err)

	cfg.Set("poller.interval", "-5s")
	_, err = cfg.GetPoller()
	assert.Error(t, err)
}
