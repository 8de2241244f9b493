package poller_config

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
	path := filepath.Join(t.TempDir(), "poller.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "push:\n  project_id: memmy\n"))
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Poller.SupervisorTick)
	assert.Equal(t, 100*time.Millisecond, cfg.Poller.MinInterval)
	assert.Equal(t, 60*time.Second, cfg.Poller.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.Lemmy.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Push.Timeout)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
	assert.Equal(t, "com.gkasdorf.memmyapp", cfg.Push.Topic)
	assert.Equal(t, "ping.aiff", cfg.Push.Sound)
	assert.Equal(t, 1, cfg.Push.Badge)
	assert.Equal(t, "replypush.reply.notified", cfg.Kafka.Topic)
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
poller:
  min_interval: 250ms
  check_interval: 5m
push:
  dry_run: true
`))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Poller.MinInterval)
	assert.Equal(t, 5*time.Minute, cfg.Poller.CheckInterval)
	assert.True(t, cfg.Push.DryRun)
}

func TestLoad_Validation(t *testing.T) {
	_, err := Load(writeConfig(t, "push:\n  dry_run: true\npoller:\n  min_interval: 0s\n"))
	assert.ErrorContains(t, err, "min_interval")

	_, err = Load(writeConfig(t, "log:\n  level: debug\n"))
	assert.ErrorContains(t, err, "project_id")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
