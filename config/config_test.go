package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/quakerelay/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "quakerelay.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validINI = `
[service]
name = quakerelay-test
log_level = debug

[upstream]
address = import.example.com:443
reconnect_schedule = 0s,5s,15s

[downstream]
address = :9090
workers = 4
queue_size = 128

[sanitizer]
max_expired_time = 5m
duplicate_buffer_size = 64
`

func TestLoadParsesAllSections(t *testing.T) {
	path := writeConfig(t, validINI)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quakerelay-test", cfg.Service.Name)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, "import.example.com:443", cfg.Upstream.Address)
	assert.Equal(t, []time.Duration{0, 5 * time.Second, 15 * time.Second}, cfg.Upstream.ReconnectSchedule)
	assert.Equal(t, 4, cfg.Downstream.Workers)
	assert.Equal(t, 128, cfg.Downstream.QueueSize)
	assert.Equal(t, 5*time.Minute, cfg.Sanitizer.MaxExpiredTime)
	assert.Equal(t, 64, cfg.Sanitizer.DuplicateBufferSize)
	assert.False(t, cfg.Mirror.Enabled)
	assert.False(t, cfg.Bridge.Enabled)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[upstream]
address = import.example.com:443

[sanitizer]
duplicate_buffer_size = 32
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quakerelay", cfg.Service.Name)
	assert.Equal(t, ":9090", cfg.Downstream.Address)
	assert.Equal(t, 8, cfg.Downstream.Workers)
	assert.Equal(t, 256, cfg.Downstream.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Downstream.CallTimeout)
}

func TestLoadRejectsMissingUpstreamAddress(t *testing.T) {
	path := writeConfig(t, `
[sanitizer]
duplicate_buffer_size = 32
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestLoadRejectsConflictingDuplicateWindowSettings(t *testing.T) {
	path := writeConfig(t, `
[upstream]
address = import.example.com:443

[sanitizer]
duplicate_buffer_size = 32
duplicate_buffer_duration = 10s
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingDuplicateWindowSettings(t *testing.T) {
	path := writeConfig(t, `
[upstream]
address = import.example.com:443
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNegativeReconnectEntry(t *testing.T) {
	path := writeConfig(t, `
[upstream]
address = import.example.com:443
reconnect_schedule = 0s,-5s

[sanitizer]
duplicate_buffer_size = 32
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	require.Error(t, err)
}

func TestLoadRejectsDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestLoadEnablesMirrorSection(t *testing.T) {
	path := writeConfig(t, `
[upstream]
address = import.example.com:443

[sanitizer]
duplicate_buffer_size = 32

[mirror]
enabled = true
nats_url = nats://127.0.0.1:4222
subject_prefix = packets.sanitized
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Mirror.Enabled)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Mirror.NATSURL)
}

func TestLoadRejectsMirrorEnabledWithoutURL(t *testing.T) {
	path := writeConfig(t, `
[upstream]
address = import.example.com:443

[sanitizer]
duplicate_buffer_size = 32

[mirror]
enabled = true
nats_url =
`)

	_, err := Load(path)
	require.Error(t, err)
}
