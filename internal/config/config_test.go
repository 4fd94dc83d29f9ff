package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "./redis.sock", cfg.Redis.Addr)
	assert.Equal(t, 9600, cfg.Serial.Options.BaudRate)
	assert.Equal(t, "lapbridge.log", cfg.LogFile)
	assert.NotEmpty(t, cfg.Serial.Device)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lapbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
redis:
  addr: "127.0.0.1:6379"
serial:
  device: /dev/ttyACM3
  options:
    baud_rate: 19200
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, "/dev/ttyACM3", cfg.Serial.Device)
	assert.Equal(t, 19200, cfg.Serial.Options.BaudRate)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, "lapbridge.log", cfg.LogFile)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
