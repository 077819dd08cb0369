// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "neonchat.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("NATS_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "ws://localhost:2024", cfg.Client.ServerURL)
	assert.Equal(t, 5, cfg.History.Lines)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("NATS_URL", "")
	path := writeConfig(t, `{
		"client": {"server_url": "ws://chat.example:9000"},
		"history": {"lines": 20},
		"log": {"level": "debug", "log_to_file": true, "file_path": "client.log"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://chat.example:9000", cfg.Client.ServerURL)
	assert.Equal(t, 20, cfg.History.Lines)
	assert.Equal(t, "chat_logs", cfg.History.Dir, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.LogToFile)
	assert.Equal(t, 10, cfg.Log.MaxSize)
	assert.Equal(t, nats.DefaultURL, cfg.Server.NatsURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NATS_URL", "nats://broker:4222")
	path := writeConfig(t, `{"server": {"nats_url": "nats://file:4222"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://broker:4222", cfg.Server.NatsURL)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, `{"client": `))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"history": {"lines": -1}}`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"server": {"addr": ""}}`))
	assert.Error(t, err)
}
