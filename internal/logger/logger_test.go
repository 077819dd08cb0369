// internal/logger/logger_test.go
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "hub").Infof("client %s joined", "bob")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "hub", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "client bob joined", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "server")
	base.WithFields(map[string]interface{}{"addr": "localhost:2024", "clients": 2}).
		WithError(errors.New("boom")).
		Warn("degraded")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "localhost:2024", entry["addr"])
	assert.EqualValues(t, 2, entry["clients"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "warn", entry["level"])

	buf.Reset()
	base.WithField("room", "dev").Error("x")
	entry = decodeLine(t, &buf)
	assert.Equal(t, "dev", entry["room"])
	assert.NotContains(t, entry, "addr", "fields do not leak into the parent logger")
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.WithField("k", "v").Info("nothing")
		l.Errorf("still %s", "nothing")
	})
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.False(t, cfg.LogToFile)
	assert.False(t, cfg.DisableConsole)
	assert.Equal(t, "neonchat.log", cfg.FilePath)
}

func TestInitLoggerDisabledConsole(t *testing.T) {
	assert.NotPanics(t, func() {
		InitLogger(LogConfig{Level: "not-a-level", DisableConsole: true})
		NewLogger("client").Info("discarded")
	})
}
