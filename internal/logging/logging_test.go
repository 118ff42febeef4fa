package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/junzzhu/openshift-mcp-server/internal/config"
)

func TestBuildJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := Build(config.LoggingConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("tool completed", zap.String("tool", "get_storage_usage"), zap.Int("sections", 3))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug is below the level")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "tool completed", entry["message"])
	assert.Equal(t, "get_storage_usage", entry["tool"])
	assert.EqualValues(t, 3, entry["sections"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "caller")
}

func TestBuildConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := Build(config.LoggingConfig{Level: "debug", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log.Debug("running cluster command")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "running cluster command")
}

func TestBuildRejectsLevel(t *testing.T) {
	_, err := Build(config.LoggingConfig{Level: "verbose"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "server.log")
	log, sync, err := New(config.LoggingConfig{Level: "info", Format: "json", File: file, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)
	log.Info("serving MCP over stdio")
	sync()
	assert.FileExists(t, file)
}
