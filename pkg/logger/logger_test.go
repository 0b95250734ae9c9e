package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func restore(t *testing.T) {
	t.Helper()
	prev := Log
	t.Cleanup(func() { Log = prev })
}

func TestInit_InvalidLevel(t *testing.T) {
	restore(t)
	err := Init("loud", "json", "stderr")
	assert.Error(t, err)
}

func TestInit_JSONFile(t *testing.T) {
	restore(t)
	path := filepath.Join(t.TempDir(), "lawchat.log")

	require.NoError(t, Init("info", "json", path))
	Debug("dropped")
	Info("Ingestion started", zap.Int("sources", 5))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "Ingestion started", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 5, entry["sources"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestInit_BadPath(t *testing.T) {
	restore(t)
	err := Init("info", "console", filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}
