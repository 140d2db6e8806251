package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New("warn", path)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("field_id", "A"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry), "exactly one JSON line is written")
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "A", entry["field_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud")
	require.Error(t, err)
}
