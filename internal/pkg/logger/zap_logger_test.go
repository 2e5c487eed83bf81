package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	l := NewIsolatedLogger(path)

	l.Info("LiveSession", "Session started", map[string]interface{}{"interview_id": "abc"})
	l.Warn("LiveSession", "Camera unavailable", nil)
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "Session started", first["message"])
	assert.Equal(t, "LiveSession", first["module"])
	assert.Equal(t, "abc", first["details"].(map[string]interface{})["interview_id"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "WARN", second["level"])
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("m", "debug", nil)
		l.Error("m", "boom", map[string]interface{}{"error": "x"})
		_ = l.Sync()
	})
}
