package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Setenv("DEBUG", "")
	require.NoError(t, os.Unsetenv("DEBUG"))

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestParseLevel_DebugEnv(t *testing.T) {
	t.Setenv("DEBUG", "1")
	assert.Equal(t, zerolog.DebugLevel, parseLevel("error"))
}

func TestInitFileOnly(t *testing.T) {
	t.Cleanup(func() {
		Close()
		Init("info")
	})

	path := filepath.Join(t.TempDir(), "logs", "test.log")
	got, err := InitFileOnly(path, "info")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	Store.Info().Str("action", "setActiveAccount").Msg("State updated")
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "store", entry["component"])
	assert.Equal(t, "setActiveAccount", entry["action"])
	assert.Equal(t, "State updated", entry["message"])
}

func TestSetOutput(t *testing.T) {
	t.Cleanup(func() { Init("info") })

	var buf bytes.Buffer
	Logger = NewJSONLogger(&buf, "debug")
	initComponentLoggers()

	Watcher.Debug().Msg("tick")
	assert.Contains(t, buf.String(), `"component":"watcher"`)

	var other bytes.Buffer
	SetOutput(&other)
	Server.Info().Msg("listening")
	assert.Contains(t, other.String(), `"component":"server"`)
	assert.NotContains(t, buf.String(), "listening")
}
