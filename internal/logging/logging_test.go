package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("info", "json", &buf)
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("rpc call", slog.String("procedure", "gym.listMembers"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "rpc call", entry["msg"])
		assert.Equal(t, "gym.listMembers", entry["procedure"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("debug", "text", &buf)
		require.NoError(t, err)
		logger.Debug("visible")
		assert.Contains(t, buf.String(), "msg=visible")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := New("info", "xml", &bytes.Buffer{})
		assert.Error(t, err)
	})
}
