package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Run("known levels", func(t *testing.T) {
		cases := map[string]slog.Level{
			"error":   slog.LevelError,
			"WARN":    slog.LevelWarn,
			"warning": slog.LevelWarn,
			"info":    slog.LevelInfo,
			"":        slog.LevelInfo,
			"Debug":   slog.LevelDebug,
		}
		for in, want := range cases {
			got, err := ParseLevel(in)
			require.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := ParseLevel("verbose")
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	t.Run("json format uses timestamp key", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "info", "json")
		logger.Info("hello", "component", "test")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Contains(t, entry, "timestamp")
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "test", entry["component"])
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "warn", "text")
		logger.Info("dropped")
		logger.Warn("kept")
		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "nope", "text")
		logger.Debug("dropped")
		logger.Info("kept")
		lines := strings.TrimSpace(buf.String())
		assert.NotContains(t, lines, "dropped")
		assert.Contains(t, lines, "kept")
	})
}
