package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for input, expected := range tests {
		assert.Equal(t, expected, ParseLevel(input), input)
	}
}

func TestWithModule(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var out bytes.Buffer

	SetupWriter(&out, "warn")

	WithModule("api").Info("hidden")
	WithModule("api").Warn("shown", "draft_id", 3)

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "module=api")
	assert.Contains(t, out.String(), "draft_id=3")
}
