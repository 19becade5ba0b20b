package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/pkg/config"
)

func TestNew_SetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "production", LogLevel: "debug", LogFormat: "json"}, &buf)

	log.WithField("sector", "Tech").WithError(errors.New("boom")).Error("training failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "training failed", entry["message"])
	assert.Equal(t, "Tech", entry["sector"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "sectorcast", entry["service"])
	assert.Equal(t, "production", entry["env"])
}

func TestLogger_ComponentSubLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "info", LogFormat: "json"}, &buf)

	z := log.Zerolog().With().Str("component", "forecast.trainer").Logger()
	z.Info().Msg("trained")
	z.Debug().Msg("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug is below the configured level")
	assert.Contains(t, lines[0], `"component":"forecast.trainer"`)
}

func TestLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "info", LogFormat: "console"}, &buf)

	log.Infof("loaded %d sectors", 3)
	assert.Contains(t, buf.String(), "loaded 3 sectors")
	assert.False(t, json.Valid(buf.Bytes()))
}
