package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLevel(tc.in))
		})
	}
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "pp-structure",
	})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.WithContext(ctx).WithComponent("engine").Info().
		Str("lang", "en").
		Int("elements", 3).
		Msg("Processing complete")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "pp-structure", line["service"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "en", line["lang"])
	assert.Equal(t, float64(3), line["elements"])
	assert.Equal(t, "Processing complete", line["message"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithRequestID_Empty(t *testing.T) {
	logger := Nop()
	assert.Same(t, logger, logger.WithRequestID(""))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
