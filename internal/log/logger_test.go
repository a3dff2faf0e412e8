package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/doctag/internal/apierr"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat("console"))
	assert.Equal(t, "json", FormatJSON.String())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatText, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestJSONOutputIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf, Component: "tui"})

	logger.Debug("mounted", "route", "browser")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "mounted", entry["msg"])
	assert.Equal(t, "tui", entry["component"])
	assert.Equal(t, "browser", entry["route"])
}

func TestWithError_APIError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})

	apiErr := apierr.FromStatus("http://localhost/api/projects/", 500, "", nil)
	apiErr.ID = "abc"
	logger.WithError(apiErr).Error("request failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Internal Server Error", entry["error"])
	assert.Equal(t, "transport", entry["error_kind"])
	assert.Equal(t, "error", entry["severity"])
	assert.EqualValues(t, 500, entry["status"])
	assert.Equal(t, "http://localhost/api/projects/", entry["url"])
	assert.Equal(t, "abc", entry["error_id"])
}

func TestWithError_PlainAndNil(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Format: FormatText, Output: &buf})

	assert.Same(t, logger, logger.WithError(nil))

	logger.LogError("failed", errors.New("boom"))
	assert.True(t, strings.Contains(buf.String(), "error=boom"))

	buf.Reset()
	logger.LogError("failed", nil)
	assert.Empty(t, buf.String())
}

func TestContextRoundTrip(t *testing.T) {
	logger := Nop()
	ctx := IntoContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestDefaultLogger(t *testing.T) {
	original := DefaultLogger()
	t.Cleanup(func() { SetDefaultLogger(original) })

	custom := Nop()
	SetDefaultLogger(custom)
	assert.Same(t, custom, DefaultLogger())
}

func TestEnabled(t *testing.T) {
	logger := New(Config{Level: LevelInfo, Output: &bytes.Buffer{}})
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}
