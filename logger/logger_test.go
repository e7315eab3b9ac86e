package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithOutput(&buf), WithService("cryptofence"), WithLevel(slog.LevelDebug))

	log.Debug("bucket configured", slog.String("key", "encrypt"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "cryptofence", record["service"])
	assert.Equal(t, "encrypt", record["key"])
	assert.Equal(t, "DEBUG", record["level"])
}

func TestNew_TextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithOutput(&buf), WithFormat(FormatText))

	log.Debug("hidden")
	log.Info("shown", Error(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "error=boom")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestError_NilIsEmpty(t *testing.T) {
	assert.True(t, Error(nil).Equal(slog.Attr{}))
}
