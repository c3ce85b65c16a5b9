package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/batchsync/internal/log"
)

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level   string
		format  string
		wantErr error
	}{
		"defaults":       {},
		"text debug":     {level: "debug", format: "text"},
		"logfmt warn":    {level: "warn", format: "logfmt"},
		"json info":      {level: "INFO", format: "json"},
		"invalid level":  {level: "loud", format: "text", wantErr: log.ErrInvalidLevel},
		"invalid format": {level: "info", format: "xml", wantErr: log.ErrInvalidFormat},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, tc.level, tc.format)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestJSONHandlerOutput(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h, err := log.CreateHandlerWithStrings(buf, "info", "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("batch drained", slog.Int64("sum", 15))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "batch drained", rec["msg"])
	assert.EqualValues(t, 15, rec["sum"])
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	l, err := log.SlogLevel("error")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, l)

	l, err = log.SlogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}

func TestLeveledHandler(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	inner, err := log.CreateHandlerWithStrings(buf, "debug", "logfmt")
	require.NoError(t, err)

	lv := new(slog.LevelVar)
	lv.Set(slog.LevelWarn)
	logger := slog.New(log.NewLeveled(inner, lv)).With(slog.String("component", "test"))

	logger.Info("quiet")
	assert.Empty(t, buf.String())

	lv.Set(slog.LevelDebug)
	logger.Debug("loud")
	assert.Contains(t, buf.String(), "loud")
	assert.Contains(t, buf.String(), "component=test")
}
