package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orderdesk/internal/config"
	"orderdesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		desc    string
		input   string
		want    logger.Level
		wantErr bool
	}{
		{desc: "Debug", input: "debug", want: logger.DebugLevel},
		{desc: "EmptyIsInfo", input: "", want: logger.InfoLevel},
		{desc: "MixedCase", input: " WARN ", want: logger.WarnLevel},
		{desc: "Error", input: "error", want: logger.ErrorLevel},
		{desc: "Unknown", input: "verbose", want: logger.InfoLevel, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := logger.ParseLevel(tc.input)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func newFileLogger(t *testing.T, level string) (*logger.Adapter, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "orderdesk.log")
	cfg := &config.Config{Env: "local"}
	cfg.App.Name = "orderdesk"
	cfg.App.Version = "test"
	cfg.Logger.Level = level
	cfg.Logger.Filename = path

	log, err := logger.NewAdapter(cfg)
	require.NoError(t, err)

	return log, path
}

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestAdapter_LogAttrsWithRequestID(t *testing.T) {
	log, path := newFileLogger(t, "info")

	ctx := log.WithRequestID(context.Background(), "req-42")
	log.Ctx(ctx).LogAttrs(ctx, logger.InfoLevel, "order created successfully",
		logger.String("op", "service.CreateOrder"),
		logger.Err(errors.New("boom")),
	)
	log.LogAttrs(ctx, logger.DebugLevel, "filtered out")
	_ = log.Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "order created successfully", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "service.CreateOrder", entry["op"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "orderdesk", entry["service"])
}

func TestAdapter_Level(t *testing.T) {
	log, _ := newFileLogger(t, "warn")

	assert.Equal(t, logger.WarnLevel, log.Level())
	assert.Equal(t, logger.WarnLevel, log.With("component", "test").(*logger.Adapter).Level())
}

func TestNewAdapter_BadLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logger.Level = "loud"

	_, err := logger.NewAdapter(cfg)
	require.Error(t, err)
}

func TestContextWith(t *testing.T) {
	log, path := newFileLogger(t, "info")

	ctx := logger.ContextWith(context.Background(), logger.String("topic", "orders"))
	ctx = logger.ContextWith(ctx, logger.Int64("offset", 7))
	ctx = log.WithRequestID(ctx, "req-7")

	bound := log.Ctx(ctx)
	bound.Infow("processing kafka message")
	bound.LogAttrs(ctx, logger.WarnLevel, "message processing failed")
	log.Infow("no context")
	_ = log.Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 3)

	for _, entry := range entries[:2] {
		assert.Equal(t, "orders", entry["topic"])
		assert.InDelta(t, 7, entry["offset"], 0)
		assert.Equal(t, "req-7", entry["request_id"])
	}
	assert.NotContains(t, entries[2], "topic")
	assert.Same(t, bound, bound.Ctx(ctx))
}

func TestNewAdapter_Options(t *testing.T) {
	cfg := &config.Config{Env: "local"}
	cfg.Logger.Level = "info"

	var console bytes.Buffer
	log, err := logger.NewAdapter(cfg,
		logger.Filename(""),
		logger.Console(&console),
		logger.MinLevel(logger.ErrorLevel),
	)
	require.NoError(t, err)

	log.Warnw("dropped")
	log.Errorw("kept", "order_id", "42")
	_ = log.Sync()

	out := console.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"order_id":"42"`)
	assert.Equal(t, logger.ErrorLevel, log.Level())
}

func TestNewAdapter_InvalidRotation(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logger.Filename = filepath.Join(t.TempDir(), "x.log")

	_, err := logger.NewAdapter(cfg, logger.Rotation(0, -1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxSize")
	assert.Contains(t, err.Error(), "maxBackups")
	assert.Contains(t, err.Error(), "maxAge")
}
