package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-12345")
	assert.Equal(t, "req-12345", RequestIDFromContext(ctx))
}

func TestFromContext_AttachesIDs(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "info")

	ctx := WithJobID(WithRequestID(context.Background(), "req-1"), "job-9")
	FromContext(ctx, base).Info("rendering")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "job-9", entry["job_id"])
	assert.Equal(t, "rendering", entry["msg"])
}

func TestFromContext_NilBase(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background(), nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")
	log.Info("hidden")
	assert.Zero(t, buf.Len())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
