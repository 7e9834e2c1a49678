package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Format: "json", Service: "mood-mate", Output: &buf})

	log.Info("message classified", SessionIDField("session-1"), MoodField("happy"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "message classified", entries[0]["msg"])
	assert.Equal(t, "mood-mate", entries[0]["service"])
	assert.Equal(t, "session-1", entries[0]["session_id"])
	assert.Equal(t, "happy", entries[0]["mood"])
	assert.Equal(t, "info", entries[0]["level"])
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: WarnLevel, Output: &buf})

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestWithFieldsIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Output: &buf})

	child := base.WithFields(StringField("component", "session_store"))
	assert.NotSame(t, base, child)

	base.Info("from base")
	child.WithCorrelationID("abc").Info("from child")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "component")
	assert.Equal(t, "session_store", entries[1]["component"])
	assert.Equal(t, "abc", entries[1][CorrelationIDFieldKey])
}

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name     string
		field    LogField
		expected LogField
	}{
		{"StringField", StringField("k", "v"), LogField{Key: "k", Value: "v"}},
		{"IntField", IntField("count", 42), LogField{Key: "count", Value: "42"}},
		{"Int64Field", Int64Field("big", 1 << 40), LogField{Key: "big", Value: "1099511627776"}},
		{"BoolField", BoolField("ok", true), LogField{Key: "ok", Value: "true"}},
		{"DurationField", DurationField("duration", 5*time.Second), LogField{Key: "duration", Value: "5s"}},
		{"ErrorField", ErrorField(errors.New("boom")), LogField{Key: "error", Value: "boom"}},
		{"nil ErrorField", ErrorField(nil), LogField{Key: "error", Value: "<nil>"}},
		{"SessionIDField", SessionIDField("session-x"), LogField{Key: "session_id", Value: "session-x"}},
		{"MoodField", MoodField("sad"), LogField{Key: "mood", Value: "sad"}},
		{"HTTPStatusField", HTTPStatusField(404), LogField{Key: "http_status", Value: "404"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.field)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, "warn", WarnLevel.String())
}

func TestEnsureCorrelationID(t *testing.T) {
	t.Run("keeps existing context value", func(t *testing.T) {
		ctx := WithCorrelationIDContext(context.Background(), "existing")
		_, id := EnsureCorrelationID(ctx)
		assert.Equal(t, "existing", id)
	})

	t.Run("uses valid metadata value", func(t *testing.T) {
		want := uuid.New().String()
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(CorrelationIDMetadataKey, want))
		ctx, id := EnsureCorrelationID(ctx)
		assert.Equal(t, want, id)
		assert.Equal(t, want, GetCorrelationIDFromContext(ctx))
	})

	t.Run("replaces invalid metadata value", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(CorrelationIDMetadataKey, "nope"))
		_, id := EnsureCorrelationID(ctx)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})
}

func TestGrpcRequestsInterceptor(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: DebugLevel, Output: &buf})
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := log.GrpcRequestsInterceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		assert.NotEmpty(t, GetCorrelationIDFromContext(ctx))
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = log.GrpcRequestsInterceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "gRPC request completed with error")
	assert.Contains(t, out, "Unavailable")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Output: &buf})

	FromContext(WithCorrelationIDContext(context.Background(), "cid-1"), base).Info("with id")
	FromContext(context.Background(), base).Info("without id")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "cid-1", entries[0][CorrelationIDFieldKey])
	assert.NotContains(t, entries[1], CorrelationIDFieldKey)
}
