// Package logger wraps logrus behind a small structured logging interface.
package logger

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// CorrelationIDHeader is the HTTP header carrying the request correlation ID
	CorrelationIDHeader = "X-Correlation-ID"
	// CorrelationIDMetadataKey is the key used for correlation ID in gRPC metadata
	CorrelationIDMetadataKey = "x-correlation-id"
	// CorrelationIDFieldKey is the field key used for correlation ID in log entries
	CorrelationIDFieldKey = "correlation_id"
)

type contextKey string

const correlationIDContextKey contextKey = "correlation_id"

// LogField represents a structured log field
type LogField struct {
	Key   string
	Value string
}

// Logger is the logging interface used across the service
type Logger interface {
	Info(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
	Debug(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	WithFields(fields ...LogField) Logger
	WithCorrelationID(id string) Logger
	GrpcRequestsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error)
}

// Config represents logger configuration
type Config struct {
	Level   Level
	Format  string    // "json" (default) or "text"
	Service string    // added to every entry as "service" when set
	Output  io.Writer // defaults to os.Stdout
}

type logger struct {
	logrus *logrus.Logger
	fields []LogField
}

// NewLogger creates a new logger instance with the given configuration
func NewLogger(config Config) Logger {
	l := logrus.New()

	if config.Format == "text" {
		l.SetFormatter(&logrus.TextFormatter{})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	if config.Output != nil {
		l.SetOutput(config.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	l.SetLevel(config.Level.logrusLevel())

	var fields []LogField
	if config.Service != "" {
		fields = []LogField{{Key: "service", Value: config.Service}}
	}

	return &logger{logrus: l, fields: fields}
}

// NewNopLogger returns a logger that discards everything. Handy in tests.
func NewNopLogger() Logger {
	return NewLogger(Config{Level: ErrorLevel, Output: io.Discard})
}

// WithFields returns a new logger with additional fields. The receiver is not modified.
func (l *logger) WithFields(fields ...LogField) Logger {
	merged := make([]LogField, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &logger{logrus: l.logrus, fields: merged}
}

// WithCorrelationID returns a new logger with correlation ID field
func (l *logger) WithCorrelationID(id string) Logger {
	return l.WithFields(CorrelationIDField(id))
}

func (l *logger) Info(msg string, fields ...LogField) {
	l.entry(fields).Info(msg)
}

func (l *logger) Error(msg string, fields ...LogField) {
	l.entry(fields).Error(msg)
}

func (l *logger) Debug(msg string, fields ...LogField) {
	l.entry(fields).Debug(msg)
}

func (l *logger) Warn(msg string, fields ...LogField) {
	l.entry(fields).Warn(msg)
}

func (l *logger) entry(extra []LogField) *logrus.Entry {
	f := make(logrus.Fields, len(l.fields)+len(extra))
	for _, field := range l.fields {
		f[field.Key] = field.Value
	}
	for _, field := range extra {
		f[field.Key] = field.Value
	}
	return l.logrus.WithFields(f)
}

// StringField returns a LogField for a string value.
func StringField(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// IntField returns a LogField for an integer value.
func IntField(key string, value int) LogField {
	return LogField{Key: key, Value: strconv.Itoa(value)}
}

// Int64Field returns a LogField for an int64 value.
func Int64Field(key string, value int64) LogField {
	return LogField{Key: key, Value: strconv.FormatInt(value, 10)}
}

// BoolField returns a LogField for a boolean value.
func BoolField(key string, value bool) LogField {
	return LogField{Key: key, Value: strconv.FormatBool(value)}
}

// DurationField returns a LogField for a time.Duration value.
func DurationField(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}

// TimeField returns a LogField for a time.Time value formatted as RFC3339.
func TimeField(key string, value time.Time) LogField {
	return LogField{Key: key, Value: value.Format(time.RFC3339)}
}

// ErrorField returns a LogField for an error value.
func ErrorField(err error) LogField {
	if err == nil {
		return LogField{Key: "error", Value: "<nil>"}
	}
	return LogField{Key: "error", Value: err.Error()}
}

// CorrelationIDField returns a LogField for a correlation ID.
func CorrelationIDField(id string) LogField {
	return StringField(CorrelationIDFieldKey, id)
}

// SessionIDField returns a LogField for a chat session ID.
func SessionIDField(id string) LogField {
	return StringField("session_id", id)
}

// MoodField returns a LogField for a detected mood.
func MoodField(mood string) LogField {
	return StringField("mood", mood)
}

// HTTPMethodField returns a LogField for an HTTP method.
func HTTPMethodField(method string) LogField {
	return StringField("http_method", method)
}

// HTTPPathField returns a LogField for an HTTP path.
func HTTPPathField(path string) LogField {
	return StringField("http_path", path)
}

// HTTPStatusField returns a LogField for an HTTP status code.
func HTTPStatusField(code int) LogField {
	return IntField("http_status", code)
}

// ClientIPField returns a LogField for a client IP address.
func ClientIPField(ip string) LogField {
	return StringField("client_ip", ip)
}

// GrpcRequestsInterceptor logs unary gRPC calls.
// Note: interface{} usage required by gRPC library signature
func (l *logger) GrpcRequestsInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	ctx, correlationID := EnsureCorrelationID(ctx)

	reqLogger := l.WithFields(
		StringField("grpc_method", info.FullMethod),
		CorrelationIDField(correlationID),
	)
	reqLogger.Debug("gRPC request started")

	resp, err := handler(ctx, req)

	fields := []LogField{
		DurationField("duration", time.Since(start)),
		StringField("grpc_code", status.Code(err).String()),
	}
	if err != nil {
		reqLogger.Error("gRPC request completed with error", append(fields, ErrorField(err))...)
	} else {
		reqLogger.Debug("gRPC request completed", fields...)
	}
	return resp, err
}

// WithCorrelationIDContext adds correlation ID to context
func WithCorrelationIDContext(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey, correlationID)
}

// GetCorrelationIDFromContext retrieves correlation ID from context
func GetCorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDContextKey).(string); ok {
		return id
	}
	return ""
}

// EnsureCorrelationID returns a context carrying a correlation ID. An ID already in the
// context wins, then a valid UUID from incoming gRPC metadata, else a fresh one.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := GetCorrelationIDFromContext(ctx); id != "" {
		return ctx, id
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(CorrelationIDMetadataKey); len(values) > 0 {
			if _, err := uuid.Parse(values[0]); err == nil {
				return WithCorrelationIDContext(ctx, values[0]), values[0]
			}
		}
	}

	id := uuid.New().String()
	return WithCorrelationIDContext(ctx, id), id
}

// FromContext returns baseLogger enriched with the correlation ID stored in ctx, if any
func FromContext(ctx context.Context, baseLogger Logger) Logger {
	if id := GetCorrelationIDFromContext(ctx); id != "" {
		return baseLogger.WithCorrelationID(id)
	}
	return baseLogger
}
