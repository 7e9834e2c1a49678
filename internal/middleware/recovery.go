// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/lewisedginton/mood_mate/pkg/logger"
)

// RecoveryConfig holds configuration for the recovery middleware
type RecoveryConfig struct {
	Logger              logger.Logger
	EnableStackTrace    bool   // Whether to log full stack traces
	ResponseMessage     string // Body returned to clients
	ResponseContentType string // Content type for error responses
}

// DefaultRecoveryConfig returns the configuration used by the API: the generic
// error body every unexpected failure maps to.
func DefaultRecoveryConfig(log logger.Logger) RecoveryConfig {
	return RecoveryConfig{
		Logger:              log,
		EnableStackTrace:    true,
		ResponseMessage:     `{"error":"Something went wrong!"}`,
		ResponseContentType: "application/json",
	}
}

// Recovery returns a middleware that recovers from panics and logs them
func Recovery(config RecoveryConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
						// the server suppresses logging for this one
						panic(rec)
					}
					handlePanic(w, r, rec, config)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(w http.ResponseWriter, r *http.Request, rec interface{}, config RecoveryConfig) {
	var stackTrace string
	if config.EnableStackTrace {
		stackTrace = string(debug.Stack())
	}

	logPanic(r, rec, stackTrace, config.Logger)

	if r.Header.Get("Upgrade") != "" {
		// upgraded connections are hijacked and cannot carry a response
		return
	}

	w.Header().Set("Content-Type", config.ResponseContentType)
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusInternalServerError)

	if config.ResponseMessage != "" {
		_, _ = w.Write([]byte(config.ResponseMessage))
	}
}

func logPanic(r *http.Request, rec interface{}, stackTrace string, log logger.Logger) {
	if log == nil {
		return
	}

	fields := []logger.LogField{
		logger.StringField("panic_error", fmt.Sprintf("%v", rec)),
		logger.HTTPMethodField(r.Method),
		logger.HTTPPathField(r.URL.Path),
		logger.ClientIPField(ClientIP(r)),
		logger.StringField("user_agent", r.UserAgent()),
	}

	if stackTrace != "" {
		fields = append(fields, logger.StringField("stack_trace", stackTrace))
	}
	if r.URL.RawQuery != "" {
		fields = append(fields, logger.StringField("query_params", r.URL.RawQuery))
	}
	if r.ContentLength > 0 {
		fields = append(fields, logger.Int64Field("content_length", r.ContentLength))
	}

	logger.FromContext(r.Context(), log).Error("HTTP request panic recovered", fields...)
}

// ClientIP extracts the real client IP from proxy headers, falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if cfip := r.Header.Get("CF-Connecting-IP"); cfip != "" {
		return cfip
	}
	return r.RemoteAddr
}
