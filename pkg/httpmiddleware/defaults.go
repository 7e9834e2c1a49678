// Package httpmiddleware assembles the chi middleware stack shared by the HTTP listeners.
package httpmiddleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"

	"github.com/lewisedginton/mood_mate/pkg/logger"
)

// Config holds configuration for HTTP middleware application.
// Use DefaultConfig() for sensible defaults, then customize as needed.
type Config struct {
	Logger         logger.Logger                   // Required for logging middleware
	CORS           *CORSConfig                     // CORS configuration
	Security       *secure.Options                 // Security headers configuration
	Timeout        time.Duration                   // Request timeout duration
	MaxRequestSize int64                           // Request body limit in bytes, 0 = unlimited
	Recoverer      func(http.Handler) http.Handler // Panic recovery, chi Recoverer when nil
	Metrics        func(http.Handler) http.Handler // Request metrics, skipped when nil

	EnableCorrelationID bool // Add correlation ID to requests
	EnableLogging       bool // Log HTTP requests (requires Logger)
	EnableRecovery      bool // Recover from panics
	EnableCORS          bool // Enable CORS headers
	EnableSecurity      bool // Add security headers
	EnableCompression   bool // Compress responses
	EnableHeartbeat     bool // Add /ping endpoint
	EnableRealIP        bool // Extract real client IP
	EnableTimeout       bool // Add request timeouts
}

// DefaultConfig returns a production-ready middleware configuration.
// Logging is disabled by default - set Logger and EnableLogging=true to enable.
func DefaultConfig() Config {
	corsConfig := DefaultCORSConfig()
	return Config{
		CORS:           &corsConfig,
		Timeout:        30 * time.Second,
		MaxRequestSize: 1 << 20,

		EnableCorrelationID: true,
		EnableRecovery:      true,
		EnableCORS:          true,
		EnableSecurity:      true,
		EnableCompression:   true,
		EnableHeartbeat:     true,
		EnableRealIP:        true,
		EnableTimeout:       true,
	}
}

// ApplyToRouter applies the configured middleware to a Chi router.
// First applied = outermost layer:
//
//  1. CorrelationID
//  2. Security
//  3. RealIP
//  4. Logging
//  5. Metrics
//  6. Recovery
//  7. CORS
//  8. RequestSize
//  9. Timeout (skipped for websocket upgrades)
//  10. Compression
//  11. Heartbeat (/ping)
func ApplyToRouter(router chi.Router, config Config) {
	if config.EnableCorrelationID {
		router.Use(CorrelationID())
	}
	if config.EnableSecurity {
		router.Use(Security(config.Security))
	}
	if config.EnableRealIP {
		router.Use(middleware.RealIP)
	}
	if config.EnableLogging && config.Logger != nil {
		router.Use(NewHTTPLogger(config.Logger).Middleware)
	}
	if config.Metrics != nil {
		router.Use(config.Metrics)
	}
	if config.EnableRecovery {
		if config.Recoverer != nil {
			router.Use(config.Recoverer)
		} else {
			router.Use(middleware.Recoverer)
		}
	}
	if config.EnableCORS && config.CORS != nil {
		router.Use(CORS(*config.CORS))
	}
	if config.MaxRequestSize > 0 {
		router.Use(middleware.RequestSize(config.MaxRequestSize))
	}
	if config.EnableTimeout && config.Timeout > 0 {
		router.Use(TimeoutUnlessUpgrade(config.Timeout))
	}
	if config.EnableCompression {
		router.Use(middleware.Compress(5))
	}
	if config.EnableHeartbeat {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// WithLogger applies DefaultConfig() with logging enabled.
func WithLogger(router chi.Router, log logger.Logger) {
	config := DefaultConfig()
	config.Logger = log
	config.EnableLogging = true
	ApplyToRouter(router, config)
}

// TimeoutUnlessUpgrade is chi's Timeout middleware, except long-lived websocket
// connections pass through untouched.
func TimeoutUnlessUpgrade(timeout time.Duration) func(http.Handler) http.Handler {
	withTimeout := middleware.Timeout(timeout)
	return func(next http.Handler) http.Handler {
		timed := withTimeout(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			timed.ServeHTTP(w, r)
		})
	}
}
