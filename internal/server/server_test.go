package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	appconfig "github.com/lewisedginton/mood_mate/internal/config"
	pkgconfig "github.com/lewisedginton/mood_mate/pkg/config"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return port
}

func testConfig(t *testing.T) *appconfig.AppConfig {
	t.Helper()
	return &appconfig.AppConfig{
		CommonConfig: pkgconfig.CommonConfig{LogLevel: "info", LogFormat: "json"},
		ServiceName:  "mood-mate",
		Environment:  "development",
		HTTP: pkgconfig.HTTPServerConfig{
			Port:                freePort(t),
			ReadTimeoutSeconds:  5,
			WriteTimeoutSeconds: 5,
			IdleTimeoutSeconds:  5,
			RequestTimeout:      5 * time.Second,
			MaxHeaderBytes:      1 << 20,
		},
		Metrics:  pkgconfig.MetricsConfig{EnableHTTPMetrics: true, Port: freePort(t)},
		Sessions: appconfig.SessionConfig{IdleTimeout: time.Hour, SweepInterval: time.Minute},
		Security: appconfig.SecurityConfig{
			CORSAllowedOrigins:     []string{"https://moodmate.example"},
			MaxRequestSize:         1 << 20,
			SecurityHeadersEnabled: true,
		},
		Archive: appconfig.ArchiveConfig{
			Backend:  appconfig.ArchiveLocal,
			LocalDir: filepath.Join(t.TempDir(), "archive"),
			Interval: time.Hour,
		},
	}
}

func startRun(t *testing.T, s *Server) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func waitStopped(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestNewWiresHandler(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/start", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	// local archive directory is created up front
	info, err := os.Stat(cfg.Archive.LocalDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewWithoutSecurityHeaders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.SecurityHeadersEnabled = false
	cfg.Archive.Backend = appconfig.ArchiveNone

	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, s.archiver)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Content-Type-Options"))
}

func TestRunServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.ExposeMetrics = true
	cfg.GRPCHealthPort = freePort(t)

	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	cancel, done := startRun(t, s)
	defer cancel()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.HTTP.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var report struct {
			Status string `json:"status"`
		}
		return resp.StatusCode == http.StatusOK &&
			json.NewDecoder(resp.Body).Decode(&report) == nil &&
			report.Status == "healthy"
	}, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", cfg.Metrics.Port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	conn, err := grpc.NewClient(fmt.Sprintf("127.0.0.1:%d", cfg.GRPCHealthPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	assert.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
	}, 15*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, waitStopped(t, done))

	// the archiver writes a last snapshot on shutdown
	entries, err := os.ReadDir(filepath.Join(cfg.Archive.LocalDir, "analytics"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunFailsWhenPortTaken(t *testing.T) {
	lis, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer lis.Close()

	cfg := testConfig(t)
	cfg.Archive.Backend = appconfig.ArchiveNone
	cfg.HTTP.Port = lis.Addr().(*net.TCPAddr).Port

	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	_, done := startRun(t, s)

	err = waitStopped(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
}
