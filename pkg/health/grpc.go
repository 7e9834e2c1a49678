package health

import (
	"context"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/lewisedginton/mood_mate/pkg/logger"
)

// DefaultGRPCUpdateInterval is the default interval for refreshing the gRPC health status
const DefaultGRPCUpdateInterval = 5 * time.Second

// GRPCUpdater mirrors readiness results into a grpc.health.v1 server.
type GRPCUpdater struct {
	checker        *HealthChecker
	healthServer   *grpchealth.Server
	updateInterval time.Duration
	stopChan       chan struct{}
	stopped        atomic.Bool
}

// RegisterWithGRPC registers the grpc.health.v1.Health service on server and starts a
// background goroutine that refreshes the overall ("") status from the readiness checks.
func (h *HealthChecker) RegisterWithGRPC(server *grpc.Server) *GRPCUpdater {
	return h.RegisterWithGRPCAndInterval(server, DefaultGRPCUpdateInterval)
}

// RegisterWithGRPCAndInterval is RegisterWithGRPC with a custom refresh interval.
func (h *HealthChecker) RegisterWithGRPCAndInterval(server *grpc.Server, updateInterval time.Duration) *GRPCUpdater {
	healthServer := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	// NOT_SERVING until the first readiness run completes
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	u := &GRPCUpdater{
		checker:        h,
		healthServer:   healthServer,
		updateInterval: updateInterval,
		stopChan:       make(chan struct{}),
	}
	go u.run()

	if h.logger != nil {
		h.logger.Info("gRPC health service registered", logger.DurationField("update_interval", updateInterval))
	}
	return u
}

func (u *GRPCUpdater) run() {
	ticker := time.NewTicker(u.updateInterval)
	defer ticker.Stop()

	u.updateHealth()
	for {
		select {
		case <-ticker.C:
			u.updateHealth()
		case <-u.stopChan:
			u.healthServer.Shutdown()
			return
		}
	}
}

func (u *GRPCUpdater) updateHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), u.updateInterval)
	defer cancel()

	status, err := u.checker.CheckReadiness(ctx)
	if err != nil || !status.Healthy {
		u.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return
	}
	u.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
}

// Stop marks the service NOT_SERVING and stops refreshing. Safe to call more than once.
func (u *GRPCUpdater) Stop() {
	if u.stopped.CompareAndSwap(false, true) {
		close(u.stopChan)
	}
}
