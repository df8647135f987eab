package handler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/pantry-tracker/internal/port"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "pantry.Inventory"

// HealthProber pings the document store and publishes the result to the gRPC
// health service.
type HealthProber struct {
	pinger   port.Pinger
	server   *health.Server
	interval time.Duration
	logger   *zap.Logger
	healthy  atomic.Bool
}

const defaultProbeInterval = 10 * time.Second

// NewHealthProber builds a prober. A nil pinger is always healthy.
func NewHealthProber(pinger port.Pinger, interval time.Duration, logger *zap.Logger) *HealthProber {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	p := &HealthProber{
		pinger:   pinger,
		server:   health.NewServer(),
		interval: interval,
		logger:   logger,
	}
	p.setStatus(true)
	return p
}

func (p *HealthProber) Server() *health.Server {
	return p.server
}

func (p *HealthProber) Healthy() bool {
	return p.healthy.Load()
}

// Check pings the store once and updates the serving status.
func (p *HealthProber) Check(ctx context.Context) error {
	var err error
	if p.pinger != nil {
		err = p.pinger.Ping(ctx)
	}

	if was := p.healthy.Load(); was != (err == nil) {
		if err != nil {
			p.logger.Warn("document store unreachable", zap.Error(err))
		} else {
			p.logger.Info("document store reachable again")
		}
	}
	p.setStatus(err == nil)
	return err
}

// Run probes every interval until ctx is done, then marks the service as
// not serving.
func (p *HealthProber) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, p.interval)
			p.Check(checkCtx)
			cancel()
		case <-ctx.Done():
			p.server.Shutdown()
			return
		}
	}
}

func (p *HealthProber) setStatus(ok bool) {
	p.healthy.Store(ok)

	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.server.SetServingStatus("", status)
	p.server.SetServingStatus(ServiceName, status)
}
