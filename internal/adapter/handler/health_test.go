package handler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type stubPinger struct {
	fail atomic.Bool
}

func (s *stubPinger) Ping(ctx context.Context) error {
	if s.fail.Load() {
		return errors.New("no route to host")
	}
	return nil
}

func servingStatus(t *testing.T, p *HealthProber) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := p.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthProber_Check(t *testing.T) {
	pinger := &stubPinger{}
	p := NewHealthProber(pinger, time.Second, zap.NewNop())

	require.NoError(t, p.Check(context.Background()))
	assert.True(t, p.Healthy())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, p))

	pinger.fail.Store(true)
	assert.Error(t, p.Check(context.Background()))
	assert.False(t, p.Healthy())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, p))
}

func TestHealthProber_NilPinger(t *testing.T) {
	p := NewHealthProber(nil, time.Second, zap.NewNop())

	assert.NoError(t, p.Check(context.Background()))
	assert.True(t, p.Healthy())
}

func TestHealthProber_RunProbesUntilCanceled(t *testing.T) {
	pinger := &stubPinger{}
	pinger.fail.Store(true)
	p := NewHealthProber(pinger, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !p.Healthy() }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, p))
}
