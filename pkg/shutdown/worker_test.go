package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPeriodicWorker_RunsImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int32
	pw := NewPeriodicWorker("test-worker", 10*time.Millisecond, zap.NewNop())
	pw.Start(func(ctx context.Context) {
		runs.Add(1)
	})

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond, "expected the immediate run plus at least one tick")

	require.NoError(t, pw.Shutdown(context.Background()))
}

func TestPeriodicWorker_ShutdownStopsLoop(t *testing.T) {
	var runs atomic.Int32
	pw := NewPeriodicWorker("test-worker", 5*time.Millisecond, zap.NewNop())
	pw.Start(func(ctx context.Context) {
		runs.Add(1)
	})

	require.NoError(t, pw.Shutdown(context.Background()))
	settled := runs.Load()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, settled, runs.Load(), "worker kept running after shutdown")
}

func TestPeriodicWorker_ShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	pw := NewPeriodicWorker("stuck-worker", time.Minute, zap.NewNop())
	pw.Start(func(ctx context.Context) {
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pw.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
