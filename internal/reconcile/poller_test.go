package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_TicksUntilStopped(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("test", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, PollerOptions{})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "poller fired after Stop")
	assert.False(t, p.Running())
}

func TestPoller_ZeroIntervalOnlyRunsOnTrigger(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("manual", 0, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, PollerOptions{})

	p.Trigger()
	p.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	p.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestPoller_ReportsErrors(t *testing.T) {
	errs := make(chan error, 10)
	boom := errors.New("boom")
	p := NewPoller("err", 10*time.Millisecond, func(ctx context.Context) error {
		return boom
	}, PollerOptions{OnError: func(err error) { errs <- err }})

	p.Start(context.Background())
	defer p.Stop()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("expected error callback")
	}
}

func TestPoller_StopCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	var wrote atomic.Bool
	p := NewPoller("slow", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		if ctx.Err() == nil {
			wrote.Store(true)
		}
		return ctx.Err()
	}, PollerOptions{OnError: func(error) { t.Error("canceled fetch must not be reported") }})

	p.Start(context.Background())
	p.Trigger()
	<-started
	p.Stop()

	assert.False(t, wrote.Load())
}

func TestPoller_OverlappingFetchesBothComplete(t *testing.T) {
	release := make(chan struct{})
	var completed atomic.Int32
	p := NewPoller("overlap", time.Hour, func(ctx context.Context) error {
		<-release
		completed.Add(1)
		return nil
	}, PollerOptions{})

	p.Start(context.Background())
	p.Trigger()
	p.Trigger()
	close(release)

	require.Eventually(t, func() bool { return completed.Load() == 2 }, time.Second, 5*time.Millisecond)
	p.Stop()
}
