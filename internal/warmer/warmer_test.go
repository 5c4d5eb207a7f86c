package warmer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTarget) WarmAll(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return 3, f.err
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New("every now and then", &fakeTarget{}, time.Second)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	target := &fakeTarget{}
	w, err := New("*/15 * * * *", target, time.Minute)
	require.NoError(t, err)

	require.NoError(t, w.RunOnce(context.Background()))
	assert.EqualValues(t, 1, target.calls.Load())

	target.err = errors.New("db down")
	assert.ErrorIs(t, w.RunOnce(context.Background()), target.err)
}

func TestRunOnce_CanceledContext(t *testing.T) {
	target := &fakeTarget{}
	w, err := New("@every 1h", target, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.RunOnce(ctx), context.Canceled)
	assert.EqualValues(t, 0, target.calls.Load())
}

func TestStart_WarmsImmediatelyAndStopsWithContext(t *testing.T) {
	target := &fakeTarget{}
	w, err := New("@every 1h", target, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, w.Next().IsZero())

	cancel()
	w.Stop()
}

type blockingTarget struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingTarget) WarmAll(ctx context.Context) (int, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return 0, nil
}

func TestTick_SkipsWhileBusy(t *testing.T) {
	target := &blockingTarget{release: make(chan struct{})}
	w, err := New("@every 1h", target, time.Minute)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		w.tick()
		close(done)
	}()
	require.Eventually(t, func() bool { return target.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// A second tick while the first one is busy returns without warming.
	w.tick()
	assert.EqualValues(t, 1, target.calls.Load())

	close(target.release)
	<-done

	// Once idle, ticks run again.
	w.tick()
	assert.EqualValues(t, 2, target.calls.Load())
}
