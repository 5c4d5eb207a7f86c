// Package warmer periodically pre-generates schedules so feed requests hit
// a warm cache.
package warmer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "groovecal/internal/log"
	"groovecal/internal/metrics"
)

// Target is the work run on every tick.
type Target interface {
	WarmAll(ctx context.Context) (int, error)
}

// Warmer runs Target.WarmAll on a cron schedule. Ticks never overlap, the
// start-up warm-up included; a tick that fires while the previous run is
// still busy is skipped.
type Warmer struct {
	cron    *cron.Cron
	target  Target
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	baseCtx context.Context

	// running is held for the duration of a tick.
	running sync.Mutex
}

// New validates spec (standard five-field cron or a descriptor such as
// "@every 15m") and registers the job. timeout bounds one run; zero means
// no bound.
func New(spec string, target Target, timeout time.Duration) (*Warmer, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	w := &Warmer{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		target:  target,
		spec:    spec,
		timeout: timeout,
		baseCtx: context.Background(),
	}
	if _, err := w.cron.AddFunc(spec, w.tick); err != nil {
		return nil, err
	}
	return w, nil
}

// Start runs one warm-up immediately in the background and then follows the
// schedule until ctx is done or Stop is called.
func (w *Warmer) Start(ctx context.Context) {
	w.mu.Lock()
	w.baseCtx = ctx
	w.mu.Unlock()

	appLog.Info("schedule warmer started", "refresh", w.spec)
	go w.tick()
	w.cron.Start()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
}

// Stop halts the schedule and waits for a running job to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// Next returns the time of the next scheduled run, or the zero time if the
// warmer is not running.
func (w *Warmer) Next() time.Time {
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (w *Warmer) tick() {
	if !w.running.TryLock() {
		appLog.Debug("schedule warm run still busy; skipping tick")
		return
	}
	defer w.running.Unlock()

	w.mu.Lock()
	ctx := w.baseCtx
	w.mu.Unlock()

	if err := w.RunOnce(ctx); err != nil {
		appLog.Error("schedule warm run failed", err)
	}
}

// RunOnce performs a single warm-up run.
func (w *Warmer) RunOnce(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	began := time.Now()
	n, err := w.target.WarmAll(ctx)
	if err != nil {
		metrics.WarmRuns.WithLabelValues("error").Inc()
		return err
	}
	metrics.WarmRuns.WithLabelValues("ok").Inc()
	appLog.Debug("schedules warmed", "users", n, "took", time.Since(began).String())
	return nil
}
