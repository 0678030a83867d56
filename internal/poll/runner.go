package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storesense/counterdash/internal/logger"
)

// TickFunc performs one fetch-and-reconcile attempt. seq identifies the tick
// so the result can be gated through Apply; a failed tick simply returns and
// leaves prior view state untouched.
type TickFunc func(ctx context.Context, seq uint64)

// Runner drives one periodic poll task kind. At most one live timer exists
// per runner: Start on a started runner and Stop on a stopped one are no-ops.
// Ticks are fire-and-forget: a slow fetch never delays the next tick, and
// overlapping completions are ordered by Apply.
type Runner struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	refresh chan struct{}
	running bool

	seq     atomic.Uint64
	applied atomic.Uint64
}

// NewRunner creates a runner for one poll task kind
func NewRunner(name string, interval time.Duration, tick TickFunc, log *logger.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   log,
	}
}

// Name returns the task name
func (r *Runner) Name() string { return r.name }

// Running reports whether a live timer exists
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start begins ticking. Starting an already-started runner is a no-op, so
// duplicate drifting pollers cannot accumulate.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.refresh = make(chan struct{}, 1)
	r.running = true

	go r.loop(runCtx, r.refresh)
	r.logger.Debug("Poll task started", "task", r.name, "interval", r.interval)
}

// Stop clears the timer. Stopping an already-stopped runner is a no-op.
// In-flight ticks are cancelled and their late completions are fenced off:
// any sequence issued before the stop can no longer pass Apply.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	r.cancel()
	r.cancel = nil
	r.running = false

	// Fence: outstanding ticks all carry seq <= current, so they can never
	// win against state applied after a future restart.
	r.applied.Store(r.seq.Load())

	r.logger.Debug("Poll task stopped", "task", r.name)
}

// Refresh requests an immediate out-of-band tick, bypassing the timer.
// A no-op when the runner is stopped; coalesces when one is already pending.
func (r *Runner) Refresh() {
	r.mu.Lock()
	refresh := r.refresh
	running := r.running
	r.mu.Unlock()

	if !running {
		return
	}

	select {
	case refresh <- struct{}{}:
	default:
	}
}

// Apply gates a tick result. It runs fn only when seq is newer than the
// last applied sequence, so a stale response never overwrites view state
// written by a newer one.
func (r *Runner) Apply(seq uint64, fn func()) bool {
	for {
		last := r.applied.Load()
		if seq <= last {
			r.logger.Debug("Discarding stale poll result", "task", r.name, "seq", seq, "applied", last)
			return false
		}
		if r.applied.CompareAndSwap(last, seq) {
			fn()
			return true
		}
	}
}

func (r *Runner) loop(ctx context.Context, refresh chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Immediate first tick so a fresh start never waits a full interval.
	r.fire(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fire(ctx)
		case <-refresh:
			r.fire(ctx)
		}
	}
}

func (r *Runner) fire(ctx context.Context) {
	seq := r.seq.Add(1)
	go r.tick(ctx, seq)
}
