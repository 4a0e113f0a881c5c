// Package poller keeps a live view of the classification service metrics by
// fetching them on a jittered interval.
package poller

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/metrics"
)

const (
	// DefaultInterval is the base delay between fetches
	DefaultInterval = 20 * time.Second
	// MaxJitter bounds the random delay added to every interval (exclusive)
	MaxJitter = 3000 * time.Millisecond
)

var errEmptySnapshot = errors.New("metrics response was empty")

// Status is the lifecycle position of a poller handle
type Status int

const (
	// StatusIdle means no loop is running; polling is disabled
	StatusIdle Status = iota
	// StatusPolling means a loop is fetching on schedule
	StatusPolling
	// StatusStopped is terminal: the consumer detached
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPolling:
		return "polling"
	case StatusStopped:
		return "stopped"
	}
	return "unknown"
}

// State is the consumer visible result of polling. A zero LastUpdated
// means no fetch has succeeded yet.
type State struct {
	Snapshot    *core.MetricsSnapshot
	Err         error
	LastUpdated time.Time
	Loading     bool
}

// Config controls the poll loop
type Config struct {
	Interval time.Duration
	Enabled  bool
}

// Option customizes a Handle
type Option func(*Handle)

// WithClock replaces the real clock
func WithClock(clock Clock) Option {
	return func(h *Handle) {
		h.clock = clock
	}
}

// WithJitter replaces the jitter source
func WithJitter(jitter func() time.Duration) Option {
	return func(h *Handle) {
		h.jitter = jitter
	}
}

// WithListener registers a callback invoked with a copy of the state after
// every change made by the poll loop. It must not block for long.
func WithListener(listener func(State)) Option {
	return func(h *Handle) {
		h.listener = listener
	}
}

// Jitter draws a uniform whole number of milliseconds in [0, MaxJitter).
func Jitter() time.Duration {
	return time.Duration(rand.IntN(int(MaxJitter/time.Millisecond))) * time.Millisecond
}

// loop is one run of the fetch/sleep cycle. cancelled is guarded by Handle.mu
// and is checked after every fetch, before any state is touched.
type loop struct {
	cancelled bool
	stopCh    chan struct{}
	done      chan struct{}
}

// Handle is a running (or idle) metrics poller returned by Start.
type Handle struct {
	ctx      context.Context
	source   core.MetricsSource
	logger   *zap.Logger
	clock    Clock
	jitter   func() time.Duration
	listener func(State)

	mu       sync.Mutex
	state    State
	status   Status
	cfg      Config
	loop     *loop
	lastDone chan struct{}

	notifyMu sync.Mutex
}

// Start creates a poller handle. When cfg.Enabled is true the first fetch
// is issued immediately. ctx bounds every fetch; cancelling it stops the handle.
func Start(ctx context.Context, source core.MetricsSource, cfg Config, logger *zap.Logger, opts ...Option) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	h := &Handle{
		ctx:    ctx,
		source: source,
		logger: logger,
		clock:  RealClock(),
		jitter: Jitter,
		status: StatusIdle,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mu.Lock()
	if cfg.Enabled {
		h.startLoopLocked()
	} else {
		h.logger.Info("Metrics polling disabled")
	}
	h.mu.Unlock()

	return h
}

// State returns a copy of the current poll state
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Status returns the lifecycle position of the handle
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Config returns the active configuration
func (h *Handle) Config() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Reconfigure tears down the current loop and, if cfg.Enabled, starts a
// fresh one with an immediate fetch. The poll state is kept.
func (h *Handle) Reconfigure(cfg Config) error {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status == StatusStopped {
		return core.ErrStopped
	}

	h.cancelLoopLocked()
	h.cfg = cfg

	if cfg.Enabled {
		h.startLoopLocked()
	} else {
		h.status = StatusIdle
		h.logger.Info("Metrics polling disabled")
	}
	return nil
}

// Stop cancels any pending tick and discards the result of a fetch that is
// still in flight. Stop is idempotent and does not wait; see Wait.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status == StatusStopped {
		return
	}
	h.cancelLoopLocked()
	h.status = StatusStopped
	h.logger.Info("Metrics poller stopped")
}

// Wait blocks until the most recently started loop has exited
func (h *Handle) Wait() {
	h.mu.Lock()
	done := h.lastDone
	h.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (h *Handle) startLoopLocked() {
	l := &loop{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	h.loop = l
	h.lastDone = l.done
	h.status = StatusPolling

	h.logger.Info("Starting metrics poller", zap.Duration("interval", h.cfg.Interval))
	go h.run(l, h.cfg.Interval)
}

func (h *Handle) cancelLoopLocked() {
	l := h.loop
	if l == nil {
		return
	}
	l.cancelled = true
	close(l.stopCh)
	h.loop = nil
	h.state.Loading = false
}

func (h *Handle) run(l *loop, interval time.Duration) {
	defer close(l.done)

	for {
		state, ok := h.beginAttempt(l)
		if !ok {
			return
		}
		h.notify(l, state)

		started := h.clock.Now()
		snapshot, err := h.source.GetMetrics(h.ctx)
		elapsed := h.clock.Now().Sub(started)

		state, ok = h.finishAttempt(l, snapshot, err)
		if !ok {
			metrics.ObservePoll(elapsed, metrics.OutcomeDiscarded)
			h.logger.Debug("Discarded metrics fetched after stop")
			if h.ctx.Err() != nil {
				h.Stop()
			}
			return
		}

		if state.Err != nil {
			metrics.ObservePoll(elapsed, metrics.OutcomeError)
			h.logger.Warn("Failed to fetch metrics", zap.Error(state.Err), zap.Duration("elapsed", elapsed))
		} else {
			metrics.ObservePoll(elapsed, metrics.OutcomeSuccess)
			metrics.RecordSnapshot(state.Snapshot, state.LastUpdated)
			h.logger.Debug("Fetched metrics",
				zap.Int64("scans", state.Snapshot.Totals.Scans),
				zap.Duration("elapsed", elapsed))
		}
		h.notify(l, state)

		delay := interval + h.jitter()
		timer := h.clock.NewTimer(delay)

		select {
		case <-l.stopCh:
			timer.Stop()
			return
		case <-h.ctx.Done():
			timer.Stop()
			h.Stop()
			return
		case <-timer.C():
		}
	}
}

// beginAttempt raises the loading flag unless the loop was cancelled
func (h *Handle) beginAttempt(l *loop) (State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l.cancelled {
		return State{}, false
	}
	h.state.Loading = true
	return h.state, true
}

// finishAttempt applies a fetch result unless the loop was cancelled while
// the fetch was in flight. Failures keep the previous snapshot.
func (h *Handle) finishAttempt(l *loop, snapshot *core.MetricsSnapshot, err error) (State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l.cancelled || h.ctx.Err() != nil {
		return State{}, false
	}

	if err == nil && snapshot == nil {
		err = errEmptySnapshot
	}

	if err != nil {
		h.state.Err = err
	} else {
		h.state.Snapshot = snapshot
		h.state.LastUpdated = h.clock.Now()
		h.state.Err = nil
	}
	h.state.Loading = false

	return h.state, true
}

func (h *Handle) notify(l *loop, state State) {
	if h.listener == nil {
		return
	}

	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	cancelled := l.cancelled
	h.mu.Unlock()

	if !cancelled {
		h.listener(state)
	}
}
