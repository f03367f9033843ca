// Package debounce coalesces a user's rapid-fire message fragments into a
// single turn. Each fragment restarts the user's quiet-period timer; when
// the timer finally fires, the buffered fragments are drained, joined, and
// handed to the turn handler exactly once.
package debounce

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jarbasai/jarbas/internal/fragments"
	"github.com/jarbasai/jarbas/internal/observability"
)

// ErrShuttingDown is returned by Enqueue once Shutdown has begun.
var ErrShuttingDown = errors.New("debouncer is shutting down")

// TurnFunc handles one coalesced utterance for a user.
type TurnFunc func(ctx context.Context, userKey, utterance string)

// Options configures a Debouncer.
type Options struct {
	Store fragments.Store

	// QuietPeriod is how long a user must stay silent before their buffered
	// fragments become a turn.
	QuietPeriod time.Duration

	// MaxConcurrentTurns caps turns executing simultaneously across users.
	MaxConcurrentTurns int64

	OnTurn TurnFunc

	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// pendingTimer carries the generation the timer was armed with. Generations
// are drawn from a process-wide monotonic counter so a stale fire can never
// collide with a later entry for the same user.
type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Debouncer owns the per-user quiet-period timers and turn execution.
//
// Concurrency model: turns for different users run in parallel up to the
// global cap; turns for the same user are serialized by a refcounted
// per-user mutex held across drain, turn handling, and persistence, so a
// fragment arriving mid-turn starts a new window instead of interleaving.
type Debouncer struct {
	store  fragments.Store
	quiet  time.Duration
	onTurn TurnFunc
	sem    *semaphore.Weighted

	mu      sync.Mutex
	pending map[string]*pendingTimer
	locks   map[string]*userLock
	lastGen uint64
	stopped bool

	wg      sync.WaitGroup
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Debouncer.
func New(opts Options) *Debouncer {
	if opts.MaxConcurrentTurns <= 0 {
		opts.MaxConcurrentTurns = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		store:   opts.Store,
		quiet:   opts.QuietPeriod,
		onTurn:  opts.OnTurn,
		sem:     semaphore.NewWeighted(opts.MaxConcurrentTurns),
		pending: make(map[string]*pendingTimer),
		locks:   make(map[string]*userLock),
		metrics: opts.Metrics,
		logger:  logger.With("component", "debounce"),
	}
}

// Enqueue buffers a fragment for the user and arms (or re-arms) their
// quiet-period timer. Each call pushes the window out; only silence lets it
// fire.
func (d *Debouncer) Enqueue(ctx context.Context, userKey, fragment string) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrShuttingDown
	}
	d.mu.Unlock()

	if err := d.store.Append(ctx, userKey, fragment); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrShuttingDown
	}

	entry, exists := d.pending[userKey]
	if exists {
		entry.timer.Stop()
	} else {
		entry = &pendingTimer{}
		d.pending[userKey] = entry
		if d.metrics != nil {
			d.metrics.DebouncePending.Inc()
		}
	}

	// Stop() can lose the race with an expiring timer, so the superseded
	// fire may still run; the fresh generation keeps it from matching this
	// entry, or any future entry for this user.
	d.lastGen++
	gen := d.lastGen
	entry.gen = gen
	entry.timer = time.AfterFunc(d.quiet, func() {
		d.fire(userKey, gen)
	})
	return nil
}

// fire runs when a user's quiet period elapses. A stale generation means the
// timer was superseded by a newer fragment and must do nothing.
func (d *Debouncer) fire(userKey string, gen uint64) {
	d.mu.Lock()
	entry, ok := d.pending[userKey]
	if !ok || entry.gen != gen || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, userKey)
	if d.metrics != nil {
		d.metrics.DebouncePending.Dec()
	}
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()

	ctx := context.Background()
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer d.sem.Release(1)

	unlock := d.lockUser(userKey)
	defer unlock()

	parts, err := d.store.Drain(ctx, userKey)
	if err != nil {
		// The fragments stay lost for this window; dropping the turn beats
		// replying to half an utterance.
		d.logger.Error("fragment drain failed, turn dropped", "user_key", userKey, "error", err)
		if d.metrics != nil {
			d.metrics.TurnsTotal.WithLabelValues("dropped").Inc()
		}
		return
	}

	utterance := strings.TrimSpace(strings.Join(parts, " "))
	if utterance == "" {
		return
	}
	d.onTurn(ctx, userKey, utterance)
}

// lockUser acquires the user's serialization mutex, creating it on first use
// and dropping it from the map when the last holder releases.
func (d *Debouncer) lockUser(userKey string) func() {
	d.mu.Lock()
	l, ok := d.locks[userKey]
	if !ok {
		l = &userLock{}
		d.locks[userKey] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, userKey)
		}
		d.mu.Unlock()
	}
}

// Shutdown stops accepting fragments, cancels armed timers, and waits for
// in-flight turns to finish or the context to expire. Fragments buffered in
// the store survive for the next start.
func (d *Debouncer) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	for userKey, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, userKey)
		if d.metrics != nil {
			d.metrics.DebouncePending.Dec()
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
