// Package queue serializes on-demand profile checks through a single consumer.
package queue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/kwservices/xptracker/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option configures a Queue.
type Option func(*Queue)

// WithItemDelay sets the pause between processed items.
func WithItemDelay(d time.Duration) Option {
	return func(q *Queue) {
		q.itemDelay = d
	}
}

// WithDedup collapses pushes of an already queued raw id into the pending order.
func WithDedup(enabled bool) Option {
	return func(q *Queue) {
		q.dedup = enabled
	}
}

// WithRateLimit limits outbound remote calls to rps per second.
func WithRateLimit(rps float64) Option {
	return func(q *Queue) {
		if rps > 0 {
			q.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithObserver reports queue measurements to o.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		if o != nil {
			q.observer = o
		}
	}
}

// Queue is a FIFO of checks drained by at most one goroutine at a time.
type Queue struct {
	source   Source
	logger   *zap.Logger
	limiter  *rate.Limiter
	observer Observer

	itemDelay time.Duration
	dedup     bool

	mu      sync.Mutex
	items   []Order
	waiters map[string]*waiter
	results map[uint64]Result
	pending map[string]string // raw id -> correlation id, used with dedup
	closed  bool

	// ctx bounds every drain and is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	drainMu  sync.Mutex
	draining atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new check queue.
func New(source Source, logger *zap.Logger, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		ctx:       ctx,
		cancel:    cancel,
		source:    source,
		logger:    logger.Named("check_queue"),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		observer:  noopObserver{},
		itemDelay: time.Second,
		waiters:   make(map[string]*waiter),
		results:   make(map[uint64]Result),
		pending:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Push enqueues an order and returns its correlation id. It never blocks.
func (q *Queue) Push(order Order) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrQueueClosed
	}

	if q.dedup {
		if id, ok := q.pending[order.RawID]; ok {
			q.logger.Debug("Collapsed duplicate check",
				zap.String("rawID", order.RawID),
				zap.String("correlationID", id))

			return id, nil
		}
	}

	if order.CorrelationID == "" {
		order.CorrelationID = NewCorrelationID()
	}

	q.pruneWaiters(time.Now())

	q.items = append(q.items, order)
	q.waiters[order.CorrelationID] = &waiter{done: make(chan struct{})}

	if q.dedup {
		q.pending[order.RawID] = order.CorrelationID
	}

	q.observer.SetQueueDepth(len(q.items))

	return order.CorrelationID, nil
}

// Enqueue pushes a check for rawID requested by an actor.
func (q *Queue) Enqueue(rawID string, requestedBy, channelID snowflake.ID) (string, error) {
	return q.Push(Order{
		RawID:       rawID,
		RequestedBy: requestedBy,
		ChannelID:   channelID,
	})
}

// TriggerIfIdle starts a drain when the queue has items and no drain is running.
// Concurrent callers collapse into a no-op. Returns whether a drain was started.
//
// ctx only gates the start. A started drain runs on the queue's own context, so it
// outlives short request contexts and is stopped by Close.
func (q *Queue) TriggerIfIdle(ctx context.Context) bool {
	if ctx.Err() != nil || q.Len() == 0 {
		return false
	}

	if !q.drainMu.TryLock() {
		return false
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.drainMu.Unlock()

		return false
	}

	q.wg.Add(1)
	q.mu.Unlock()

	q.draining.Store(true)

	go func() {
		defer q.wg.Done()

		q.drain(q.ctx)

		// Items pushed after the last pop would otherwise wait for the next trigger
		if q.Len() > 0 {
			q.TriggerIfIdle(q.ctx)
		}
	}()

	return true
}

// Len returns the number of queued orders.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Draining reports whether a drain is in progress.
func (q *Queue) Draining() bool {
	return q.draining.Load()
}

// Position returns the 1-based position of a queued order, or 0 if it is not queued.
func (q *Queue) Position(correlationID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, order := range q.items {
		if order.CorrelationID == correlationID {
			return i + 1
		}
	}

	return 0
}

// Pending returns a copy of the queued orders in processing order.
func (q *Queue) Pending() []Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	return slices.Clone(q.items)
}

// ResultFor returns the last stored result for a canonical id.
func (q *Queue) ResultFor(steamID uint64) (Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	result, ok := q.results[steamID]

	return result, ok
}

// Await blocks until the order with the given correlation id completes,
// the timeout elapses or the context is cancelled. A completed result stays readable
// for every caller sharing the correlation id until it is pruned.
func (q *Queue) Await(ctx context.Context, correlationID string, timeout time.Duration) (Result, error) {
	q.mu.Lock()
	w, ok := q.waiters[correlationID]
	q.mu.Unlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCorrelation, correlationID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return w.result, nil
	case <-timer.C:
		return Result{}, fmt.Errorf("%w: %s", ErrResultTimeout, correlationID)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops accepting orders, cancels a running drain between items and waits for it.
// Orders still queued are left unprocessed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// drain processes orders until the queue is empty or ctx is cancelled.
func (q *Queue) drain(ctx context.Context) {
	defer q.drainMu.Unlock()
	defer q.draining.Store(false)

	processed := 0

	for {
		if utils.ContextGuardWithLog(ctx, q.logger, "Drain cancelled, leaving remaining checks queued") {
			return
		}

		order, ok := q.pop()
		if !ok {
			break
		}

		result := q.process(ctx, order)
		q.complete(result)
		processed++

		if q.Len() > 0 && utils.ContextSleep(ctx, q.itemDelay) == utils.SleepCancelled {
			return
		}
	}

	q.logger.Debug("Drain finished", zap.Int("processed", processed))
}

func (q *Queue) pop() (Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Order{}, false
	}

	order := q.items[0]
	q.items[0] = Order{}
	q.items = q.items[1:]

	if q.pending[order.RawID] == order.CorrelationID {
		delete(q.pending, order.RawID)
	}

	q.observer.SetQueueDepth(len(q.items))

	return order, true
}

// process runs one check. Errors and panics are confined to the order's result.
func (q *Queue) process(ctx context.Context, order Order) (result Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Check panicked",
				zap.String("correlationID", order.CorrelationID),
				zap.Any("panic", r))

			result = Result{Order: order, Err: fmt.Errorf("%w: %v", ErrCheckPanicked, r)}
		}

		result.Duration = time.Since(start)
		q.observer.ObserveCheck(result.Success, result.Duration)
	}()

	if err := q.limiter.Wait(ctx); err != nil {
		return Result{Order: order, Err: err}
	}

	profile, err := q.source.Resolve(ctx, order.RawID)
	if err != nil {
		q.logger.Warn("Failed to resolve check",
			zap.String("rawID", order.RawID),
			zap.String("correlationID", order.CorrelationID),
			zap.Error(err))

		return Result{Order: order, Err: err}
	}

	order.SteamID = profile.SteamID

	if err := q.limiter.Wait(ctx); err != nil {
		return Result{Order: order, Err: err}
	}

	player, medals, err := q.source.Medals(ctx, profile.SteamID, order.CorrelationID)
	if err != nil {
		q.logger.Warn("Failed to fetch check report",
			zap.Uint64("steamID", profile.SteamID),
			zap.String("correlationID", order.CorrelationID),
			zap.Error(err))

		return Result{Order: order, Err: err}
	}

	return Result{
		Order:   order,
		Success: true,
		Report: &stats.Report{
			Profile: *profile,
			Player:  *player,
			Medals:  *medals,
		},
	}
}

// complete stores the result and releases its waiter.
func (q *Queue) complete(result Result) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if result.Order.SteamID != 0 {
		q.results[result.Order.SteamID] = result
	}

	if w, ok := q.waiters[result.Order.CorrelationID]; ok {
		w.result = result
		w.completedAt = time.Now()
		close(w.done)
	}
}

// pruneWaiters drops completed results nobody claimed. Callers hold q.mu.
func (q *Queue) pruneWaiters(now time.Time) {
	for id, w := range q.waiters {
		if !w.completedAt.IsZero() && now.Sub(w.completedAt) > waiterRetention {
			delete(q.waiters, id)
		}
	}
}
