package cascade

import (
	"sync"
	"time"
)

// BatchedStateUpdater coalesces operations emitted by an OutputBinder into
// a FIFO queue, flushed to the outer state container on either a batch
// size threshold or an idle timer (§4.8). It is the only suspension point
// in the engine (§5): operations enqueued between flushes are not yet
// visible to anyone reading the materialized tree.
type BatchedStateUpdater struct {
	mu            sync.Mutex
	queue         []operation
	threshold     int
	flushInterval time.Duration
	timer         *time.Timer
	apply         func([]operation)
	disposed      bool
}

// NewBatchedStateUpdater builds an updater that flushes once queue reaches
// threshold operations, or flushInterval elapses since the most recent
// enqueue with no flush in between. apply is invoked with the queued
// batch, in enqueue order, outside the updater's lock.
func NewBatchedStateUpdater(threshold int, flushInterval time.Duration, apply func([]operation)) *BatchedStateUpdater {
	if threshold <= 0 {
		threshold = 1
	}
	return &BatchedStateUpdater{
		threshold:     threshold,
		flushInterval: flushInterval,
		apply:         apply,
	}
}

// Enqueue appends op to the pending queue, flushing immediately if the
// threshold is reached and otherwise (re)arming the idle timer.
func (u *BatchedStateUpdater) Enqueue(op operation) {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return
	}
	u.queue = append(u.queue, op)
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	if len(u.queue) < u.threshold {
		u.timer = time.AfterFunc(u.flushInterval, u.onTimer)
		u.mu.Unlock()
		return
	}
	batch := u.takeLocked()
	u.mu.Unlock()
	u.apply(batch)
}

func (u *BatchedStateUpdater) onTimer() {
	u.mu.Lock()
	if u.disposed || len(u.queue) == 0 {
		u.mu.Unlock()
		return
	}
	batch := u.takeLocked()
	u.mu.Unlock()
	u.apply(batch)
}

// ForceFlush drains the queue synchronously, regardless of threshold or
// timer state (§5 "invoked before a client reads").
func (u *BatchedStateUpdater) ForceFlush() {
	u.mu.Lock()
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	if len(u.queue) == 0 {
		u.mu.Unlock()
		return
	}
	batch := u.takeLocked()
	u.mu.Unlock()
	u.apply(batch)
}

// Dispose cancels the pending timer and drops any queued operations
// without applying them (§4.8 disposal). It is idempotent.
func (u *BatchedStateUpdater) Dispose() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	u.queue = nil
	u.disposed = true
}

// takeLocked detaches the current queue for delivery to apply. Callers
// must hold u.mu and must not call apply while still holding it, since
// apply may re-enter the updater (e.g. a downstream listener forcing a
// flush).
func (u *BatchedStateUpdater) takeLocked() []operation {
	batch := u.queue
	u.queue = nil
	return batch
}
