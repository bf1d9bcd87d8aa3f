package cascade

import (
	"sync"
	"testing"
	"time"
)

func TestBatchedStateUpdaterFlushesAtThreshold(t *testing.T) {
	var mu sync.Mutex
	var batches [][]operation
	u := NewBatchedStateUpdater(2, time.Hour, func(ops []operation) {
		mu.Lock()
		batches = append(batches, ops)
		mu.Unlock()
	})

	u.Enqueue(operation{kind: opAdded, key: "a"})
	mu.Lock()
	got := len(batches)
	mu.Unlock()
	if got != 0 {
		t.Fatalf("expected no flush below threshold, got %d batches", got)
	}

	u.Enqueue(operation{kind: opAdded, key: "b"})
	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one flush of two operations at threshold, got %+v", batches)
	}
}

func TestBatchedStateUpdaterFlushesOnTimer(t *testing.T) {
	done := make(chan []operation, 1)
	u := NewBatchedStateUpdater(100, 20*time.Millisecond, func(ops []operation) {
		done <- ops
	})

	u.Enqueue(operation{kind: opAdded, key: "a"})

	select {
	case ops := <-done:
		if len(ops) != 1 {
			t.Fatalf("expected a single queued operation, got %d", len(ops))
		}
	case <-time.After(time.Second):
		t.Fatalf("expected the idle timer to flush the queue")
	}
}

func TestBatchedStateUpdaterForceFlush(t *testing.T) {
	var flushed []operation
	u := NewBatchedStateUpdater(100, time.Hour, func(ops []operation) { flushed = ops })

	u.Enqueue(operation{kind: opAdded, key: "a"})
	u.ForceFlush()

	if len(flushed) != 1 {
		t.Fatalf("expected force flush to deliver the pending operation, got %v", flushed)
	}
}

func TestBatchedStateUpdaterDisposeDropsQueue(t *testing.T) {
	applyCalled := false
	u := NewBatchedStateUpdater(100, time.Hour, func(ops []operation) { applyCalled = true })

	u.Enqueue(operation{kind: opAdded, key: "a"})
	u.Dispose()
	u.ForceFlush()
	u.Enqueue(operation{kind: opAdded, key: "b"})

	if applyCalled {
		t.Fatalf("expected disposal to prevent any further apply calls")
	}
}
