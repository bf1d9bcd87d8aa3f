package cascade

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

var (
	nextPipelineID  uint64
	updaterRegistry sync.Map // map[uint64]weak.Pointer[BatchedStateUpdater]
)

// registryLookup resolves a pipeline handle's updater, if it still exists.
// Exported to tests only through the package itself; external callers have
// no business reaching into the registry.
func registryLookup(id uint64) (*BatchedStateUpdater, bool) {
	v, ok := updaterRegistry.Load(id)
	if !ok {
		return nil, false
	}
	ptr := v.(weak.Pointer[BatchedStateUpdater]).Value()
	return ptr, ptr != nil
}

func releasePipelineHandle(id uint64) {
	updaterRegistry.Delete(id)
}

// Pipeline is the engine's external handle (§6): it wraps the root
// InputStep and the last step of a constructed chain, owning the batched
// updater and materialized tree that sit downstream of it. The updater is
// reachable from the handle's id only via a weak pointer (§5 "shared
// resources"), so dropping every Pipeline reference lets the garbage
// collector reclaim the updater and its pending operations without an
// explicit Dispose call.
type Pipeline struct {
	id      uint64
	input   *InputStep
	final   Source
	updater *BatchedStateUpdater
	binder  *OutputBinder

	mu   sync.Mutex
	root []*Row
}

// NewPipeline builds a handle over a constructed step chain. input is the
// chain's root (what Add/Remove inject into); final is the last step,
// whose exposed tree the binder subscribes to. threshold and
// flushInterval configure the batched updater (§4.8).
func NewPipeline(input *InputStep, final Source, threshold int, flushInterval time.Duration) *Pipeline {
	p := &Pipeline{input: input, final: final}
	p.updater = NewBatchedStateUpdater(threshold, flushInterval, p.applyBatch)
	p.binder = NewOutputBinder(final, p.updater)

	p.id = atomic.AddUint64(&nextPipelineID, 1)
	updaterRegistry.Store(p.id, weak.Make(p.updater))
	runtime.AddCleanup(p, releasePipelineHandle, p.id)

	return p
}

// Add injects a row at the root segment path.
func (p *Pipeline) Add(key Key, props Props) {
	p.input.Add(key, props)
}

// Remove retracts a row previously injected at the root segment path.
// props should structurally match what was added, since aggregates read
// values out of the removed payload.
func (p *Pipeline) Remove(key Key, props Props) {
	p.input.Remove(key, props)
}

// ForceFlush drains any pending batched operations synchronously. Call it
// before reading Tree if the caller needs a result that reflects every
// enqueued operation rather than only the last completed flush.
func (p *Pipeline) ForceFlush() {
	p.updater.ForceFlush()
}

// Tree returns a shallow copy of the materialized tree's root slice as of
// the last applied flush.
func (p *Pipeline) Tree() []*Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Row, len(p.root))
	copy(out, p.root)
	return out
}

// TypeDescriptor returns the final step's output shape (§8 "idempotent
// descriptor").
func (p *Pipeline) TypeDescriptor() *TypeDescriptor {
	return p.final.TypeDescriptor()
}

// Dispose cancels the batched updater's pending timer and drops any
// queued-but-unapplied operations (§4.8 disposal).
func (p *Pipeline) Dispose() {
	p.updater.Dispose()
}

// applyBatch is the updater's "apply transform" hook (§6 set_state):
// it replaces the materialized tree with the result of applying every
// queued operation, in order. A contract violation here means a step
// produced an add the graph itself cannot support, which is a bug in the
// step graph rather than a recoverable condition.
func (p *Pipeline) applyBatch(ops []operation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := applyOperations(&p.root, ops); err != nil {
		panic(err)
	}
}
