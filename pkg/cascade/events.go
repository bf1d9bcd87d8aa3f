package cascade

// AddedHandler is invoked when a row appears at a segment path.
type AddedHandler func(keyPath KeyPath, key Key, props Props)

// RemovedHandler is invoked when a row disappears from a segment path.
type RemovedHandler func(keyPath KeyPath, key Key, props Props)

// ModifiedHandler is invoked when a named property of a row changes.
type ModifiedHandler func(keyPath KeyPath, key Key, oldValue, newValue interface{})

// Source is the subscription contract every step satisfies (§3, §4.2):
// three registration operations plus access to the step's output
// descriptor. A Step holds a reference to exactly one upstream Source —
// the chain is therefore inherently acyclic (§9).
type Source interface {
	OnAdded(segPath SegPath, h AddedHandler)
	OnRemoved(segPath SegPath, h RemovedHandler)
	OnModified(segPath SegPath, property string, h ModifiedHandler)
	TypeDescriptor() *TypeDescriptor
}

// hub is an internal multiplexer: it fans a single upstream subscription
// out to any number of downstream handlers registered against this step's
// own output. Every concrete step embeds one hub per segment path it
// synthesizes; everything it does not own is forwarded upstream untouched
// (§9 "Transparent pass-through of unhandled subscriptions").
type hub struct {
	added    []AddedHandler
	removed  []RemovedHandler
	modified map[string][]ModifiedHandler
}

func newHub() *hub {
	return &hub{modified: map[string][]ModifiedHandler{}}
}

func (h *hub) addAdded(fn AddedHandler)     { h.added = append(h.added, fn) }
func (h *hub) addRemoved(fn RemovedHandler) { h.removed = append(h.removed, fn) }
func (h *hub) addModified(prop string, fn ModifiedHandler) {
	h.modified[prop] = append(h.modified[prop], fn)
}

func (h *hub) fireAdded(kp KeyPath, key Key, props Props) {
	for _, fn := range h.added {
		fn(kp, key, props)
	}
}

func (h *hub) fireRemoved(kp KeyPath, key Key, props Props) {
	for _, fn := range h.removed {
		fn(kp, key, props)
	}
}

func (h *hub) fireModified(prop string, kp KeyPath, key Key, old, new interface{}) {
	for _, fn := range h.modified[prop] {
		fn(kp, key, old, new)
	}
}

func (h *hub) hasModifiedSubscribers(prop string) bool {
	return len(h.modified[prop]) > 0
}
