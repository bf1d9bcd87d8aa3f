package cascade

// OutputBinder walks the last step's descriptor and subscribes to every
// segment path it exposes, translating every added/removed/modified event
// into an operation enqueued on a BatchedStateUpdater (§4.8). It holds no
// state of its own once construction completes; all the subscriptions it
// registers stay live for the lifetime of the underlying step graph.
type OutputBinder struct {
	source  Source
	updater *BatchedStateUpdater
}

// NewOutputBinder binds source's exposed tree to updater and returns the
// binder. Binding happens once, at construction: the descriptor is
// immutable once produced (§5), so there is nothing to re-bind later.
func NewOutputBinder(source Source, updater *BatchedStateUpdater) *OutputBinder {
	b := &OutputBinder{source: source, updater: updater}
	b.bind(SegPath{}, source.TypeDescriptor())
	return b
}

func (b *OutputBinder) bind(segPath SegPath, desc *TypeDescriptor) {
	path := segPath
	b.source.OnAdded(path, func(kp KeyPath, key Key, props Props) {
		b.updater.Enqueue(operation{kind: opAdded, segPath: path, keyPath: kp, key: key, props: props})
	})
	b.source.OnRemoved(path, func(kp KeyPath, key Key, props Props) {
		b.updater.Enqueue(operation{kind: opRemoved, segPath: path, keyPath: kp, key: key})
	})
	for prop := range desc.MutableProperties {
		propName := prop
		b.source.OnModified(path, propName, func(kp KeyPath, key Key, old, new interface{}) {
			b.updater.Enqueue(operation{kind: opModified, segPath: path, keyPath: kp, key: key, property: propName, newValue: new})
		})
	}
	for _, arr := range desc.Arrays {
		b.bind(path.Append(arr.Name), arr.Type)
	}
}
