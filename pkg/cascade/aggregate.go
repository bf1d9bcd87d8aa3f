package cascade

// Aggregate is the sum type every aggregate step's `modified` event carries
// for its old and new values (§9 "Representation of absent aggregates"):
// either Present(value) or Absent, so the binder can tell "set property to
// value" apart from "delete property" when a parent's last child is
// removed.
type Aggregate[T any] struct {
	value   T
	present bool
}

// PresentValue wraps v as a present aggregate.
func PresentValue[T any](v T) Aggregate[T] {
	return Aggregate[T]{value: v, present: true}
}

// AbsentValue returns the absent aggregate for T.
func AbsentValue[T any]() Aggregate[T] {
	return Aggregate[T]{}
}

// IsPresent reports whether the aggregate carries a value.
func (a Aggregate[T]) IsPresent() bool {
	return a.present
}

// Value returns the carried value and whether it is present. The returned
// value is T's zero value when absent.
func (a Aggregate[T]) Value() (T, bool) {
	return a.value, a.present
}

// AsInterface boxes the carried value as interface{}, satisfying
// presenceCarrier so the binder can unwrap any Aggregate[T] instantiation
// without knowing T.
func (a Aggregate[T]) AsInterface() (interface{}, bool) {
	if !a.present {
		return nil, false
	}
	return a.value, true
}

// presenceCarrier is implemented by every Aggregate[T] instantiation; the
// binder type-asserts a modified event's new value against it to tell
// "set property" apart from "delete property" without depending on T.
type presenceCarrier interface {
	AsInterface() (interface{}, bool)
}

// aggregateBase is the common plumbing every §4.7 aggregate step shares:
// it owns nothing about rows themselves (it never intercepts added or
// removed), only a single synthesized mutable property at parentScope,
// fired via `modified` as the child set under childScope changes.
type aggregateBase struct {
	upstream     Source
	childScope   SegPath // full segment path to the aggregated array
	parentScope  SegPath // childScope with its last segment dropped
	propertyName string

	own  *hub
	desc *TypeDescriptor
}

func newAggregateBase(upstream Source, childScope SegPath, propertyName string) aggregateBase {
	parentScope := childScope[:len(childScope)-1]

	itemDesc := descriptorAt(upstream.TypeDescriptor(), parentScope).WithMutable(propertyName)
	desc := withDescriptorAt(upstream.TypeDescriptor(), parentScope, itemDesc)

	return aggregateBase{
		upstream:     upstream,
		childScope:   childScope,
		parentScope:  parentScope,
		propertyName: propertyName,
		own:          newHub(),
		desc:         desc,
	}
}

// parentRowID identifies the parent owning a child event whose key path is
// kp (length equal to len(childScope)).
func (a *aggregateBase) parentRowID(kp KeyPath) string {
	return PathHash(a.childScope, kp)
}

// emit fires the synthesized property's modified event for the parent
// reached by a child's key path kp, deriving grandparent key path and
// parent key per §4.7's "splitting the upstream child key-path".
func (a *aggregateBase) emit(kp KeyPath, oldVal, newVal interface{}) {
	grandparentKP, parentKey := SplitChildKeyPath(kp)
	a.own.fireModified(a.propertyName, grandparentKP, parentKey, oldVal, newVal)
}

// OnAdded implements Source: an aggregate never changes tree shape, so
// every added subscription passes straight through.
func (a *aggregateBase) OnAdded(segPath SegPath, h AddedHandler) {
	a.upstream.OnAdded(segPath, h)
}

// OnRemoved implements Source.
func (a *aggregateBase) OnRemoved(segPath SegPath, h RemovedHandler) {
	a.upstream.OnRemoved(segPath, h)
}

// OnModified implements Source: only the synthesized property at
// parentScope is intercepted; everything else forwards untouched.
func (a *aggregateBase) OnModified(segPath SegPath, property string, h ModifiedHandler) {
	if PathsMatch(segPath, a.parentScope) && property == a.propertyName {
		a.own.addModified(property, h)
		return
	}
	a.upstream.OnModified(segPath, property, h)
}

// TypeDescriptor implements Source.
func (a *aggregateBase) TypeDescriptor() *TypeDescriptor {
	return a.desc
}

// unwrapAggregate peels off one layer of Aggregate[T] wrapping, if v is
// an aggregate step's emitted value (satisfies presenceCarrier): chained
// aggregates (§1 invariant 5, "mutable properties cascade through
// arbitrarily deep aggregate chains") must see the carried value, not the
// wrapper, wherever that value feeds a downstream computation. A plain,
// never-wrapped value passes through unchanged and is always present.
func unwrapAggregate(v interface{}) (interface{}, bool) {
	if carrier, ok := v.(presenceCarrier); ok {
		return carrier.AsInterface()
	}
	return v, true
}

// numeric coerces a child prop value to float64, reporting false for
// anything that isn't a number (§4.7.2/§4.7.3 "non-numeric values are
// ignored"). Values carried by an upstream aggregate's modified event are
// unwrapped first, so a chained aggregate reads the number, not the
// Aggregate[float64] wrapper.
func numeric(v interface{}) (float64, bool) {
	v, present := unwrapAggregate(v)
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
