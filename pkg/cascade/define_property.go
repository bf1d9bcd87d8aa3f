package cascade

import "reflect"

type definePropertyRow struct {
	immutableProps Props
	mutableValues  Props
	lastValue      interface{}
}

// DefinePropertyStep implements §4.4: it synthesizes propertyName at scope
// by calling compute over each row's immutable props composed with the
// current value of every declared mutable dependency.
//
// Per Decision D1 (DESIGN.md), a dependency's value at the row's first
// `added` is read straight from the immutable payload — immutable props
// are authoritative at emission time, so there is no "absent" state to
// represent for a value that has simply never been overwritten yet. Once a
// `modified` for that dependency arrives, the cached value is maintained
// purely from that stream.
type DefinePropertyStep struct {
	upstream            Source
	scope               SegPath
	propertyName        string
	compute             func(view Props) interface{}
	mutableDependencies []string

	own  *hub
	desc *TypeDescriptor

	rows map[string]*definePropertyRow
}

// NewDefinePropertyStep constructs a DefinePropertyStep. mutableDependencies
// names the subset of propertyName's inputs that upstream may emit
// `modified` for; compute receives immutable props overlaid with the
// current mutable values.
func NewDefinePropertyStep(upstream Source, scope SegPath, propertyName string, compute func(view Props) interface{}, mutableDependencies []string) *DefinePropertyStep {
	d := &DefinePropertyStep{
		upstream:            upstream,
		scope:               scope,
		propertyName:        propertyName,
		compute:             compute,
		mutableDependencies: mutableDependencies,
		own:                 newHub(),
		rows:                map[string]*definePropertyRow{},
	}

	itemDesc := descriptorAt(upstream.TypeDescriptor(), scope)
	outItemDesc := itemDesc.Clone()
	if len(mutableDependencies) > 0 {
		outItemDesc = outItemDesc.WithMutable(propertyName)
	}
	d.desc = withDescriptorAt(upstream.TypeDescriptor(), scope, outItemDesc)

	upstream.OnAdded(scope, d.handleAdded)
	upstream.OnRemoved(scope, d.handleRemoved)
	for _, dep := range mutableDependencies {
		dep := dep
		upstream.OnModified(scope, dep, func(kp KeyPath, key Key, old, new interface{}) {
			d.handleDependencyModified(dep, kp, key, new)
		})
	}

	return d
}

func (d *DefinePropertyStep) rowID(kp KeyPath, key Key) string {
	return PathHash(d.scope, kp.Append(key))
}

func (d *DefinePropertyStep) composeView(row *definePropertyRow) Props {
	view := row.immutableProps.Copy()
	for k, v := range row.mutableValues {
		view[k] = v
	}
	return view
}

func (d *DefinePropertyStep) handleAdded(kp KeyPath, key Key, props Props) {
	mv := make(Props, len(d.mutableDependencies))
	for _, dep := range d.mutableDependencies {
		mv[dep] = props[dep]
	}
	row := &definePropertyRow{immutableProps: props, mutableValues: mv}
	row.lastValue = d.compute(d.composeView(row))
	d.rows[d.rowID(kp, key)] = row

	d.own.fireAdded(kp, key, props.With(d.propertyName, row.lastValue))
}

func (d *DefinePropertyStep) handleRemoved(kp KeyPath, key Key, props Props) {
	id := d.rowID(kp, key)
	row, ok := d.rows[id]
	if !ok {
		d.own.fireRemoved(kp, key, props)
		return
	}
	delete(d.rows, id)
	d.own.fireRemoved(kp, key, props.With(d.propertyName, row.lastValue))
}

func (d *DefinePropertyStep) handleDependencyModified(dep string, kp KeyPath, key Key, new interface{}) {
	row, ok := d.rows[d.rowID(kp, key)]
	if !ok {
		return
	}
	old := row.lastValue
	// new may be an upstream aggregate's Aggregate[T] wrapper (§1 invariant
	// 5); compute must see the carried value, and an absent aggregate drops
	// the dependency from the view entirely rather than caching the wrapper.
	if v, present := unwrapAggregate(new); present {
		row.mutableValues[dep] = v
	} else {
		delete(row.mutableValues, dep)
	}
	newValue := d.compute(d.composeView(row))
	if reflect.DeepEqual(newValue, old) {
		return // silent no-op (§7): recomputed value unchanged
	}
	row.lastValue = newValue
	d.own.fireModified(d.propertyName, kp, key, old, newValue)
}

// OnAdded implements Source.
func (d *DefinePropertyStep) OnAdded(segPath SegPath, h AddedHandler) {
	if PathsMatch(segPath, d.scope) {
		d.own.addAdded(h)
		return
	}
	d.upstream.OnAdded(segPath, h)
}

// OnRemoved implements Source.
func (d *DefinePropertyStep) OnRemoved(segPath SegPath, h RemovedHandler) {
	if PathsMatch(segPath, d.scope) {
		d.own.addRemoved(h)
		return
	}
	d.upstream.OnRemoved(segPath, h)
}

// OnModified implements Source. Only propertyName itself is intercepted;
// any other property at scope (or any property at any other segment path)
// is forwarded untouched, since defining a property changes a row's
// payload but never its key path or segment-path shape.
func (d *DefinePropertyStep) OnModified(segPath SegPath, property string, h ModifiedHandler) {
	if PathsMatch(segPath, d.scope) && property == d.propertyName {
		d.own.addModified(property, h)
		return
	}
	d.upstream.OnModified(segPath, property, h)
}

// TypeDescriptor implements Source.
func (d *DefinePropertyStep) TypeDescriptor() *TypeDescriptor {
	return d.desc
}
