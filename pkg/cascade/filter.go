package cascade

// filterRow is the per-row gating state FilterStep keeps for every row it
// has ever seen at scope, not only rows currently passing — required to
// re-evaluate the predicate correctly on a later dependency change.
type filterRow struct {
	props         Props
	mutableValues Props
	passed        bool
	pending       []func() // queued descendant events, replayed FIFO on false->true
}

// FilterStep implements §4.6: rows at scope are gated by predicate, and
// every event at or below scope is suppressed while the owning row does
// not pass, then replayed in order once it starts passing.
type FilterStep struct {
	upstream            Source
	scope               SegPath
	predicate           func(view Props) bool
	mutableDependencies []string
	dependencySet       map[string]bool

	own  *hub
	desc *TypeDescriptor

	rows map[string]*filterRow
}

// NewFilterStep constructs a FilterStep. mutableDependencies names the
// predicate's tracked inputs (upstream emits `modified` for these at
// scope); everything else in a row's props is read once at `added`.
func NewFilterStep(upstream Source, scope SegPath, predicate func(view Props) bool, mutableDependencies []string) *FilterStep {
	f := &FilterStep{
		upstream:            upstream,
		scope:               scope,
		predicate:           predicate,
		mutableDependencies: mutableDependencies,
		dependencySet:       map[string]bool{},
		own:                 newHub(),
		desc:                upstream.TypeDescriptor(),
		rows:                map[string]*filterRow{},
	}
	for _, dep := range mutableDependencies {
		f.dependencySet[dep] = true
	}

	upstream.OnAdded(scope, f.handleAdded)
	upstream.OnRemoved(scope, f.handleRemoved)
	for _, dep := range mutableDependencies {
		dep := dep
		upstream.OnModified(scope, dep, func(kp KeyPath, key Key, old, new interface{}) {
			f.handleScopeModified(dep, kp, key, old, new)
		})
	}

	return f
}

func (f *FilterStep) rowID(kp KeyPath, key Key) string {
	return PathHash(f.scope, kp.Append(key))
}

func (f *FilterStep) ancestorRowID(kp KeyPath) string {
	rowID := ScopeRowID(f.scope, kp)
	return PathHash(f.scope, rowID.KeyPath.Append(rowID.Key))
}

func (f *FilterStep) composeView(row *filterRow) Props {
	view := row.props.Copy()
	for k, v := range row.mutableValues {
		view[k] = v
	}
	return view
}

func (f *FilterStep) handleAdded(kp KeyPath, key Key, props Props) {
	mv := make(Props, len(f.mutableDependencies))
	for _, dep := range f.mutableDependencies {
		mv[dep] = props[dep]
	}
	row := &filterRow{props: props, mutableValues: mv}
	row.passed = f.predicate(f.composeView(row))
	f.rows[f.rowID(kp, key)] = row

	if row.passed {
		f.own.fireAdded(kp, key, props)
	}
}

func (f *FilterStep) handleRemoved(kp KeyPath, key Key, props Props) {
	id := f.rowID(kp, key)
	row, ok := f.rows[id]
	if !ok {
		return
	}
	if row.passed {
		f.own.fireRemoved(kp, key, props)
	}
	delete(f.rows, id)
}

func (f *FilterStep) handleScopeModified(dep string, kp KeyPath, key Key, old, new interface{}) {
	id := f.rowID(kp, key)
	row, ok := f.rows[id]
	if !ok {
		return
	}

	// new may be an upstream aggregate's Aggregate[T] wrapper (§1 invariant
	// 5); predicate must see the carried value, and an absent aggregate
	// drops the dependency from the view entirely rather than caching the
	// wrapper.
	if v, present := unwrapAggregate(new); present {
		row.mutableValues[dep] = v
	} else {
		delete(row.mutableValues, dep)
	}
	newPassed := f.predicate(f.composeView(row))

	switch {
	case newPassed == row.passed:
		if row.passed {
			f.own.fireModified(dep, kp, key, old, new)
		}
	case newPassed:
		row.passed = true
		f.own.fireAdded(kp, key, f.composeView(row))
		f.flushPending(id)
	default:
		row.passed = false
		f.own.fireRemoved(kp, key, f.composeView(row))
	}
}

func (f *FilterStep) flushPending(id string) {
	row := f.rows[id]
	if row == nil {
		return
	}
	pending := row.pending
	row.pending = nil
	for _, fn := range pending {
		fn()
	}
}

// OnAdded implements Source.
func (f *FilterStep) OnAdded(segPath SegPath, h AddedHandler) {
	switch {
	case PathsMatch(segPath, f.scope):
		f.own.addAdded(h)
	case PathUnder(segPath, f.scope):
		f.relayAdded(segPath, h)
	default:
		f.upstream.OnAdded(segPath, h)
	}
}

// OnRemoved implements Source.
func (f *FilterStep) OnRemoved(segPath SegPath, h RemovedHandler) {
	switch {
	case PathsMatch(segPath, f.scope):
		f.own.addRemoved(h)
	case PathUnder(segPath, f.scope):
		f.relayRemoved(segPath, h)
	default:
		f.upstream.OnRemoved(segPath, h)
	}
}

// OnModified implements Source.
func (f *FilterStep) OnModified(segPath SegPath, property string, h ModifiedHandler) {
	switch {
	case PathsMatch(segPath, f.scope):
		f.own.addModified(property, h)
		if !f.dependencySet[property] {
			f.relayUntrackedScopeModified(property)
		}
	case PathUnder(segPath, f.scope):
		f.relayModified(segPath, property, h)
	default:
		f.upstream.OnModified(segPath, property, h)
	}
}

// TypeDescriptor implements Source. FilterStep never changes a row's
// shape, only whether it is visible, so it reuses upstream's descriptor.
func (f *FilterStep) TypeDescriptor() *TypeDescriptor {
	return f.desc
}

// relayUntrackedScopeModified wires a pass-through for a scope-level
// property the predicate doesn't read, gated on the row's pass status the
// same as any other downstream-visible event.
func (f *FilterStep) relayUntrackedScopeModified(property string) {
	f.upstream.OnModified(f.scope, property, func(kp KeyPath, key Key, old, new interface{}) {
		id := f.rowID(kp, key)
		row, ok := f.rows[id]
		if !ok {
			return
		}
		if row.passed {
			f.own.fireModified(property, kp, key, old, new)
		} else {
			row.pending = append(row.pending, func() { f.own.fireModified(property, kp, key, old, new) })
		}
	})
}

func (f *FilterStep) relayAdded(segPath SegPath, h AddedHandler) {
	f.upstream.OnAdded(segPath, func(kp KeyPath, key Key, props Props) {
		id := f.ancestorRowID(kp)
		row, ok := f.rows[id]
		if !ok {
			return
		}
		if row.passed {
			h(kp, key, props)
		} else {
			row.pending = append(row.pending, func() { h(kp, key, props) })
		}
	})
}

func (f *FilterStep) relayRemoved(segPath SegPath, h RemovedHandler) {
	f.upstream.OnRemoved(segPath, func(kp KeyPath, key Key, props Props) {
		id := f.ancestorRowID(kp)
		row, ok := f.rows[id]
		if !ok || !row.passed {
			return // never observed as passing downstream; safe to drop (§4.6)
		}
		h(kp, key, props)
	})
}

func (f *FilterStep) relayModified(segPath SegPath, property string, h ModifiedHandler) {
	f.upstream.OnModified(segPath, property, func(kp KeyPath, key Key, old, new interface{}) {
		id := f.ancestorRowID(kp)
		row, ok := f.rows[id]
		if !ok {
			return
		}
		if row.passed {
			h(kp, key, old, new)
		} else {
			row.pending = append(row.pending, func() { h(kp, key, old, new) })
		}
	})
}
