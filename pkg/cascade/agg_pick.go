package cascade

type pickChildState struct {
	immutable       Props
	mutable         Props
	comparisonValue float64
	hasComparison   bool
}

func (cs *pickChildState) composed() Props {
	out := cs.immutable.Copy()
	for k, v := range cs.mutable {
		out[k] = v
	}
	return out
}

type pickParentState struct {
	children map[Key]*pickChildState
	order    []Key
	pick     Key
	hasPick  bool
}

func newPickParentState() *pickParentState {
	return &pickParentState{children: map[Key]*pickChildState{}}
}

func (st *pickParentState) removeChild(key Key) {
	delete(st.children, key)
	for i, k := range st.order {
		if k == key {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
}

// recompute finds the extremal child by comparisonValue, earliest insertion
// winning ties (§4.7.4 "Ties: first-inserted child wins").
func (st *pickParentState) recompute(wantMax bool) (Key, bool) {
	var bestKey Key
	var bestVal float64
	found := false

	for _, k := range st.order {
		cs := st.children[k]
		if !cs.hasComparison {
			continue
		}
		if !found {
			bestKey, bestVal, found = k, cs.comparisonValue, true
			continue
		}
		if (wantMax && cs.comparisonValue > bestVal) || (!wantMax && cs.comparisonValue < bestVal) {
			bestKey, bestVal = k, cs.comparisonValue
		}
	}
	return bestKey, found
}

// PickByMinMaxStep implements §4.7.4: publishes the entire composed row of
// the child whose comparison property is extremal, not just the value.
type PickByMinMaxStep struct {
	aggregateBase
	comparisonProperty string
	mutableItemProps   []string
	wantMax            bool
	state              map[string]*pickParentState
}

func newPickByMinMaxStep(upstream Source, childScope SegPath, comparisonProperty, outputProperty string, wantMax bool) *PickByMinMaxStep {
	itemDesc := descriptorAt(upstream.TypeDescriptor(), childScope)

	mutableProps := make([]string, 0, len(itemDesc.MutableProperties))
	for name := range itemDesc.MutableProperties {
		mutableProps = append(mutableProps, name)
	}

	p := &PickByMinMaxStep{
		aggregateBase:      newAggregateBase(upstream, childScope, outputProperty),
		comparisonProperty: comparisonProperty,
		mutableItemProps:   mutableProps,
		wantMax:            wantMax,
		state:              map[string]*pickParentState{},
	}

	upstream.OnAdded(childScope, p.handleAdded)
	upstream.OnRemoved(childScope, p.handleRemoved)
	for _, prop := range mutableProps {
		prop := prop
		upstream.OnModified(childScope, prop, func(kp KeyPath, key Key, old, new interface{}) {
			p.handleItemModified(prop, kp, key, old, new)
		})
	}

	return p
}

// NewPickByMinStep publishes the composed row of the child with the
// smallest comparisonProperty as outputProperty on their parent.
func NewPickByMinStep(upstream Source, childScope SegPath, comparisonProperty, outputProperty string) *PickByMinMaxStep {
	return newPickByMinMaxStep(upstream, childScope, comparisonProperty, outputProperty, false)
}

// NewPickByMaxStep publishes the composed row of the child with the
// largest comparisonProperty as outputProperty on their parent.
func NewPickByMaxStep(upstream Source, childScope SegPath, comparisonProperty, outputProperty string) *PickByMinMaxStep {
	return newPickByMinMaxStep(upstream, childScope, comparisonProperty, outputProperty, true)
}

func (p *PickByMinMaxStep) ensure(id string) *pickParentState {
	st, ok := p.state[id]
	if !ok {
		st = newPickParentState()
		p.state[id] = st
	}
	return st
}

func (p *PickByMinMaxStep) pickAggregate(st *pickParentState) Aggregate[Props] {
	if !st.hasPick {
		return AbsentValue[Props]()
	}
	cs := st.children[st.pick]
	if cs == nil {
		return AbsentValue[Props]()
	}
	return PresentValue(cs.composed())
}

func (p *PickByMinMaxStep) refreshPick(st *pickParentState) {
	key, found := st.recompute(p.wantMax)
	st.pick, st.hasPick = key, found
}

func (p *PickByMinMaxStep) handleAdded(kp KeyPath, key Key, props Props) {
	id := p.parentRowID(kp)
	st := p.ensure(id)
	oldAgg := p.pickAggregate(st)

	mutable := make(Props, len(p.mutableItemProps))
	for _, name := range p.mutableItemProps {
		mutable[name] = props[name]
	}
	comparisonValue, hasComparison := numeric(props[p.comparisonProperty])

	st.children[key] = &pickChildState{
		immutable:       props,
		mutable:         mutable,
		comparisonValue: comparisonValue,
		hasComparison:   hasComparison,
	}
	st.order = append(st.order, key)

	p.refreshPick(st)
	p.emit(kp, oldAgg, p.pickAggregate(st))
}

func (p *PickByMinMaxStep) handleRemoved(kp KeyPath, key Key, props Props) {
	id := p.parentRowID(kp)
	st, ok := p.state[id]
	if !ok {
		return
	}
	oldAgg := p.pickAggregate(st)
	wasPick := st.hasPick && st.pick == key
	st.removeChild(key)

	if len(st.order) == 0 {
		delete(p.state, id)
		p.emit(kp, oldAgg, AbsentValue[Props]())
		return
	}

	if wasPick {
		p.refreshPick(st)
	}
	p.emit(kp, oldAgg, p.pickAggregate(st))
}

func (p *PickByMinMaxStep) handleItemModified(prop string, kp KeyPath, key Key, old, new interface{}) {
	id := p.parentRowID(kp)
	st, ok := p.state[id]
	if !ok {
		return
	}
	cs := st.children[key]
	if cs == nil {
		return
	}

	isComparison := prop == p.comparisonProperty
	isCurrentPick := st.hasPick && st.pick == key
	if !isComparison && !isCurrentPick {
		return // neither condition holds: no recompute needed (§4.7.4)
	}

	oldAgg := p.pickAggregate(st)
	// new may be an upstream aggregate's Aggregate[T] wrapper (§1 invariant
	// 5); the composed picked row must carry the raw value, never the
	// wrapper, and an absent aggregate drops the property from the row.
	if v, present := unwrapAggregate(new); present {
		cs.mutable[prop] = v
	} else {
		delete(cs.mutable, prop)
	}
	if isComparison {
		v, ok := numeric(new)
		cs.comparisonValue, cs.hasComparison = v, ok
	}

	p.refreshPick(st)
	p.emit(kp, oldAgg, p.pickAggregate(st))
}
