package cascade

type averageState struct {
	sum   float64
	count int
}

// AverageAggregateStep implements §4.7.3.
type AverageAggregateStep struct {
	aggregateBase
	itemProperty string
	state        map[string]*averageState
}

// NewAverageAggregateStep publishes the mean of itemProperty across
// childScope's rows as outputProperty on their parent.
func NewAverageAggregateStep(upstream Source, childScope SegPath, itemProperty, outputProperty string) *AverageAggregateStep {
	a := &AverageAggregateStep{
		aggregateBase: newAggregateBase(upstream, childScope, outputProperty),
		itemProperty:  itemProperty,
		state:         map[string]*averageState{},
	}

	upstream.OnAdded(childScope, a.handleAdded)
	upstream.OnRemoved(childScope, a.handleRemoved)

	itemDesc := descriptorAt(upstream.TypeDescriptor(), childScope)
	if itemDesc.IsMutable(itemProperty) {
		upstream.OnModified(childScope, itemProperty, a.handleItemModified)
	}

	return a
}

func (a *AverageAggregateStep) ensure(id string) *averageState {
	st, ok := a.state[id]
	if !ok {
		st = &averageState{}
		a.state[id] = st
	}
	return st
}

func (a *AverageAggregateStep) averageOf(st *averageState) Aggregate[float64] {
	if st.count <= 0 {
		return AbsentValue[float64]()
	}
	return PresentValue(st.sum / float64(st.count))
}

func (a *AverageAggregateStep) handleAdded(kp KeyPath, key Key, props Props) {
	v, ok := numeric(props[a.itemProperty])
	if !ok {
		return
	}

	id := a.parentRowID(kp)
	st := a.ensure(id)
	oldAgg := a.averageOf(st)
	st.sum += v
	st.count++
	a.emit(kp, oldAgg, a.averageOf(st))
}

func (a *AverageAggregateStep) handleRemoved(kp KeyPath, key Key, props Props) {
	v, ok := numeric(props[a.itemProperty])
	if !ok {
		return
	}

	id := a.parentRowID(kp)
	st, ok2 := a.state[id]
	if !ok2 {
		return
	}
	oldAgg := a.averageOf(st)
	st.sum -= v
	st.count--

	if st.count <= 0 {
		delete(a.state, id)
		a.emit(kp, oldAgg, AbsentValue[float64]())
		return
	}
	a.emit(kp, oldAgg, a.averageOf(st))
}

func (a *AverageAggregateStep) handleItemModified(kp KeyPath, key Key, old, new interface{}) {
	id := a.parentRowID(kp)
	st := a.ensure(id)
	oldAgg := a.averageOf(st)

	if oldV, ok := numeric(old); ok {
		st.sum -= oldV
		st.count--
	}
	if newV, ok := numeric(new); ok {
		st.sum += newV
		st.count++
	}

	if st.count <= 0 {
		delete(a.state, id)
		a.emit(kp, oldAgg, AbsentValue[float64]())
		return
	}
	a.emit(kp, oldAgg, a.averageOf(st))
}
