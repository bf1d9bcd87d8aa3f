package cascade

// minMaxState is the per-parent multiset of numeric child values: a map
// for O(1) per-key update plus an insertion-ordered slice so ties break on
// discovery order (§4.7.2).
type minMaxState struct {
	values map[Key]float64
	order  []Key
}

func newMinMaxState() *minMaxState {
	return &minMaxState{values: map[Key]float64{}}
}

func (s *minMaxState) insert(key Key, v float64) {
	if _, ok := s.values[key]; !ok {
		s.order = append(s.order, key)
	}
	s.values[key] = v
}

func (s *minMaxState) remove(key Key) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *minMaxState) extremum(wantMax bool) (float64, bool) {
	if len(s.order) == 0 {
		return 0, false
	}
	best := s.values[s.order[0]]
	for _, k := range s.order[1:] {
		v := s.values[k]
		if (wantMax && v > best) || (!wantMax && v < best) {
			best = v
		}
	}
	return best, true
}

// MinMaxAggregateStep implements §4.7.2.
type MinMaxAggregateStep struct {
	aggregateBase
	itemProperty string
	wantMax      bool
	state        map[string]*minMaxState
}

func newMinMaxAggregateStep(upstream Source, childScope SegPath, itemProperty, outputProperty string, wantMax bool) *MinMaxAggregateStep {
	m := &MinMaxAggregateStep{
		aggregateBase: newAggregateBase(upstream, childScope, outputProperty),
		itemProperty:  itemProperty,
		wantMax:       wantMax,
		state:         map[string]*minMaxState{},
	}

	upstream.OnAdded(childScope, m.handleAdded)
	upstream.OnRemoved(childScope, m.handleRemoved)

	itemDesc := descriptorAt(upstream.TypeDescriptor(), childScope)
	if itemDesc.IsMutable(itemProperty) {
		upstream.OnModified(childScope, itemProperty, m.handleItemModified)
	}

	return m
}

// NewMinAggregateStep publishes the minimum of itemProperty across
// childScope's rows as outputProperty on their parent.
func NewMinAggregateStep(upstream Source, childScope SegPath, itemProperty, outputProperty string) *MinMaxAggregateStep {
	return newMinMaxAggregateStep(upstream, childScope, itemProperty, outputProperty, false)
}

// NewMaxAggregateStep publishes the maximum of itemProperty across
// childScope's rows as outputProperty on their parent.
func NewMaxAggregateStep(upstream Source, childScope SegPath, itemProperty, outputProperty string) *MinMaxAggregateStep {
	return newMinMaxAggregateStep(upstream, childScope, itemProperty, outputProperty, true)
}

func (m *MinMaxAggregateStep) ensure(id string) *minMaxState {
	st, ok := m.state[id]
	if !ok {
		st = newMinMaxState()
		m.state[id] = st
	}
	return st
}

func (m *MinMaxAggregateStep) aggregateOf(st *minMaxState) Aggregate[float64] {
	v, ok := st.extremum(m.wantMax)
	if !ok {
		return AbsentValue[float64]()
	}
	return PresentValue(v)
}

func (m *MinMaxAggregateStep) handleAdded(kp KeyPath, key Key, props Props) {
	v, ok := numeric(props[m.itemProperty])
	if !ok {
		return // non-numeric values are ignored (§4.7.2)
	}

	id := m.parentRowID(kp)
	st := m.ensure(id)
	oldAgg := m.aggregateOf(st)
	st.insert(key, v)
	m.emit(kp, oldAgg, m.aggregateOf(st))
}

func (m *MinMaxAggregateStep) handleRemoved(kp KeyPath, key Key, props Props) {
	if _, ok := numeric(props[m.itemProperty]); !ok {
		return
	}

	id := m.parentRowID(kp)
	st, ok := m.state[id]
	if !ok {
		return
	}
	oldAgg := m.aggregateOf(st)
	st.remove(key)

	if len(st.order) == 0 {
		delete(m.state, id)
		m.emit(kp, oldAgg, AbsentValue[float64]())
		return
	}
	m.emit(kp, oldAgg, m.aggregateOf(st))
}

func (m *MinMaxAggregateStep) handleItemModified(kp KeyPath, key Key, old, new interface{}) {
	id := m.parentRowID(kp)
	st := m.ensure(id)
	oldAgg := m.aggregateOf(st)

	if v, ok := numeric(new); ok {
		st.insert(key, v)
	} else {
		st.remove(key)
	}

	if len(st.order) == 0 {
		delete(m.state, id)
		m.emit(kp, oldAgg, AbsentValue[float64]())
		return
	}
	m.emit(kp, oldAgg, m.aggregateOf(st))
}
