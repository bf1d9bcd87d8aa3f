package cascade

// commutativeState is the running accumulator for one parent, plus how
// many children have contributed to it (so the record can be destroyed,
// and the aggregate reported absent, once the count reaches zero).
type commutativeState struct {
	acc   float64
	count int
}

// CommutativeAggregateStep implements §4.7.1: sum and count, built from an
// add/subtract pair forming an abelian group over float64 under equality.
type CommutativeAggregateStep struct {
	aggregateBase
	itemProperty string // "" for count, which reads no child property
	add          func(acc float64, item Props) float64
	subtract     func(acc float64, item Props) float64
	state        map[string]*commutativeState
}

func newCommutativeAggregateStep(upstream Source, childScope SegPath, itemProperty, outputProperty string, add, subtract func(acc float64, item Props) float64) *CommutativeAggregateStep {
	c := &CommutativeAggregateStep{
		aggregateBase: newAggregateBase(upstream, childScope, outputProperty),
		itemProperty:  itemProperty,
		add:           add,
		subtract:      subtract,
		state:         map[string]*commutativeState{},
	}

	upstream.OnAdded(childScope, c.handleAdded)
	upstream.OnRemoved(childScope, c.handleRemoved)

	if itemProperty != "" {
		itemDesc := descriptorAt(upstream.TypeDescriptor(), childScope)
		if itemDesc.IsMutable(itemProperty) {
			upstream.OnModified(childScope, itemProperty, c.handleItemModified)
		}
	}

	return c
}

// NewSumAggregateStep sums itemProperty over childScope's rows, publishing
// the result as outputProperty on their parent.
func NewSumAggregateStep(upstream Source, childScope SegPath, itemProperty, outputProperty string) *CommutativeAggregateStep {
	add := func(acc float64, item Props) float64 {
		v, _ := numeric(item[itemProperty])
		return acc + v
	}
	subtract := func(acc float64, item Props) float64 {
		v, _ := numeric(item[itemProperty])
		return acc - v
	}
	return newCommutativeAggregateStep(upstream, childScope, itemProperty, outputProperty, add, subtract)
}

// NewCountAggregateStep counts childScope's rows, publishing the result as
// outputProperty on their parent.
func NewCountAggregateStep(upstream Source, childScope SegPath, outputProperty string) *CommutativeAggregateStep {
	add := func(acc float64, item Props) float64 { return acc + 1 }
	subtract := func(acc float64, item Props) float64 { return acc - 1 }
	return newCommutativeAggregateStep(upstream, childScope, "", outputProperty, add, subtract)
}

func (c *CommutativeAggregateStep) handleAdded(kp KeyPath, key Key, props Props) {
	id := c.parentRowID(kp)
	st, existed := c.state[id]

	var oldAgg Aggregate[float64]
	if !existed {
		st = &commutativeState{}
		c.state[id] = st
		oldAgg = AbsentValue[float64]()
	} else {
		oldAgg = PresentValue(st.acc)
	}

	st.acc = c.add(st.acc, props)
	st.count++
	c.emit(kp, oldAgg, PresentValue(st.acc))
}

func (c *CommutativeAggregateStep) handleRemoved(kp KeyPath, key Key, props Props) {
	id := c.parentRowID(kp)
	st, ok := c.state[id]
	if !ok {
		return
	}

	oldAgg := PresentValue(st.acc)
	st.acc = c.subtract(st.acc, props)
	st.count--

	if st.count <= 0 {
		delete(c.state, id)
		c.emit(kp, oldAgg, AbsentValue[float64]())
		return
	}
	c.emit(kp, oldAgg, PresentValue(st.acc))
}

// handleItemModified re-derives the accumulator by subtracting the child's
// prior contribution then adding its new one. The subtract-then-add order
// only matters when add isn't associative with subtract; for sum and
// count it is, so this is safe for both.
func (c *CommutativeAggregateStep) handleItemModified(kp KeyPath, key Key, old, new interface{}) {
	id := c.parentRowID(kp)
	st, ok := c.state[id]
	if !ok {
		return
	}

	oldAgg := PresentValue(st.acc)
	synthOld := Props{c.itemProperty: old}
	synthNew := Props{c.itemProperty: new}
	st.acc = c.add(c.subtract(st.acc, synthOld), synthNew)
	c.emit(kp, oldAgg, PresentValue(st.acc))
}
