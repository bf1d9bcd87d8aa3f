package cascade

import "testing"

func TestDefinePropertyComputesOnAdd(t *testing.T) {
	in := NewInputStep()
	step := NewDefinePropertyStep(in, SegPath{}, "densityClass", func(view Props) interface{} {
		pop, _ := view["population"].(int)
		if pop > 1000 {
			return "dense"
		}
		return "sparse"
	}, nil)

	var gotProps Props
	step.OnAdded(SegPath{}, func(kp KeyPath, key Key, props Props) {
		gotProps = props
	})

	in.Add("LA", Props{"population": 2000})

	if gotProps["densityClass"] != "dense" {
		t.Fatalf("expected synthesized property, got %+v", gotProps)
	}
	if gotProps["population"] != 2000 {
		t.Fatalf("expected original props to survive, got %+v", gotProps)
	}
}

func TestDefinePropertyRecomputesOnDependencyChange(t *testing.T) {
	in := NewInputStep()
	step := NewDefinePropertyStep(in, SegPath{}, "total", func(view Props) interface{} {
		a, _ := view["a"].(int)
		b, _ := view["b"].(int)
		return a + b
	}, []string{"b"})

	var events []interface{}
	step.OnAdded(SegPath{}, func(kp KeyPath, key Key, props Props) {
		events = append(events, props["total"])
	})
	step.OnModified(SegPath{}, "total", func(kp KeyPath, key Key, old, new interface{}) {
		events = append(events, new)
	})

	in.Add("row1", Props{"a": 1, "b": 2})
	in.root.fireModified("b", KeyPath{}, "row1", 2, 10)

	if events[0] != 3 {
		t.Fatalf("expected initial computed total of 3, got %v", events[0])
	}
	if events[1] != 11 {
		t.Fatalf("expected recomputed total of 11 after dependency change, got %v", events[1])
	}
}

func TestDefinePropertySilentNoOpOnUnchangedRecompute(t *testing.T) {
	in := NewInputStep()
	step := NewDefinePropertyStep(in, SegPath{}, "label", func(view Props) interface{} {
		return "constant"
	}, []string{"ignored"})

	modifiedCount := 0
	step.OnModified(SegPath{}, "label", func(kp KeyPath, key Key, old, new interface{}) {
		modifiedCount++
	})
	step.OnAdded(SegPath{}, func(kp KeyPath, key Key, props Props) {})

	in.Add("row1", Props{"ignored": 1})
	in.root.fireModified("ignored", KeyPath{}, "row1", 1, 2)

	if modifiedCount != 0 {
		t.Fatalf("expected no modified event when the recomputed value is unchanged, got %d", modifiedCount)
	}
}

func TestDefinePropertyRemovalCarriesLastValue(t *testing.T) {
	in := NewInputStep()
	step := NewDefinePropertyStep(in, SegPath{}, "doubled", func(view Props) interface{} {
		n, _ := view["n"].(int)
		return n * 2
	}, nil)

	var removedProps Props
	step.OnRemoved(SegPath{}, func(kp KeyPath, key Key, props Props) {
		removedProps = props
	})

	in.Add("row1", Props{"n": 5})
	in.Remove("row1", Props{"n": 5})

	if removedProps["doubled"] != 10 {
		t.Fatalf("expected removed event to carry the last computed value, got %+v", removedProps)
	}
}
