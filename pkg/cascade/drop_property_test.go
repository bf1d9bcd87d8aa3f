package cascade

import "testing"

func TestDropPropertyRemovesFieldFromPayload(t *testing.T) {
	in := NewInputStep()
	step := NewDropPropertyStep(in, SegPath{}, "secret")

	var added, removed Props
	step.OnAdded(SegPath{}, func(kp KeyPath, key Key, props Props) { added = props })
	step.OnRemoved(SegPath{}, func(kp KeyPath, key Key, props Props) { removed = props })

	in.Add("row1", Props{"name": "x", "secret": 42})
	in.Remove("row1", Props{"name": "x", "secret": 42})

	if _, ok := added["secret"]; ok {
		t.Fatalf("expected secret dropped from added payload, got %+v", added)
	}
	if added["name"] != "x" {
		t.Fatalf("expected unrelated fields to survive, got %+v", added)
	}
	if _, ok := removed["secret"]; ok {
		t.Fatalf("expected secret dropped from removed payload, got %+v", removed)
	}
}

func TestDropPropertyDescriptorLosesMutability(t *testing.T) {
	in := NewInputStep()
	withMutable := NewDefinePropertyStep(in, SegPath{}, "secret", func(view Props) interface{} { return 1 }, []string{"x"})
	step := NewDropPropertyStep(withMutable, SegPath{}, "secret")

	if step.TypeDescriptor().IsMutable("secret") {
		t.Fatalf("expected dropped property to no longer be declared mutable")
	}
}

func TestDropPropertyModifiedNeverFiresForDroppedName(t *testing.T) {
	in := NewInputStep()
	withMutable := NewDefinePropertyStep(in, SegPath{}, "secret", func(view Props) interface{} {
		x, _ := view["x"].(int)
		return x
	}, []string{"x"})
	step := NewDropPropertyStep(withMutable, SegPath{}, "secret")

	fired := false
	step.OnModified(SegPath{}, "secret", func(kp KeyPath, key Key, old, new interface{}) { fired = true })

	in.Add("row1", Props{"x": 1})
	in.root.fireModified("x", KeyPath{}, "row1", 1, 2)

	if fired {
		t.Fatalf("expected a dropped property's modified subscription to never fire")
	}
}
