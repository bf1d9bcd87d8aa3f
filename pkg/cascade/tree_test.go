package cascade

import "testing"

func TestApplyOperationAddAtRoot(t *testing.T) {
	var root []*Row
	err := applyOperation(&root, operation{kind: opAdded, key: "row1", props: Props{"x": 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root) != 1 || root[0].Key != "row1" {
		t.Fatalf("expected row1 added at root, got %+v", root)
	}
}

func TestApplyOperationAddedMissingParentIsContractViolation(t *testing.T) {
	var root []*Row
	err := applyOperation(&root, operation{
		kind:    opAdded,
		segPath: SegPath{"cities"},
		keyPath: KeyPath{"CA"},
		key:     "LA",
		props:   Props{},
	})
	if _, ok := err.(ContractViolationError); !ok {
		t.Fatalf("expected a ContractViolationError for an added into a missing non-root parent, got %v", err)
	}
}

func TestApplyOperationRemoveMissingParentIsWarningNotError(t *testing.T) {
	var root []*Row
	err := applyOperation(&root, operation{
		kind:    opRemoved,
		segPath: SegPath{"cities"},
		keyPath: KeyPath{"CA"},
		key:     "LA",
	})
	if err != nil {
		t.Fatalf("expected a missing parent on remove to warn and skip, not error, got %v", err)
	}
}

func TestApplyOperationModifyUnwrapsAbsentAggregate(t *testing.T) {
	root := []*Row{{Key: "CA", Props: Props{"totalPopulation": 100.0}}}
	err := applyOperation(&root, operation{
		kind:     opModified,
		key:      "CA",
		property: "totalPopulation",
		newValue: AbsentValue[float64](),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := root[0].Props["totalPopulation"]; ok {
		t.Fatalf("expected an absent aggregate to delete the property, got %+v", root[0].Props)
	}
}

func TestApplyOperationModifySetsPresentAggregate(t *testing.T) {
	root := []*Row{{Key: "CA", Props: Props{}}}
	err := applyOperation(&root, operation{
		kind:     opModified,
		key:      "CA",
		property: "totalPopulation",
		newValue: PresentValue(42.0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root[0].Props["totalPopulation"] != 42.0 {
		t.Fatalf("expected the present aggregate's value set, got %+v", root[0].Props)
	}
}

func TestApplyOperationsStopsAtFirstContractViolation(t *testing.T) {
	var root []*Row
	ops := []operation{
		{kind: opAdded, key: "ok", props: Props{}},
		{kind: opAdded, segPath: SegPath{"cities"}, keyPath: KeyPath{"missing"}, key: "LA", props: Props{}},
	}
	err := applyOperations(&root, ops)
	if err == nil {
		t.Fatalf("expected the batch to surface the contract violation")
	}
	if len(root) != 1 {
		t.Fatalf("expected the first operation to have applied before the violation, got %+v", root)
	}
}
