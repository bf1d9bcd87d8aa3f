package cascade

import "fmt"

// Row is one entry in the materialized tree: a key plus its properties,
// which may themselves hold nested arrays of child Rows under an
// array-property name (§6 "a keyed array at the root").
type Row struct {
	Key   Key
	Props Props
}

// opKind distinguishes the three operation shapes the binder enqueues.
type opKind int

const (
	opAdded opKind = iota
	opRemoved
	opModified
)

// operation is one unit of work the batched updater applies to the
// materialized tree, in the order it was enqueued (§4.8 ordering
// requirement).
type operation struct {
	kind     opKind
	segPath  SegPath
	keyPath  KeyPath
	key      Key
	props    Props       // opAdded
	property string      // opModified
	newValue interface{} // opModified
}

// arrayRef is a handle onto a specific array slot in the tree — either the
// root slice itself, or a named property of some row — so applyOperation
// can read and replace it without maps allowing addressable values.
type arrayRef struct {
	get func() []*Row
	set func([]*Row)
}

func findIndexByKey(rows []*Row, key Key) int {
	for i, r := range rows {
		if r.Key == key {
			return i
		}
	}
	return -1
}

// locateArray walks segPath from the tree root, consuming one keyPath
// element per level to pick which row's child array to descend into, and
// returns a reference to the array that operation ultimately targets. The
// second return is false when some ancestor key-path element names a row
// that is not present in the tree (§4.8 missing-parent policy).
func locateArray(root *[]*Row, segPath SegPath, keyPath KeyPath) (arrayRef, bool) {
	get := func() []*Row { return *root }
	set := func(v []*Row) { *root = v }

	for i, name := range segPath {
		arr := get()
		idx := findIndexByKey(arr, Key(keyPath[i]))
		if idx < 0 {
			return arrayRef{}, false
		}
		row := arr[idx]
		arrayName := name
		get = func() []*Row {
			v, _ := row.Props[arrayName].([]*Row)
			return v
		}
		set = func(v []*Row) { row.Props[arrayName] = v }
	}
	return arrayRef{get: get, set: set}, true
}

// applyOperation mutates the tree rooted at root per op's instructions. It
// is the "apply transform" hook's unit of work (§4.8); applyOperations
// below calls it once per queued operation, in enqueue order.
func applyOperation(root *[]*Row, op operation) error {
	ref, found := locateArray(root, op.segPath, op.keyPath)
	if !found {
		if op.kind == opAdded && len(op.segPath) > 0 {
			return ContractViolationError{
				Reason: fmt.Sprintf("added at %q key-path %q references unknown item", op.segPath.String(), op.keyPath.String()),
			}
		}
		NewWarningError("operation at %q key-path %q targets a missing parent, skipping", op.segPath.String(), op.keyPath.String()).Warn()
		return nil
	}

	arr := ref.get()
	switch op.kind {
	case opAdded:
		ref.set(append(arr, &Row{Key: op.key, Props: op.props.Copy()}))

	case opRemoved:
		idx := findIndexByKey(arr, op.key)
		if idx < 0 {
			NewWarningError("remove targets unknown row %q at %q, skipping", op.key, op.segPath.String()).Warn()
			return nil
		}
		next := make([]*Row, 0, len(arr)-1)
		next = append(next, arr[:idx]...)
		next = append(next, arr[idx+1:]...)
		ref.set(next)

	case opModified:
		idx := findIndexByKey(arr, op.key)
		if idx < 0 {
			NewWarningError("modify targets unknown row %q at %q, skipping", op.key, op.segPath.String()).Warn()
			return nil
		}
		row := arr[idx]
		if carrier, ok := op.newValue.(presenceCarrier); ok {
			if v, present := carrier.AsInterface(); present {
				row.Props[op.property] = v
			} else {
				delete(row.Props, op.property)
			}
			return nil
		}
		row.Props[op.property] = op.newValue
	}
	return nil
}

// applyOperations runs a full batch against root in enqueue order, stopping
// at the first contract violation. Missing-parent warnings are non-fatal
// and do not interrupt the batch (§4.8 missing-parent policy).
func applyOperations(root *[]*Row, ops []operation) error {
	for _, op := range ops {
		if err := applyOperation(root, op); err != nil {
			return err
		}
	}
	return nil
}
