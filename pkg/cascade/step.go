package cascade

import (
	"fmt"

	"github.com/wayneeseguin/cascade/log"
)

// Step is the base contract every transparent or aggregate step satisfies.
// It is a Source (§4.2) plus nothing else: the behavior that makes a
// group-by a group-by, or a sum a sum, lives entirely in what segment
// paths and properties it chooses to intercept versus forward.
type Step interface {
	Source
}

// InputStep is the implicit root step (§4.2): it emits a single `added` at
// the root segment path per record the caller adds via Pipeline.Add, and a
// matching `removed` via Pipeline.Remove. It has no upstream.
type InputStep struct {
	root *hub
	desc *TypeDescriptor
}

// NewInputStep creates the root of a step graph.
func NewInputStep() *InputStep {
	return &InputStep{root: newHub(), desc: NewTypeDescriptor()}
}

// OnAdded implements Source. Only the root segment path is ever valid on
// the input step; anything else is a construction-time contract violation
// (no step should recurse this far without having intercepted a deeper
// path itself).
func (in *InputStep) OnAdded(segPath SegPath, h AddedHandler) {
	if len(segPath) != 0 {
		panic(ContractViolationError{Reason: fmt.Sprintf("input step cannot source added events at %q", segPath.String())})
	}
	in.root.addAdded(h)
}

// OnRemoved implements Source.
func (in *InputStep) OnRemoved(segPath SegPath, h RemovedHandler) {
	if len(segPath) != 0 {
		panic(ContractViolationError{Reason: fmt.Sprintf("input step cannot source removed events at %q", segPath.String())})
	}
	in.root.addRemoved(h)
}

// OnModified implements Source. The input step never emits modified
// events of its own (§6 only exposes add/remove); the registration is
// accepted so that downstream construction code does not need to special
// case the root, but the handler will simply never fire.
func (in *InputStep) OnModified(segPath SegPath, property string, h ModifiedHandler) {
	if len(segPath) != 0 {
		panic(ContractViolationError{Reason: fmt.Sprintf("input step cannot source modified events at %q", segPath.String())})
	}
	in.root.addModified(property, h)
}

// TypeDescriptor implements Source. Record shape is whatever the caller
// puts in Props; the input step declares no properties mutable of its
// own accord (mutability is announced by DefinePropertyStep as compute
// results are synthesized downstream).
func (in *InputStep) TypeDescriptor() *TypeDescriptor {
	return in.desc
}

// Add injects a row at the root segment path (§6).
func (in *InputStep) Add(key Key, props Props) {
	log.DEBUG("input: add %s", key)
	in.root.fireAdded(KeyPath{}, key, props)
}

// Remove retracts a row previously injected at the root segment path
// (§6). props must structurally match what was added so that aggregates
// reading values from the removed payload compute correctly.
func (in *InputStep) Remove(key Key, props Props) {
	log.DEBUG("input: remove %s", key)
	in.root.fireRemoved(KeyPath{}, key, props)
}
