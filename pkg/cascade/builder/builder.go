// Package builder is a minimal fluent front-end over pkg/cascade's step
// constructors, grounded on graft's pkg/graft/factory (engine assembly)
// and pkg/graft/parser (left-to-right chain construction) idiom: each
// method appends one step to the chain and returns the builder itself, so
// a pipeline reads as a single left-to-right expression instead of a
// sequence of NewXStep(prev, ...) assignments.
package builder

import (
	"time"

	"github.com/google/uuid"

	"github.com/wayneeseguin/cascade/pkg/cascade"
	"github.com/wayneeseguin/cascade/pkg/cascade/canon"
)

// Builder accumulates a step chain starting from an implicit InputStep.
type Builder struct {
	input   *cascade.InputStep
	current cascade.Source
}

// New starts a fresh chain rooted at a new InputStep.
func New() *Builder {
	in := cascade.NewInputStep()
	return &Builder{input: in, current: in}
}

// GroupBy appends a GroupByStep, using pkg/cascade/canon.Canonicalize as
// the grouping-key canonicalizer (SPEC_FULL §C.4's reference implementation
// of the builder-supplied external collaborator).
func (b *Builder) GroupBy(scope cascade.SegPath, groupingProps []string, arrayName string) *Builder {
	b.current = cascade.NewGroupByStep(b.current, scope, groupingProps, arrayName, canon.Canonicalize)
	return b
}

// Sum appends a CommutativeAggregateStep summing itemProperty.
func (b *Builder) Sum(childScope cascade.SegPath, itemProperty, outputProperty string) *Builder {
	b.current = cascade.NewSumAggregateStep(b.current, childScope, itemProperty, outputProperty)
	return b
}

// Count appends a CommutativeAggregateStep counting childScope's rows.
func (b *Builder) Count(childScope cascade.SegPath, outputProperty string) *Builder {
	b.current = cascade.NewCountAggregateStep(b.current, childScope, outputProperty)
	return b
}

// Min appends a MinMaxAggregateStep tracking itemProperty's minimum.
func (b *Builder) Min(childScope cascade.SegPath, itemProperty, outputProperty string) *Builder {
	b.current = cascade.NewMinAggregateStep(b.current, childScope, itemProperty, outputProperty)
	return b
}

// Max appends a MinMaxAggregateStep tracking itemProperty's maximum.
func (b *Builder) Max(childScope cascade.SegPath, itemProperty, outputProperty string) *Builder {
	b.current = cascade.NewMaxAggregateStep(b.current, childScope, itemProperty, outputProperty)
	return b
}

// Average appends an AverageAggregateStep over itemProperty.
func (b *Builder) Average(childScope cascade.SegPath, itemProperty, outputProperty string) *Builder {
	b.current = cascade.NewAverageAggregateStep(b.current, childScope, itemProperty, outputProperty)
	return b
}

// PickMin appends a PickByMinMaxStep publishing the composed row with the
// smallest comparisonProperty.
func (b *Builder) PickMin(childScope cascade.SegPath, comparisonProperty, outputProperty string) *Builder {
	b.current = cascade.NewPickByMinStep(b.current, childScope, comparisonProperty, outputProperty)
	return b
}

// PickMax appends a PickByMinMaxStep publishing the composed row with the
// largest comparisonProperty.
func (b *Builder) PickMax(childScope cascade.SegPath, comparisonProperty, outputProperty string) *Builder {
	b.current = cascade.NewPickByMaxStep(b.current, childScope, comparisonProperty, outputProperty)
	return b
}

// DefineProperty appends a DefinePropertyStep.
func (b *Builder) DefineProperty(scope cascade.SegPath, propertyName string, compute func(cascade.Props) interface{}, mutableDependencies []string) *Builder {
	b.current = cascade.NewDefinePropertyStep(b.current, scope, propertyName, compute, mutableDependencies)
	return b
}

// DropProperty appends a DropPropertyStep.
func (b *Builder) DropProperty(scope cascade.SegPath, propertyName string) *Builder {
	b.current = cascade.NewDropPropertyStep(b.current, scope, propertyName)
	return b
}

// Filter appends a FilterStep.
func (b *Builder) Filter(scope cascade.SegPath, predicate func(cascade.Props) bool, mutableDependencies []string) *Builder {
	b.current = cascade.NewFilterStep(b.current, scope, predicate, mutableDependencies)
	return b
}

// Build finalizes the chain into a Pipeline handle, wiring the batched
// updater's threshold and flush interval (normally sourced from
// internal/config.EngineConfig).
func (b *Builder) Build(batchThreshold int, flushInterval time.Duration) *cascade.Pipeline {
	return cascade.NewPipeline(b.input, b.current, batchThreshold, flushInterval)
}

// AddAuto injects props under a synthetic key for callers with no natural
// key of their own, returning the generated key (SPEC_FULL §B).
func AddAuto(p *cascade.Pipeline, props cascade.Props) cascade.Key {
	key := cascade.Key(uuid.NewString())
	p.Add(key, props)
	return key
}
