package cascade

// TypeDescriptor describes the shape of the items flowing through a step's
// output: the nested arrays and objects it carries, and — critically —
// which of its properties are *mutable* (can change via a modified event
// without the row itself being added/removed). Descriptors are purely
// derived: a step computes its own output descriptor bottom-up from its
// upstream's descriptor and never mutates another step's descriptor (§3).
type TypeDescriptor struct {
	Arrays            []ArrayDescriptor
	Objects           []ObjectDescriptor
	MutableProperties map[string]bool
}

// ArrayDescriptor names a nested array-valued property and the descriptor
// of its element type.
type ArrayDescriptor struct {
	Name string
	Type *TypeDescriptor
}

// ObjectDescriptor names a nested object-valued property and the
// descriptor of its type.
type ObjectDescriptor struct {
	Name string
	Type *TypeDescriptor
}

// NewTypeDescriptor returns an empty descriptor.
func NewTypeDescriptor() *TypeDescriptor {
	return &TypeDescriptor{MutableProperties: map[string]bool{}}
}

// Clone returns a deep copy of d so that a step can rewrite its own output
// descriptor without mutating the one it read from upstream.
func (d *TypeDescriptor) Clone() *TypeDescriptor {
	if d == nil {
		return NewTypeDescriptor()
	}
	out := &TypeDescriptor{
		MutableProperties: make(map[string]bool, len(d.MutableProperties)),
	}
	for k, v := range d.MutableProperties {
		out.MutableProperties[k] = v
	}
	for _, a := range d.Arrays {
		out.Arrays = append(out.Arrays, ArrayDescriptor{Name: a.Name, Type: a.Type.Clone()})
	}
	for _, o := range d.Objects {
		out.Objects = append(out.Objects, ObjectDescriptor{Name: o.Name, Type: o.Type.Clone()})
	}
	return out
}

// IsMutable reports whether name is declared mutable at this level.
func (d *TypeDescriptor) IsMutable(name string) bool {
	if d == nil {
		return false
	}
	return d.MutableProperties[name]
}

// WithMutable returns a clone of d with name added to MutableProperties.
// This is how DefinePropertyStep announces a synthesized mutable property
// (§4.4) — "the signal that lets downstream aggregates auto-subscribe."
func (d *TypeDescriptor) WithMutable(name string) *TypeDescriptor {
	out := d.Clone()
	out.MutableProperties[name] = true
	return out
}

// WithoutMutable returns a clone of d with name removed from
// MutableProperties, used by DropPropertyStep.
func (d *TypeDescriptor) WithoutMutable(name string) *TypeDescriptor {
	out := d.Clone()
	delete(out.MutableProperties, name)
	return out
}

// WithArray returns a clone of d with a new (or replaced) array descriptor
// named name, used by GroupByStep to add its synthesized child array.
func (d *TypeDescriptor) WithArray(name string, elemType *TypeDescriptor) *TypeDescriptor {
	out := d.Clone()
	for i := range out.Arrays {
		if out.Arrays[i].Name == name {
			out.Arrays[i].Type = elemType
			return out
		}
	}
	out.Arrays = append(out.Arrays, ArrayDescriptor{Name: name, Type: elemType})
	return out
}
