package cascade

// descriptorAt walks root down through scope's array names and returns the
// descriptor of the items living at that nesting level. A name with no
// matching array descriptor yields an empty descriptor rather than nil, so
// callers never need a nil check.
func descriptorAt(root *TypeDescriptor, scope SegPath) *TypeDescriptor {
	cur := root
	for _, name := range scope {
		next := (*TypeDescriptor)(nil)
		for _, a := range cur.Arrays {
			if a.Name == name {
				next = a.Type
				break
			}
		}
		if next == nil {
			next = NewTypeDescriptor()
		}
		cur = next
	}
	return cur
}

// withDescriptorAt returns a clone of root with the descriptor at scope
// replaced by elem, creating intermediate array descriptors as needed. Used
// by steps that synthesize a new element type at a nested segment path
// (GroupByStep's child array, for instance).
func withDescriptorAt(root *TypeDescriptor, scope SegPath, elem *TypeDescriptor) *TypeDescriptor {
	if len(scope) == 0 {
		return elem
	}
	name := scope[0]
	child := descriptorAt(root, SegPath{name})
	updated := withDescriptorAt(child, scope[1:], elem)
	return root.WithArray(name, updated)
}
