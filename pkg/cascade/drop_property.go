package cascade

// DropPropertyStep implements §4.5: a pure, stateless projection at the
// event level. Every event at scope is re-emitted with propertyName removed from
// its payload; the descriptor loses the property from mutableProperties at
// that level. Everything outside scope passes through untouched.
type DropPropertyStep struct {
	upstream     Source
	scope        SegPath
	propertyName string
	own          *hub
	desc         *TypeDescriptor
}

// NewDropPropertyStep constructs a DropPropertyStep.
func NewDropPropertyStep(upstream Source, scope SegPath, propertyName string) *DropPropertyStep {
	d := &DropPropertyStep{
		upstream:     upstream,
		scope:        scope,
		propertyName: propertyName,
		own:          newHub(),
	}

	itemDesc := descriptorAt(upstream.TypeDescriptor(), scope).WithoutMutable(propertyName)
	d.desc = withDescriptorAt(upstream.TypeDescriptor(), scope, itemDesc)

	upstream.OnAdded(scope, func(kp KeyPath, key Key, props Props) {
		d.own.fireAdded(kp, key, props.Without(propertyName))
	})
	upstream.OnRemoved(scope, func(kp KeyPath, key Key, props Props) {
		d.own.fireRemoved(kp, key, props.Without(propertyName))
	})

	return d
}

// OnAdded implements Source.
func (d *DropPropertyStep) OnAdded(segPath SegPath, h AddedHandler) {
	if PathsMatch(segPath, d.scope) {
		d.own.addAdded(h)
		return
	}
	d.upstream.OnAdded(segPath, h)
}

// OnRemoved implements Source.
func (d *DropPropertyStep) OnRemoved(segPath SegPath, h RemovedHandler) {
	if PathsMatch(segPath, d.scope) {
		d.own.addRemoved(h)
		return
	}
	d.upstream.OnRemoved(segPath, h)
}

// OnModified implements Source. The dropped property itself never fires
// modified downstream (it no longer exists in the payload); anything else
// is forwarded untouched.
func (d *DropPropertyStep) OnModified(segPath SegPath, property string, h ModifiedHandler) {
	if PathsMatch(segPath, d.scope) && property == d.propertyName {
		return // subscription accepted, handler never fires: the property no longer exists downstream of here
	}
	d.upstream.OnModified(segPath, property, h)
}

// TypeDescriptor implements Source.
func (d *DropPropertyStep) TypeDescriptor() *TypeDescriptor {
	return d.desc
}
