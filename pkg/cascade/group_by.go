package cascade

import (
	"github.com/wayneeseguin/cascade/internal/cache"
	"github.com/wayneeseguin/cascade/log"
)

// groupInfo is one live group's bookkeeping: how many demoted child rows it
// currently has, and the grouping-only props last used to emit its shell
// row (so a re-key can tell whether it needs a fresh shell add).
type groupInfo struct {
	memberCount int
	shellProps  Props
}

// GroupByStep implements §4.3: it intercepts rows arriving at scope,
// buckets them by a canonicalized subset of their properties, and emits a
// shell row per distinct bucket (scope) with a synthesized child array
// (scope+arrayName) holding the demoted, ungrouped remainder of each row's
// properties.
//
// Everything at or below scope+arrayName that GroupByStep does not itself
// synthesize — and everything outside scope's subtree entirely — passes
// through to upstream untouched, per §9's transparent pass-through rule.
type GroupByStep struct {
	upstream      Source
	scope         SegPath
	groupingProps []string
	arrayName     string
	canonicalize  func(values map[string]interface{}, fields []string) string

	shell *hub // fires at scope: one event per distinct group
	child *hub // fires at scope+arrayName: one event per demoted row

	desc *TypeDescriptor

	// groups is keyed by PathHash(scope, parentKeyPath)+groupKey: the live
	// groups under one parent context.
	groups map[string]map[string]*groupInfo
	// itemGroup maps PathHash(scope, parentKeyPath+itemKey) to the group key
	// that item currently belongs to, so removal and re-key can find it and
	// so deeper pass-through events can translate their key path.
	itemGroup map[string]string
	// itemChildProps caches each item's last-emitted demoted payload
	// (props.Without(groupingProps...)), keyed the same as itemGroup, so a
	// mutable-grouping re-key can re-emit the row's real remainder instead
	// of an empty payload.
	itemChildProps map[string]Props

	deeperModified map[string]bool // props already subscribed upstream for re-key/pass-through

	// itemHashes memoizes PathHash(scope, parentKP.Append(key)) so a row
	// touched by many deeper pass-through events (translateKeyPath runs
	// once per such event for that row's lifetime) doesn't re-walk and
	// re-concatenate its key path every time.
	itemHashes *cache.PathHashCache
}

// NewGroupByStep constructs a GroupByStep over upstream's rows arriving at
// scope, grouped by groupingProps, nesting the remainder under arrayName.
// canonicalize computes the group key from a row's full props and the
// grouping property names (pkg/cascade/canon.Canonicalize is the default a
// builder wires in).
func NewGroupByStep(upstream Source, scope SegPath, groupingProps []string, arrayName string, canonicalize func(map[string]interface{}, []string) string) *GroupByStep {
	g := &GroupByStep{
		upstream:       upstream,
		scope:          scope,
		groupingProps:  groupingProps,
		arrayName:      arrayName,
		canonicalize:   canonicalize,
		shell:          newHub(),
		child:          newHub(),
		groups:         map[string]map[string]*groupInfo{},
		itemGroup:      map[string]string{},
		itemChildProps: map[string]Props{},
		deeperModified: map[string]bool{},
		itemHashes:     cache.NewPathHashCache(cache.DefaultPathHashCacheConfig(), nil),
	}
	g.desc = g.computeDescriptor()

	upstream.OnAdded(scope, g.handleUpstreamAdded)
	upstream.OnRemoved(scope, g.handleUpstreamRemoved)

	itemDesc := descriptorAt(upstream.TypeDescriptor(), scope)
	for _, name := range groupingProps {
		if itemDesc.IsMutable(name) {
			upstream.OnModified(scope, name, g.handleMutableGroupingChange)
			break // one subscription suffices; the handler re-derives the key from current props on any grouping change
		}
	}

	return g
}

func (g *GroupByStep) computeDescriptor() *TypeDescriptor {
	itemDesc := descriptorAt(g.upstream.TypeDescriptor(), g.scope)

	childDesc := itemDesc.Clone()
	for _, name := range g.groupingProps {
		delete(childDesc.MutableProperties, name)
	}

	shellDesc := NewTypeDescriptor()
	for _, name := range g.groupingProps {
		if itemDesc.IsMutable(name) {
			shellDesc.MutableProperties[name] = true
		}
	}
	shellDesc.Arrays = []ArrayDescriptor{{Name: g.arrayName, Type: childDesc}}

	return withDescriptorAt(g.upstream.TypeDescriptor(), g.scope, shellDesc)
}

// itemID returns PathHash(g.scope, parentKP.Append(key)), memoized per
// (parentKP, key) since the same row's identifier is re-derived on every
// deeper pass-through event that touches it over its lifetime.
func (g *GroupByStep) itemID(parentKP KeyPath, key Key) string {
	cacheKey := parentKP.String() + "\x1f" + string(key)
	if h, ok := g.itemHashes.Get(cacheKey); ok {
		return h
	}
	h := PathHash(g.scope, parentKP.Append(key))
	g.itemHashes.Set(cacheKey, h, 0)
	return h
}

func (g *GroupByStep) groupKeyFor(props Props) string {
	return g.canonicalize(props, g.groupingProps)
}

func (g *GroupByStep) parentGroups(parentKP KeyPath) map[string]*groupInfo {
	id := PathHash(g.scope, parentKP)
	m, ok := g.groups[id]
	if !ok {
		m = map[string]*groupInfo{}
		g.groups[id] = m
	}
	return m
}

func (g *GroupByStep) handleUpstreamAdded(parentKP KeyPath, key Key, props Props) {
	groups := g.parentGroups(parentKP)
	groupKey := g.groupKeyFor(props)

	info, exists := groups[groupKey]
	if !exists {
		shellProps := make(Props, len(g.groupingProps))
		for _, name := range g.groupingProps {
			shellProps[name] = props[name]
		}
		info = &groupInfo{shellProps: shellProps}
		groups[groupKey] = info
		log.DEBUG("group_by: new group %s under %s", groupKey, parentKP.String())
		g.shell.fireAdded(parentKP, Key(groupKey), shellProps)
	}
	info.memberCount++

	itemID := g.itemID(parentKP, key)
	g.itemGroup[itemID] = groupKey

	childProps := props.Without(g.groupingProps...)
	g.itemChildProps[itemID] = childProps
	g.child.fireAdded(parentKP.Append(Key(groupKey)), key, childProps)
}

func (g *GroupByStep) handleUpstreamRemoved(parentKP KeyPath, key Key, props Props) {
	itemID := g.itemID(parentKP, key)
	groupKey, ok := g.itemGroup[itemID]
	if !ok {
		return
	}
	delete(g.itemGroup, itemID)
	delete(g.itemChildProps, itemID)

	childProps := props.Without(g.groupingProps...)
	g.child.fireRemoved(parentKP.Append(Key(groupKey)), key, childProps)

	groups := g.parentGroups(parentKP)
	info := groups[groupKey]
	if info == nil {
		return
	}
	info.memberCount--
	if info.memberCount <= 0 {
		delete(groups, groupKey)
		g.shell.fireRemoved(parentKP, Key(groupKey), info.shellProps)
	}
}

// handleMutableGroupingChange re-keys a single child row when one of its
// grouping properties changes, per §4.3's mandated ordering: the old child
// is removed, the old group is removed if now empty, the new group is
// added if it didn't already exist, then the new child is added.
func (g *GroupByStep) handleMutableGroupingChange(kp KeyPath, key Key, old, new interface{}) {
	parentKP, itemKey := kp, key
	itemID := g.itemID(parentKP, itemKey)
	oldGroupKey, ok := g.itemGroup[itemID]
	if !ok {
		return
	}

	groups := g.parentGroups(parentKP)
	oldInfo := groups[oldGroupKey]
	if oldInfo == nil {
		return
	}

	// Re-derive full current props isn't available from a modified event
	// (only old/new of the single property); rebuild a canonicalization
	// input by overlaying the changed field on the last known shell props
	// plus the one new value, which is sufficient since grouping only ever
	// reads the grouping-property subset.
	changedProp := g.mutableGroupingPropertyName(old, new)
	newGroupingValues := oldInfo.shellProps.Copy()
	if changedProp != "" {
		if v, present := unwrapAggregate(new); present {
			newGroupingValues[changedProp] = v
		} else {
			delete(newGroupingValues, changedProp)
		}
	}
	newGroupKey := g.groupKeyFor(newGroupingValues)
	if newGroupKey == oldGroupKey {
		return
	}

	// childProps is the row's demoted remainder, cached at its last add/
	// re-key so a re-key carries the real row instead of an empty payload.
	childProps := g.itemChildProps[itemID]

	// old-child-remove
	g.child.fireRemoved(parentKP.Append(Key(oldGroupKey)), itemKey, childProps)

	// old-group-remove-if-empty
	oldInfo.memberCount--
	if oldInfo.memberCount <= 0 {
		delete(groups, oldGroupKey)
		g.shell.fireRemoved(parentKP, Key(oldGroupKey), oldInfo.shellProps)
	}

	// new-group-add-if-needed
	newInfo, exists := groups[newGroupKey]
	if !exists {
		newInfo = &groupInfo{shellProps: newGroupingValues}
		groups[newGroupKey] = newInfo
		g.shell.fireAdded(parentKP, Key(newGroupKey), newGroupingValues)
	}
	newInfo.memberCount++
	g.itemGroup[itemID] = newGroupKey

	// new-child-add
	g.child.fireAdded(parentKP.Append(Key(newGroupKey)), itemKey, childProps)
}

// mutableGroupingPropertyName has no way to recover which named property
// changed from a bare (old, new) pair; GroupByStep only ever subscribes to
// one grouping property's modified stream at a time (see NewGroupByStep),
// so it returns that property: the first grouping property upstream
// declares mutable at scope.
func (g *GroupByStep) mutableGroupingPropertyName(old, new interface{}) string {
	itemDesc := descriptorAt(g.upstream.TypeDescriptor(), g.scope)
	for _, name := range g.groupingProps {
		if itemDesc.IsMutable(name) {
			return name
		}
	}
	return ""
}

// OnAdded implements Source.
func (g *GroupByStep) OnAdded(segPath SegPath, h AddedHandler) {
	switch {
	case PathsMatch(segPath, g.scope):
		g.shell.addAdded(h)
	case PathsMatch(segPath, g.childScope()):
		g.child.addAdded(h)
	case PathUnder(segPath, g.childScope()):
		g.relayAdded(segPath, h)
	default:
		g.upstream.OnAdded(segPath, h)
	}
}

// OnRemoved implements Source.
func (g *GroupByStep) OnRemoved(segPath SegPath, h RemovedHandler) {
	switch {
	case PathsMatch(segPath, g.scope):
		g.shell.addRemoved(h)
	case PathsMatch(segPath, g.childScope()):
		g.child.addRemoved(h)
	case PathUnder(segPath, g.childScope()):
		g.relayRemoved(segPath, h)
	default:
		g.upstream.OnRemoved(segPath, h)
	}
}

// OnModified implements Source.
func (g *GroupByStep) OnModified(segPath SegPath, property string, h ModifiedHandler) {
	switch {
	case PathsMatch(segPath, g.scope):
		g.shell.addModified(property, h) // grouping props re-key instead of modifying in place; never fires
	case PathsMatch(segPath, g.childScope()):
		g.child.addModified(property, h)
		g.subscribeChildModified(g.scope, property)
	case PathUnder(segPath, g.childScope()):
		g.relayModified(segPath, property, h)
	default:
		g.upstream.OnModified(segPath, property, h)
	}
}

// TypeDescriptor implements Source.
func (g *GroupByStep) TypeDescriptor() *TypeDescriptor {
	return g.desc
}

func (g *GroupByStep) childScope() SegPath {
	return g.scope.Append(g.arrayName)
}

func (g *GroupByStep) subscribeChildModified(upstreamSeg SegPath, property string) {
	key := property
	if g.deeperModified[key] {
		return
	}
	g.deeperModified[key] = true
	g.upstream.OnModified(upstreamSeg, property, func(kp KeyPath, key Key, old, new interface{}) {
		translated, ok := g.translateKeyPath(kp.Append(key))
		if !ok {
			return
		}
		tkp, tkey := SplitChildKeyPath(translated)
		g.child.fireModified(property, tkp, tkey, old, new)
	})
}

// translateKeyPath inserts the owning group's key into an upstream key
// path that reaches an item at or below scope, since the grouped tree has
// one extra nesting level (the group) that upstream's tree does not.
// upstreamFullKP is the key path to the row itself (parent key path with
// the row's own key appended).
func (g *GroupByStep) translateKeyPath(upstreamFullKP KeyPath) (KeyPath, bool) {
	if len(upstreamFullKP) <= len(g.scope) {
		return nil, false
	}
	parentKP := upstreamFullKP[:len(g.scope)]
	itemKey := Key(upstreamFullKP[len(g.scope)])
	rest := upstreamFullKP[len(g.scope)+1:]

	itemID := g.itemID(parentKP, itemKey)
	groupKey, ok := g.itemGroup[itemID]
	if !ok {
		return nil, false
	}

	out := make(KeyPath, 0, len(parentKP)+1+1+len(rest))
	out = append(out, parentKP...)
	out = append(out, groupKey)
	out = append(out, string(itemKey))
	out = append(out, rest...)
	return out, true
}

func (g *GroupByStep) upstreamSegPathFor(requested SegPath) SegPath {
	extra := requested[len(g.childScope()):]
	out := make(SegPath, 0, len(g.scope)+len(extra))
	out = append(out, g.scope...)
	out = append(out, extra...)
	return out
}

func (g *GroupByStep) relayAdded(requested SegPath, h AddedHandler) {
	up := g.upstreamSegPathFor(requested)
	g.upstream.OnAdded(up, func(kp KeyPath, key Key, props Props) {
		translated, ok := g.translateKeyPath(kp.Append(key))
		if !ok {
			return
		}
		tkp, tkey := SplitChildKeyPath(translated)
		h(tkp, tkey, props)
	})
}

func (g *GroupByStep) relayRemoved(requested SegPath, h RemovedHandler) {
	up := g.upstreamSegPathFor(requested)
	g.upstream.OnRemoved(up, func(kp KeyPath, key Key, props Props) {
		translated, ok := g.translateKeyPath(kp.Append(key))
		if !ok {
			return
		}
		tkp, tkey := SplitChildKeyPath(translated)
		h(tkp, tkey, props)
	})
}

func (g *GroupByStep) relayModified(requested SegPath, property string, h ModifiedHandler) {
	up := g.upstreamSegPathFor(requested)
	g.upstream.OnModified(up, property, func(kp KeyPath, key Key, old, new interface{}) {
		translated, ok := g.translateKeyPath(kp.Append(key))
		if !ok {
			return
		}
		tkp, tkey := SplitChildKeyPath(translated)
		h(tkp, tkey, old, new)
	})
}
