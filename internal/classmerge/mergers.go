package classmerge

import (
	"github.com/dexmerge/internal/dex"
)

// ============================================================================
// Shape phase
// ============================================================================

// shapeModel collects the merge candidates into shape equivalence classes.
// Candidates are the real leaves of the working hierarchy: interior types
// have live subtypes and must survive as-is. Structurally ineligible leaves
// land in nonMergeables instead of a bucket.
func (m *Model) shapeModel() *ShapeCollector {
	collector := NewShapeCollector()

	for t, node := range m.nodes {
		if node.Kind != KindReal {
			continue
		}
		if _, hasParent := m.parents[t]; !hasParent {
			continue // roots never merge
		}
		if children, ok := m.hierarchy[t]; ok && !children.Empty() {
			continue
		}

		cls := m.scope.ClassOf(t)
		invariant(cls != nil, "real node %s has no class in scope", t.Name())

		if !m.isMergeable(t, cls) {
			m.nonMergeables.Insert(t)
			m.stats.NonMergeables++
			continue
		}

		intfs := m.typeSystem.InterfacesOf(t)
		m.classToIntfs[t] = intfs
		for _, intf := range intfs.Types() {
			set, ok := m.intfToClasses[intf]
			if !ok {
				set = dex.NewTypeSet()
				m.intfToClasses[intf] = set
			}
			set.Insert(t)
		}

		// The shape covers every field slot the merged instance carries:
		// own fields plus those inherited from bases below the root.
		var fields []dex.Field
		for _, base := range m.basesBelowRoot(t) {
			fields = append(fields, base.InstanceFields()...)
		}
		collector.Insert(ShapeOf(fields), t)
	}

	m.stats.Approx.Add(approximateShapes(collector, m.spec.ApproximateShaping))
	return collector
}

// isMergeable applies the structural eligibility rules to one leaf.
func (m *Model) isMergeable(t *dex.Type, cls *dex.Class) bool {
	if m.spec.MergingTargets != nil && !m.spec.MergingTargets.Contains(t) {
		return false
	}
	if m.refChecker != nil && !m.refChecker.IsSafe(t) {
		return false
	}
	if m.spec.InputHasTypeTag() && !m.hasInputTypeTag(cls) {
		// The pass contract says every target of an input-tag model
		// carries the tag field. A candidate without one is a broken
		// input, not a soft exclusion.
		invariant(false, "type %s lacks input type tag field %s",
			t.Name(), m.spec.TypeTagField)
	}
	return true
}

func (m *Model) hasInputTypeTag(cls *dex.Class) bool {
	for _, f := range cls.InstanceFields() {
		if f.Name == m.spec.TypeTagField && f.Descriptor == "I" {
			return true
		}
	}
	return false
}

// ============================================================================
// Merger creation
// ============================================================================

// mergeablePool is a set of same-shape, same-interface candidates that
// still has to clear dex, interdex and size constraints before it becomes
// a merger.
type mergeablePool struct {
	shape            Shape
	intfs            *dex.TypeSet
	types            *dex.TypeSet
	dexID            *int
	interdexSubgroup *int
}

// buildMergers turns the shape buckets into merger nodes. Bucket
// processing order is fully determined by the shape total order, interface
// set keys and type names, so two runs over the same image produce the
// same mergers.
func (m *Model) buildMergers(collector *ShapeCollector) {
	for _, shape := range collector.Shapes() {
		bucket := collector.TypesOf(shape)
		for _, group := range breakByInterface(bucket, m.InterfacesOf) {
			for _, pool := range m.partitionPool(shape, group) {
				m.flattenPool(pool)
			}
		}
	}
}

// partitionPool slices one interface group along the dex and interdex
// dimensions the spec enforces. Candidates resolved to the primary dex are
// set aside as non-mergeable unless the spec opts them in.
func (m *Model) partitionPool(shape Shape, group *intfGroup) []*mergeablePool {
	survivors := dex.NewTypeSet()
	for _, t := range group.types.Types() {
		if !m.spec.IncludePrimaryDex && m.stores.IsPrimaryDex(t) {
			m.nonMergeables.Insert(t)
			m.stats.NonMergeables++
			continue
		}
		survivors.Insert(t)
	}

	byDex := []*mergeablePool{{shape: shape, intfs: group.intfs, types: survivors}}
	if m.spec.PerDexGrouping {
		byDex = m.splitByDex(shape, group.intfs, survivors)
	}

	if !m.spec.InterdexGroupingEnabled() {
		return byDex
	}

	var pools []*mergeablePool
	for _, pool := range byDex {
		buckets := m.interdex.groupByInterdexSet(pool.types, m.spec.InterdexGrouping)
		defaultIdx := len(buckets) - 1
		for idx, bucket := range buckets {
			if bucket.Empty() {
				continue
			}
			next := &mergeablePool{
				shape: pool.shape,
				intfs: pool.intfs,
				types: bucket,
				dexID: pool.dexID,
			}
			if idx != defaultIdx {
				subgroup := idx
				next.interdexSubgroup = &subgroup
			}
			pools = append(pools, next)
		}
	}
	return pools
}

func (m *Model) splitByDex(shape Shape, intfs, types *dex.TypeSet) []*mergeablePool {
	byDex := make(map[int]*dex.TypeSet)
	for _, t := range types.Types() {
		idx, ok := m.stores.DexFor(t)
		invariant(ok, "candidate %s resolved to no dex", t.Name())
		set, found := byDex[idx]
		if !found {
			set = dex.NewTypeSet()
			byDex[idx] = set
		}
		set.Insert(t)
	}
	pools := make([]*mergeablePool, 0, len(byDex))
	for idx := 0; idx < m.stores.NumDexes(); idx++ {
		set, ok := byDex[idx]
		if !ok {
			continue
		}
		dexID := idx
		pools = append(pools, &mergeablePool{
			shape: shape, intfs: intfs, types: set, dexID: &dexID,
		})
	}
	return pools
}

// flattenPool applies the size strategy to one pool and materializes a
// merger per surviving subgroup. Subgroups below MinCount are dropped: the
// types stay untouched in the output hierarchy.
func (m *Model) flattenPool(pool *mergeablePool) {
	groups := splitGroups(m.spec.Strategy, m.scope, pool.types.Types(), m.spec.MaxCount)
	for subgroup, group := range groups {
		if len(group) < m.spec.MinCount {
			m.stats.Dropped += len(group)
			m.logger.Debug("dropping %d types of shape %s below min count %d",
				len(group), pool.shape.String(), m.spec.MinCount)
			continue
		}
		m.createMerger(pool, group, subgroup)
	}
}

// createMerger mints the synthetic merger node and moves the group's types
// into its mergeables set.
func (m *Model) createMerger(pool *mergeablePool, group []*dex.Type, subgroup int) {
	count := m.shapeToCount[pool.shape]
	m.shapeToCount[pool.shape] = count + 1

	root := m.rootFor(group[0])
	name := pool.shape.BuildTypeName(
		m.spec.ClassNamePrefix, root, "Shape", count, pool.interdexSubgroup, subgroup)
	mergerType := m.index.Intern(name)
	invariant(m.nodes[mergerType] == nil, "merger name collision: %s", name)

	shape := pool.shape
	node := &MergerType{
		Type:               mergerType,
		Kind:               KindShape,
		Shape:              &shape,
		Intfs:              pool.intfs,
		Mergeables:         dex.NewTypeSet(),
		DexID:              pool.dexID,
		InterdexSubgroup:   pool.interdexSubgroup,
		NeedsTagGeneration: m.spec.GenerateTypeTag(),
		PassTagToCtor:      m.spec.PassTypeTagToCtor(),
	}
	m.nodes[mergerType] = node

	// The merger extends the model root: its mergeables may sit under
	// different intermediate bases, but they all share the root's contract.
	for _, t := range group {
		m.moveChildToMergeables(node, t)
	}
	m.setParentChild(root, mergerType)

	m.stats.ClassesMerged += len(group)
	m.stats.GeneratedClasses++
	if pool.interdexSubgroup != nil {
		m.stats.countInterdexGroup(*pool.interdexSubgroup, len(group))
	}
	m.logger.Debug("created merger %s with %d mergeables", name, len(group))
}

// basesBelowRoot returns the classes on t's super chain strictly below the
// model root, t's own class first. A merger extends the root directly, so
// members defined on these bases stop being inherited once t re-parents;
// shape and method dispatch must fold them in.
func (m *Model) basesBelowRoot(t *dex.Type) []*dex.Class {
	var out []*dex.Class
	for cur := t; cur != nil && !m.rootSet.Contains(cur); cur = m.typeSystem.ParentOf(cur) {
		if cls := m.scope.ClassOf(cur); cls != nil {
			out = append(out, cls)
		}
	}
	return out
}

// rootFor walks the working hierarchy up to the model root above a node.
func (m *Model) rootFor(t *dex.Type) *dex.Type {
	cur := t
	for {
		parent, ok := m.parents[cur]
		if !ok {
			node, registered := m.nodes[cur]
			invariant(registered && node != nil, "orphan node %s outside any root", cur.Name())
			return cur
		}
		cur = parent
	}
}
