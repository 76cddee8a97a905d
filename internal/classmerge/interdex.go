package classmerge

import (
	"github.com/dexmerge/internal/conf"
	"github.com/dexmerge/internal/dex"
)

// InterdexGroupAssignment maps each type to an interdex subgroup index. It
// is computed once per build pipeline invocation and shared read-only
// across every model built in that run; models never recompute it.
//
// Subgroup indices follow the order file segments; the final index is the
// default bucket for types with no inferred placement.
type InterdexGroupAssignment struct {
	groups    map[*dex.Type]int
	numGroups int
	conf      *conf.ConfigFiles
}

// BuildInterdexGroups computes the process-wide interdex assignment from
// the order file according to the inferring mode. With no order file the
// assignment is empty and every type lands in the single default bucket.
func BuildInterdexGroups(
	cfg *conf.ConfigFiles,
	scope *dex.Scope,
	ix *dex.TypeIndex,
	mode InterDexInferringMode,
) *InterdexGroupAssignment {
	a := &InterdexGroupAssignment{
		groups: make(map[*dex.Type]int),
		conf:   cfg,
	}
	if !cfg.HasOrderFile() {
		a.numGroups = 1
		return a
	}
	// The trailing bucket catches types with no inferred placement.
	a.numGroups = cfg.NumGroups() + 1

	for _, entry := range cfg.Entries() {
		if mode == InferClassLoadsBasicBlockFiltering && entry.ColdOnly {
			continue
		}
		t, ok := ix.Get(entry.TypeName)
		if !ok {
			continue
		}
		// First observation wins; later loads never promote a type.
		if _, seen := a.groups[t]; !seen {
			a.groups[t] = entry.Group
		}
	}

	if mode == InferAllTypeRefs {
		// Pull referenced types into the earliest subgroup referencing them.
		for _, cls := range scope.Classes() {
			group, ok := a.groups[cls.Type]
			if !ok {
				continue
			}
			for _, ref := range cls.Refs {
				if current, seen := a.groups[ref]; !seen || group < current {
					a.groups[ref] = group
				}
			}
		}
	}

	return a
}

// NumGroups returns the subgroup count including the default bucket.
func (a *InterdexGroupAssignment) NumGroups() int {
	return a.numGroups
}

// defaultGroup is the bucket index for types with no inferred placement.
func (a *InterdexGroupAssignment) defaultGroup() int {
	return a.numGroups - 1
}

// GroupFor returns the subgroup for a type under the given grouping type.
// The boolean is false when the type is outside enforcement: such types
// land in the default bucket where merging is unconstrained by interdex
// boundaries.
func (a *InterdexGroupAssignment) GroupFor(t *dex.Type, grouping InterDexGroupingType) (int, bool) {
	switch grouping {
	case InterdexDisabled:
		return a.defaultGroup(), false
	case InterdexNonHotSet:
		if a.conf.IsHot(t.Name()) {
			return a.defaultGroup(), false
		}
	case InterdexNonOrderedSet:
		if a.conf.IsOrdered(t.Name()) {
			return a.defaultGroup(), false
		}
	}
	group, ok := a.groups[t]
	if !ok {
		return a.defaultGroup(), false
	}
	return group, true
}

// groupByInterdexSet partitions a candidate set by interdex subgroup for
// the model's grouping type. The result is ordered by subgroup index; the
// final entry is the unconstrained default bucket (possibly empty).
func (a *InterdexGroupAssignment) groupByInterdexSet(
	types *dex.TypeSet,
	grouping InterDexGroupingType,
) []*dex.TypeSet {
	buckets := make([]*dex.TypeSet, a.numGroups)
	for i := range buckets {
		buckets[i] = dex.NewTypeSet()
	}
	for _, t := range types.Types() {
		group, _ := a.GroupFor(t, grouping)
		buckets[group].Insert(t)
	}
	return buckets
}
