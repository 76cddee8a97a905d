package classmerge

import (
	"github.com/dexmerge/internal/dex"
	"github.com/dexmerge/internal/typesystem"
)

// NodeKind discriminates the three cases of a hierarchy node.
type NodeKind int

const (
	// KindReal is an original type kept as-is.
	KindReal NodeKind = iota
	// KindDummy is a placeholder inserted to preserve connectivity at
	// branch points with no real content of their own.
	KindDummy
	// KindShape is a synthetic merger replacing a group of mergeables.
	KindShape
)

// String returns the node kind name.
func (k NodeKind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindDummy:
		return "dummy"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// DispatchKind classifies how a virtual method survives merging.
type DispatchKind int

const (
	// DispatchShared means one implementation serves every mergeable.
	DispatchShared DispatchKind = iota
	// DispatchByTypeTag means the merger carries per-original dispatch
	// keyed by the type tag.
	DispatchByTypeTag
)

// MethodGroup is the dispatch decision for one virtual signature across a
// merger's mergeables.
type MethodGroup struct {
	Name  string
	Proto string
	Kind  DispatchKind

	// Interface is non-nil when the signature comes from an interface
	// scope.
	Interface *dex.Type

	// Implementations holds the surviving (owner, method) pairs: a single
	// entry for DispatchShared, one per diverging original otherwise.
	Implementations []typesystem.VirtualMethod
}

// MergerType is a node in the working hierarchy: a kept original type, a
// dummy placeholder, or a synthetic merger absorbing a group of types.
// Only KindShape nodes populate the merge-decision fields.
type MergerType struct {
	Type *dex.Type
	Kind NodeKind

	// KindShape only.
	Shape      *Shape
	Intfs      *dex.TypeSet
	Mergeables *dex.TypeSet

	// DexID is the dex the merger is pinned to under per-dex grouping.
	DexID *int
	// InterdexSubgroup is the interdex bucket, when grouping is enforced.
	InterdexSubgroup *int

	// NeedsTagGeneration is set under the generate tag policy.
	NeedsTagGeneration bool
	// PassTagToCtor is set when constructor plumbing must thread the tag.
	PassTagToCtor bool

	// Dispatch decisions attached by the method distribution phase.
	VirtualMethods   []*MethodGroup
	InterfaceMethods []*MethodGroup
}

// IsMerger reports whether the node is a synthetic merger.
func (m *MergerType) IsMerger() bool {
	return m.Kind == KindShape
}

// IsDummy reports whether the node is a placeholder.
func (m *MergerType) IsDummy() bool {
	return m.Kind == KindDummy
}

// MergeableCount returns the number of absorbed types.
func (m *MergerType) MergeableCount() int {
	return m.Mergeables.Len()
}

// HierarchyVisitor visits the tagged node cases during a hierarchy walk.
type HierarchyVisitor interface {
	VisitReal(node *MergerType)
	VisitDummy(node *MergerType)
	VisitMerger(node *MergerType)
}

// visitNode dispatches a node to the matching visitor method.
func visitNode(v HierarchyVisitor, node *MergerType) {
	switch node.Kind {
	case KindReal:
		v.VisitReal(node)
	case KindDummy:
		v.VisitDummy(node)
	case KindShape:
		v.VisitMerger(node)
	}
}

// MergerVisitorFunc adapts a function to a HierarchyVisitor that only
// cares about synthetic mergers.
type MergerVisitorFunc func(node *MergerType)

// VisitReal ignores kept originals.
func (f MergerVisitorFunc) VisitReal(*MergerType) {}

// VisitDummy ignores placeholders.
func (f MergerVisitorFunc) VisitDummy(*MergerType) {}

// VisitMerger calls the wrapped function.
func (f MergerVisitorFunc) VisitMerger(node *MergerType) { f(node) }
