package classmerge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/dexmerge/internal/conf"
	"github.com/dexmerge/internal/dex"
	"github.com/dexmerge/internal/refcheck"
	"github.com/dexmerge/internal/typesystem"
	"github.com/dexmerge/pkg/utils"
)

// tracerName identifies the package tracer.
const tracerName = "github.com/dexmerge/internal/classmerge"

// buildPhase tracks how far a model build has progressed. Querying a
// later-phase result before its phase has run is a programming error and
// aborts.
type buildPhase int

const (
	phaseNone buildPhase = iota
	phaseHierarchy
	phaseShapes
	phaseMergers
	phaseMethods
	phaseFinal
)

func (p buildPhase) String() string {
	switch p {
	case phaseNone:
		return "none"
	case phaseHierarchy:
		return "hierarchy"
	case phaseShapes:
		return "shapes"
	case phaseMergers:
		return "mergers"
	case phaseMethods:
		return "methods"
	case phaseFinal:
		return "final"
	default:
		return "unknown"
	}
}

// invariant aborts the build on a broken internal invariant. Continuing
// past one of these would corrupt the output binary, so this path never
// returns an error value.
func invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("classmerge: invariant violation: "+format, args...))
	}
}

// Model is the revised hierarchy for the class set under analysis: a small
// number of synthetic merger types absorbing the mergeable subtypes of the
// spec roots, plus the connectivity needed to generate code from the plan.
// A Model is built once via BuildModel, single-threaded, and immutable
// afterwards.
type Model struct {
	spec  *ModelSpec
	stats ModelStats

	// roots are the base nodes, ordered by type name. rootSet carries the
	// same types for membership checks.
	roots   []*MergerType
	rootSet *dex.TypeSet

	// The working copy of the hierarchy: parent to ordered children plus
	// the child to parent back-map. The two maps are only mutated through
	// setParentChild/removeChild so they stay mutually consistent.
	hierarchy map[*dex.Type]*dex.TypeSet
	parents   map[*dex.Type]*dex.Type

	// nodes registers every hierarchy node with its kind.
	nodes map[*dex.Type]*MergerType

	classToIntfs  map[*dex.Type]*dex.TypeSet
	intfToClasses map[*dex.Type]*dex.TypeSet

	excluded      *dex.TypeSet
	nonMergeables *dex.TypeSet

	// shapeToCount numbers merger types created per shape, keeping
	// generated names stable and unique.
	shapeToCount map[Shape]int

	scope      *dex.Scope
	stores     *dex.StoresVector
	index      *dex.TypeIndex
	typeSystem *typesystem.TypeSystem
	refChecker *refcheck.Checker
	interdex   *InterdexGroupAssignment

	logger utils.Logger
	phase  buildPhase
}

// BuildModel builds a model for one spec. The interdex assignment must
// have been computed beforehand (once per run) when the spec enables
// interdex grouping; it is shared read-only state.
func BuildModel(
	ctx context.Context,
	prog *dex.Program,
	cfg *conf.ConfigFiles,
	spec *ModelSpec,
	ts *typesystem.TypeSystem,
	rc *refcheck.Checker,
	interdex *InterdexGroupAssignment,
	logger utils.Logger,
) (*Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	invariant(!spec.InterdexGroupingEnabled() || interdex != nil,
		"model %s enables interdex grouping without a computed assignment", spec.Name)

	if logger == nil {
		logger = &utils.NullLogger{}
	}

	m := &Model{
		spec:          spec,
		hierarchy:     make(map[*dex.Type]*dex.TypeSet),
		parents:       make(map[*dex.Type]*dex.Type),
		nodes:         make(map[*dex.Type]*MergerType),
		classToIntfs:  make(map[*dex.Type]*dex.TypeSet),
		intfToClasses: make(map[*dex.Type]*dex.TypeSet),
		excluded:      dex.NewTypeSet(),
		nonMergeables: dex.NewTypeSet(),
		shapeToCount:  make(map[Shape]int),
		scope:         prog.Scope,
		stores:        prog.Stores,
		index:         prog.Index,
		typeSystem:    ts,
		refChecker:    rc,
		interdex:      interdex,
		logger:        logger.WithField("model", spec.Name),
	}

	if spec.InterdexGroupingEnabled() && (cfg == nil || !cfg.HasOrderFile()) {
		m.logger.Warn("interdex grouping enabled without an order file; every candidate lands in the default group")
	}

	tracer := otel.Tracer(tracerName)
	timer := utils.NewTimer("model."+spec.Name, utils.WithLogger(m.logger))

	ctx, span := tracer.Start(ctx, "model.hierarchy")
	pt := timer.Start("hierarchy")
	m.buildHierarchy()
	m.phase = phaseHierarchy
	pt.Stop()
	span.End()

	ctx, span = tracer.Start(ctx, "model.shapes")
	pt = timer.Start("shapes")
	collector := m.shapeModel()
	m.phase = phaseShapes
	pt.Stop()
	span.End()

	ctx, span = tracer.Start(ctx, "model.mergers")
	pt = timer.Start("mergers")
	m.buildMergers(collector)
	m.phase = phaseMergers
	pt.Stop()
	span.End()

	_, span = tracer.Start(ctx, "model.methods")
	pt = timer.Start("methods")
	m.collectMethods()
	m.phase = phaseMethods
	pt.Stop()
	span.End()

	m.phase = phaseFinal
	m.logger.Debug("%s", timer.Summary())
	m.logger.Info("model built: %d considered, %d excluded, %d non-mergeable, %d dropped, %d merged into %d mergers",
		m.stats.AllTypes, m.stats.Excluded, m.stats.NonMergeables,
		m.stats.Dropped, m.stats.ClassesMerged, m.stats.GeneratedClasses)

	return m, nil
}

func (m *Model) assertPhase(min buildPhase, what string) {
	invariant(m.phase >= min, "%s queried in phase %s (requires %s)", what, m.phase, min)
}

// ============================================================================
// Hierarchy phase
// ============================================================================

// setParentChild records an edge in both maps atomically. A node acquiring
// a second distinct parent indicates a corrupt input hierarchy.
func (m *Model) setParentChild(parent, child *dex.Type) {
	if existing, ok := m.parents[child]; ok {
		invariant(existing == parent, "type %s has two parents: %s and %s",
			child.Name(), existing.Name(), parent.Name())
		return
	}
	set, ok := m.hierarchy[parent]
	if !ok {
		set = dex.NewTypeSet()
		m.hierarchy[parent] = set
	}
	set.Insert(child)
	m.parents[child] = parent
}

// removeChild detaches a node from its parent, keeping both maps in sync.
func (m *Model) removeChild(child *dex.Type) {
	parent, ok := m.parents[child]
	invariant(ok, "removing %s which has no parent", child.Name())
	set, ok := m.hierarchy[parent]
	invariant(ok && set.Remove(child), "hierarchy missing edge %s -> %s",
		parent.Name(), child.Name())
	if set.Empty() {
		delete(m.hierarchy, parent)
	}
	delete(m.parents, child)
}

// moveChildToMergeables atomically re-homes a hierarchy node into a
// merger's mergeables set.
func (m *Model) moveChildToMergeables(merger *MergerType, child *dex.Type) {
	m.logger.Debug("adding %s to merger %s", child.Name(), merger.Type.Name())
	m.removeChild(child)
	merger.Mergeables.Insert(child)
}

func (m *Model) isExcluded(t *dex.Type) bool {
	if m.spec.ExcludeTypes.Contains(t) {
		return true
	}
	for _, prefix := range m.spec.ExcludePrefixes {
		if strings.HasPrefix(t.Name(), prefix) {
			return true
		}
	}
	if m.spec.IsGeneratedCode && m.refChecker != nil && !m.refChecker.IsSafe(t) {
		return true
	}
	if m.spec.GenAnnos.Len() > 0 {
		if cls := m.scope.ClassOf(t); cls != nil {
			for _, anno := range cls.Annotations {
				if m.spec.GenAnnos.Contains(anno) {
					return true
				}
			}
		}
	}
	return false
}

// buildHierarchy copies the subtree under each root into the working
// hierarchy, applying exclusion rules. Excluding a type excludes its whole
// subtree: a type whose super chain passes through an excluded type never
// enters the model.
func (m *Model) buildHierarchy() {
	rootSet := dex.NewTypeSet(m.spec.Roots...)
	m.rootSet = rootSet
	for _, root := range rootSet.Types() {
		node := &MergerType{Type: root, Kind: KindReal}
		m.roots = append(m.roots, node)
		m.nodes[root] = node
	}

	for _, cls := range m.scope.Classes() {
		if cls.IsInterface() || rootSet.Contains(cls.Type) {
			continue
		}
		t := cls.Type

		// Walk up to a root, collecting the chain below it.
		chain := []*dex.Type{t}
		var root *dex.Type
		for cur := m.typeSystem.ParentOf(t); cur != nil; cur = m.typeSystem.ParentOf(cur) {
			if rootSet.Contains(cur) {
				root = cur
				break
			}
			chain = append(chain, cur)
		}
		if root == nil {
			continue
		}

		m.stats.AllTypes++

		excluded := false
		for _, link := range chain {
			if m.isExcluded(link) {
				excluded = true
				break
			}
		}
		if excluded {
			m.excluded.Insert(t)
			m.stats.Excluded++
			continue
		}

		parent := root
		for i := len(chain) - 1; i >= 0; i-- {
			m.setParentChild(parent, chain[i])
			parent = chain[i]
		}
	}

	m.registerNodes()
}

// registerNodes assigns a kind to every hierarchy node: interior types
// with no class definition in scope become dummy placeholders preserving
// connectivity, everything else starts real.
func (m *Model) registerNodes() {
	for child, parent := range m.parents {
		for _, t := range []*dex.Type{child, parent} {
			if _, ok := m.nodes[t]; ok {
				continue
			}
			kind := KindReal
			if m.scope.ClassOf(t) == nil {
				kind = KindDummy
			}
			m.nodes[t] = &MergerType{Type: t, Kind: kind}
		}
	}
}

// ============================================================================
// Accessors
// ============================================================================

// Name returns the spec name.
func (m *Model) Name() string {
	return m.spec.Name
}

// Spec returns the model spec.
func (m *Model) Spec() *ModelSpec {
	return m.spec
}

// Stats returns the accumulated stats.
func (m *Model) Stats() ModelStats {
	m.assertPhase(phaseFinal, "stats")
	return m.stats
}

// Roots returns the root types in name order.
func (m *Model) Roots() []*dex.Type {
	roots := make([]*dex.Type, len(m.roots))
	for i, node := range m.roots {
		roots[i] = node.Type
	}
	return roots
}

// ParentOf returns the working-hierarchy parent of a node, or nil.
func (m *Model) ParentOf(t *dex.Type) *dex.Type {
	m.assertPhase(phaseHierarchy, "parent lookup")
	return m.parents[t]
}

// ChildrenOf returns the working-hierarchy children of a node.
func (m *Model) ChildrenOf(t *dex.Type) *dex.TypeSet {
	m.assertPhase(phaseHierarchy, "children lookup")
	return m.hierarchy[t]
}

// InterfacesOf returns the interface set recorded for a candidate.
func (m *Model) InterfacesOf(t *dex.Type) *dex.TypeSet {
	if intfs, ok := m.classToIntfs[t]; ok {
		return intfs
	}
	return nil
}

// Excluded returns the types excluded by spec rule.
func (m *Model) Excluded() *dex.TypeSet {
	return m.excluded
}

// NonMergeables returns the types structurally ineligible for merging.
func (m *Model) NonMergeables() *dex.TypeSet {
	m.assertPhase(phaseShapes, "non-mergeables")
	return m.nonMergeables
}

// Mergers returns the synthetic merger nodes, ordered by type name.
func (m *Model) Mergers() []*MergerType {
	m.assertPhase(phaseMergers, "mergers")
	var mergers []*MergerType
	for _, node := range m.nodes {
		if node.IsMerger() {
			mergers = append(mergers, node)
		}
	}
	sort.Slice(mergers, func(i, j int) bool {
		return mergers[i].Type.Name() < mergers[j].Type.Name()
	})
	return mergers
}

// WalkHierarchy walks the finalized hierarchy depth-first, visiting each
// non-dummy node with the visitor case matching its kind.
func (m *Model) WalkHierarchy(v HierarchyVisitor) {
	m.assertPhase(phaseFinal, "hierarchy walk")
	for _, root := range m.roots {
		if !root.IsDummy() {
			visitNode(v, root)
		}
		m.walkHelper(v, root.Type)
	}
}

func (m *Model) walkHelper(v HierarchyVisitor, t *dex.Type) {
	children, ok := m.hierarchy[t]
	if !ok {
		return
	}
	for _, child := range children.Types() {
		if node, ok := m.nodes[child]; ok && !node.IsDummy() {
			visitNode(v, node)
		}
		m.walkHelper(v, child)
	}
}

// Flush emits the model stats into the metrics sink, prefixed with the
// model name.
func (m *Model) Flush(sink MetricsSink) {
	m.assertPhase(phaseFinal, "metrics flush")
	m.stats.Flush("class_merging."+m.spec.Name, sink)
}
