package classmerge

import (
	"sort"

	"github.com/dexmerge/internal/dex"
	"github.com/dexmerge/internal/typesystem"
)

const fillInStackTraceName = "fillInStackTrace"

// collectMethods attaches dispatch decisions to every merger. For each
// virtual signature across a merger's mergeables the outcome is either one
// shared implementation (every mergeable defines it with an identical
// body) or a per-original dispatch keyed by the type tag. Direct methods
// only feed the dedup counters: they relocate wholesale and never need
// dispatch.
func (m *Model) collectMethods() {
	for _, node := range m.nodes {
		if !node.IsMerger() {
			continue
		}
		m.distributeMethods(node)
		m.dedupDirectMethods(node)
	}
}

// methodSig keys a dispatch group.
type methodSig struct {
	name  string
	proto string
}

func (m *Model) distributeMethods(node *MergerType) {
	mergeables := node.Mergeables.Types()

	intfSigs := m.interfaceSignatures(node)

	// Every virtual signature reachable on a mergeable must survive on the
	// merger: the mergeable's own methods plus the ones it inherits from
	// bases below the root, which stop being supers after the re-parent.
	sigs := make(map[methodSig]struct{})
	for _, t := range mergeables {
		bases := m.basesBelowRoot(t)
		invariant(len(bases) > 0, "mergeable %s has no class in scope", t.Name())
		for i, cls := range bases {
			for _, meth := range cls.VirtualMethods() {
				if i > 0 && meth.Abstract() {
					// An abstract declaration on a base carries no body;
					// any implementation lives elsewhere on the chain.
					continue
				}
				sigs[methodSig{meth.Name, meth.Proto}] = struct{}{}
			}
		}
	}

	ordered := make([]methodSig, 0, len(sigs))
	for sig := range sigs {
		ordered = append(ordered, sig)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].name != ordered[j].name {
			return ordered[i].name < ordered[j].name
		}
		return ordered[i].proto < ordered[j].proto
	})

	for _, sig := range ordered {
		if m.spec.DedupFillInStackTrace && sig.name == fillInStackTraceName {
			// Overrides of fillInStackTrace on generated exception types
			// are interchangeable; drop them instead of dispatching.
			m.stats.VMethodsDedupped += m.countDefiners(mergeables, sig) - 1
			continue
		}
		group := m.buildMethodGroup(node, mergeables, sig, intfSigs[sig])
		if group.Interface != nil {
			node.InterfaceMethods = append(node.InterfaceMethods, group)
		} else {
			node.VirtualMethods = append(node.VirtualMethods, group)
		}
	}
}

// interfaceSignatures maps the signatures the merger's interface set
// demands to the interface declaring them.
func (m *Model) interfaceSignatures(node *MergerType) map[methodSig]*dex.Type {
	out := make(map[methodSig]*dex.Type)
	if node.Intfs == nil {
		return out
	}
	for _, intf := range node.Intfs.Types() {
		for _, scope := range m.typeSystem.InterfaceScopesOf(intf) {
			out[methodSig{scope.Name, scope.Proto}] = intf
		}
	}
	return out
}

func (m *Model) countDefiners(mergeables []*dex.Type, sig methodSig) int {
	n := 0
	for _, t := range mergeables {
		if cls := m.scope.ClassOf(t); cls != nil &&
			cls.FindVirtualMethod(sig.name, sig.proto) != nil {
			n++
		}
	}
	return n
}

// buildMethodGroup decides dispatch for one signature. Sharing requires
// every mergeable to define the signature with one body fingerprint;
// anything less keeps per-original dispatch.
func (m *Model) buildMethodGroup(
	node *MergerType,
	mergeables []*dex.Type,
	sig methodSig,
	intf *dex.Type,
) *MethodGroup {
	group := &MethodGroup{Name: sig.name, Proto: sig.proto, Interface: intf}

	var impls []typesystem.VirtualMethod
	directDefiners := 0
	allDefine := true
	sameBody := true
	var bodyHash uint64
	for _, t := range mergeables {
		if m.scope.ClassOf(t).FindVirtualMethod(sig.name, sig.proto) != nil {
			directDefiners++
		}
		meth := m.resolveVirtual(t, sig)
		if meth == nil {
			allDefine = false
			continue
		}
		if len(impls) == 0 {
			bodyHash = meth.BodyHash
		} else if meth.BodyHash != bodyHash {
			sameBody = false
		}
		impls = append(impls, typesystem.VirtualMethod{Owner: t, Method: meth})
	}

	if allDefine && sameBody {
		group.Kind = DispatchShared
		group.Implementations = impls[:1]
		if directDefiners > 1 {
			m.stats.VMethodsDedupped += directDefiners - 1
		}
		return group
	}

	invariant(!m.spec.NoTypeTag(),
		"merger %s: signature %s%s diverges across mergeables but the model has no type tag",
		node.Type.Name(), sig.name, sig.proto)

	group.Kind = DispatchByTypeTag
	group.Implementations = impls
	if m.spec.HasTypeTag() {
		// Diverging bodies fold into one dispatch body with the
		// tag-dependent constants lifted out.
		m.stats.ConstLiftedMethods += len(impls)
	}
	if m.spec.MaxNumDispatchTargets > 0 && len(impls) > m.spec.MaxNumDispatchTargets {
		m.logger.Warn("merger %s: dispatch for %s%s has %d targets (cap %d)",
			node.Type.Name(), sig.name, sig.proto, len(impls), m.spec.MaxNumDispatchTargets)
	}
	return group
}

// resolveVirtual returns the implementation t dispatches to for sig: its
// own definition, or the nearest concrete one on a base below the root.
func (m *Model) resolveVirtual(t *dex.Type, sig methodSig) *dex.Method {
	for i, cls := range m.basesBelowRoot(t) {
		meth := cls.FindVirtualMethod(sig.name, sig.proto)
		if meth == nil {
			continue
		}
		if i > 0 && meth.Abstract() {
			continue
		}
		return meth
	}
	return nil
}

// dedupDirectMethods counts constructor and static/non-virtual bodies that
// collapse across a merger's mergeables. Identical bodies keep a single
// copy on the merger.
func (m *Model) dedupDirectMethods(node *MergerType) {
	type bodyKey struct {
		sig  methodSig
		hash uint64
	}
	ctorBodies := make(map[bodyKey]int)
	directBodies := make(map[bodyKey]int)

	for _, t := range node.Mergeables.Types() {
		cls := m.scope.ClassOf(t)
		for _, meth := range cls.Methods {
			if meth.Virtual {
				continue
			}
			key := bodyKey{methodSig{meth.Name, meth.Proto}, meth.BodyHash}
			if meth.Name == "<init>" {
				ctorBodies[key]++
			} else {
				directBodies[key]++
			}
		}
	}

	for _, n := range ctorBodies {
		if n > 1 {
			m.stats.CtorDedupped += n - 1
		}
	}
	for _, n := range directBodies {
		if n > 1 {
			m.stats.StaticNonVirtDedupped += n - 1
		}
	}
}
