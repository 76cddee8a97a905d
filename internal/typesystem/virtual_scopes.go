package typesystem

import (
	"sort"

	"github.com/dexmerge/internal/dex"
)

// VirtualMethod is one (owner type, method) pair inside a dispatch scope.
type VirtualMethod struct {
	Owner  *dex.Type
	Method *dex.Method
}

// VirtualScope is one virtual dispatch grouping: the set of methods that
// share a dispatch site. Root is the topmost type introducing the
// signature; Methods holds the root definition first, then overriding
// definitions in owner name order.
type VirtualScope struct {
	Root    *dex.Type
	Name    string
	Proto   string
	Methods []VirtualMethod

	// Interface is non-nil when the scope is rooted at an interface
	// declaration rather than a class.
	Interface *dex.Type
}

// Signature returns the scope signature key.
func (vs *VirtualScope) Signature() string {
	return vs.Name + vs.Proto
}

type sig struct {
	name  string
	proto string
}

// buildVirtualScopes groups virtual methods by the topmost class
// introducing each signature.
func (ts *TypeSystem) buildVirtualScopes() {
	ts.virtualScopes = make(map[*dex.Type][]*VirtualScope)
	scopes := make(map[*dex.Type]map[sig]*VirtualScope)

	for _, cls := range ts.scope.Classes() {
		if cls.IsInterface() {
			continue
		}
		for _, m := range cls.VirtualMethods() {
			s := sig{m.Name, m.Proto}
			root := ts.scopeRoot(cls.Type, s)
			bySig, ok := scopes[root]
			if !ok {
				bySig = make(map[sig]*VirtualScope)
				scopes[root] = bySig
			}
			vs, ok := bySig[s]
			if !ok {
				vs = &VirtualScope{Root: root, Name: m.Name, Proto: m.Proto}
				bySig[s] = vs
			}
			vs.Methods = append(vs.Methods, VirtualMethod{Owner: cls.Type, Method: m})
		}
	}

	for root, bySig := range scopes {
		list := make([]*VirtualScope, 0, len(bySig))
		for _, vs := range bySig {
			sortScopeMethods(vs)
			list = append(list, vs)
		}
		sortScopes(list)
		ts.virtualScopes[root] = list
	}
}

// scopeRoot returns the topmost type in the super chain declaring the
// signature.
func (ts *TypeSystem) scopeRoot(t *dex.Type, s sig) *dex.Type {
	root := t
	for cur := ts.parents[t]; cur != nil; cur = ts.parents[cur] {
		cls := ts.scope.ClassOf(cur)
		if cls == nil {
			break
		}
		if cls.FindVirtualMethod(s.name, s.proto) != nil {
			root = cur
		}
	}
	return root
}

// buildInterfaceScopes groups implementations of interface-declared
// signatures, keyed by the interface type.
func (ts *TypeSystem) buildInterfaceScopes() {
	ts.interfaceScopes = make(map[*dex.Type][]*VirtualScope)

	for _, cls := range ts.scope.Classes() {
		if !cls.IsInterface() {
			continue
		}
		intf := cls.Type
		var list []*VirtualScope
		for _, m := range cls.Methods {
			vs := &VirtualScope{
				Root:      intf,
				Name:      m.Name,
				Proto:     m.Proto,
				Interface: intf,
			}
			for _, impl := range ts.ImplementorsOf(intf).Types() {
				implCls := ts.scope.ClassOf(impl)
				if implCls == nil {
					continue
				}
				if im := implCls.FindVirtualMethod(m.Name, m.Proto); im != nil {
					vs.Methods = append(vs.Methods, VirtualMethod{Owner: impl, Method: im})
				}
			}
			if len(vs.Methods) > 0 {
				list = append(list, vs)
			}
		}
		if len(list) > 0 {
			sortScopes(list)
			ts.interfaceScopes[intf] = list
		}
	}
}

func sortScopeMethods(vs *VirtualScope) {
	sort.SliceStable(vs.Methods, func(i, j int) bool {
		if vs.Methods[i].Owner == vs.Root {
			return vs.Methods[j].Owner != vs.Root
		}
		if vs.Methods[j].Owner == vs.Root {
			return false
		}
		return vs.Methods[i].Owner.Name() < vs.Methods[j].Owner.Name()
	})
}

func sortScopes(list []*VirtualScope) {
	// Protos start with '(', which sorts below identifier characters, so
	// ordering by the concatenated signature matches (name, proto) order.
	sort.Slice(list, func(i, j int) bool {
		return list[i].Signature() < list[j].Signature()
	})
}

// VirtualScopesRootedAt returns the virtual scopes whose root is the given
// class type.
func (ts *TypeSystem) VirtualScopesRootedAt(t *dex.Type) []*VirtualScope {
	return ts.virtualScopes[t]
}

// InterfaceScopesOf returns the dispatch scopes declared by an interface.
func (ts *TypeSystem) InterfaceScopesOf(intf *dex.Type) []*VirtualScope {
	return ts.interfaceScopes[intf]
}
