// Package typesystem supplies the authoritative class hierarchy, interface
// implementation sets and virtual dispatch groupings over a program image
// scope. It is read-only input to the class merging analysis.
package typesystem

import (
	"github.com/dexmerge/internal/dex"
	"github.com/dexmerge/pkg/collections"
	apperrors "github.com/dexmerge/pkg/errors"
)

// TypeSystem holds the hierarchy of a scope. It is immutable once built.
type TypeSystem struct {
	scope *dex.Scope

	children map[*dex.Type]*dex.TypeSet
	parents  map[*dex.Type]*dex.Type

	// Transitive interface implementation, memoized on first query.
	intfs map[*dex.Type]*dex.TypeSet

	// Virtual and interface dispatch scopes keyed by root type.
	virtualScopes   map[*dex.Type][]*VirtualScope
	interfaceScopes map[*dex.Type][]*VirtualScope
}

// New builds the type system for a scope. A cyclic or inconsistent input
// hierarchy is an error; the caller must treat it as fatal since it
// indicates an already corrupt type system.
func New(scope *dex.Scope) (*TypeSystem, error) {
	ts := &TypeSystem{
		scope:    scope,
		children: make(map[*dex.Type]*dex.TypeSet),
		parents:  make(map[*dex.Type]*dex.Type),
		intfs:    make(map[*dex.Type]*dex.TypeSet),
	}

	for _, cls := range scope.Classes() {
		if cls.Super == nil {
			continue
		}
		if cls.Super == cls.Type {
			return nil, apperrors.Newf(apperrors.CodeHierarchyError,
				"type %s is its own super class", cls.Type.Name())
		}
		ts.parents[cls.Type] = cls.Super
		set, ok := ts.children[cls.Super]
		if !ok {
			set = dex.NewTypeSet()
			ts.children[cls.Super] = set
		}
		set.Insert(cls.Type)
	}

	if err := ts.checkAcyclic(); err != nil {
		return nil, err
	}

	ts.buildVirtualScopes()
	ts.buildInterfaceScopes()
	return ts, nil
}

// checkAcyclic walks every super chain once, marking settled types in a
// bitset keyed by scope index so each type is proven acyclic only once.
func (ts *TypeSystem) checkAcyclic() error {
	settled := collections.NewBitset(ts.scope.Len())
	for _, cls := range ts.scope.Classes() {
		onChain := make(map[*dex.Type]bool)
		var chain []*dex.Type
		for t := cls.Type; t != nil; t = ts.parents[t] {
			idx := ts.scope.IndexOf(t)
			if idx >= 0 && settled.Test(idx) {
				break
			}
			if onChain[t] {
				return apperrors.Newf(apperrors.CodeHierarchyError,
					"cyclic hierarchy through %s", t.Name())
			}
			onChain[t] = true
			chain = append(chain, t)
		}
		for _, t := range chain {
			if idx := ts.scope.IndexOf(t); idx >= 0 {
				settled.Set(idx)
			}
		}
	}
	return nil
}

// Scope returns the underlying class scope.
func (ts *TypeSystem) Scope() *dex.Scope {
	return ts.scope
}

// ParentOf returns the super type, or nil for types with no parent in scope.
func (ts *TypeSystem) ParentOf(t *dex.Type) *dex.Type {
	return ts.parents[t]
}

// ChildrenOf returns the direct subtypes of a type.
func (ts *TypeSystem) ChildrenOf(t *dex.Type) *dex.TypeSet {
	if set, ok := ts.children[t]; ok {
		return set
	}
	return nil
}

// SubtypesOf returns every transitive subtype of root, in name order.
func (ts *TypeSystem) SubtypesOf(root *dex.Type) *dex.TypeSet {
	result := dex.NewTypeSet()
	ts.collectSubtypes(root, result)
	return result
}

func (ts *TypeSystem) collectSubtypes(t *dex.Type, out *dex.TypeSet) {
	for _, child := range ts.ChildrenOf(t).Types() {
		if out.Insert(child) {
			ts.collectSubtypes(child, out)
		}
	}
}

// IsInterface reports whether the type is an interface in this scope.
func (ts *TypeSystem) IsInterface(t *dex.Type) bool {
	cls := ts.scope.ClassOf(t)
	return cls != nil && cls.IsInterface()
}

// InterfacesOf returns the transitive set of interfaces a type implements,
// including those inherited from super classes and super interfaces.
func (ts *TypeSystem) InterfacesOf(t *dex.Type) *dex.TypeSet {
	if set, ok := ts.intfs[t]; ok {
		return set
	}
	set := dex.NewTypeSet()
	cls := ts.scope.ClassOf(t)
	if cls != nil {
		for _, intf := range cls.Interfaces {
			set.Insert(intf)
			set.InsertAll(ts.InterfacesOf(intf))
		}
		if cls.Super != nil {
			set.InsertAll(ts.InterfacesOf(cls.Super))
		}
	}
	ts.intfs[t] = set
	return set
}

// ImplementorsOf returns the classes in scope implementing an interface,
// directly or through inheritance.
func (ts *TypeSystem) ImplementorsOf(intf *dex.Type) *dex.TypeSet {
	result := dex.NewTypeSet()
	for _, cls := range ts.scope.Classes() {
		if cls.IsInterface() {
			continue
		}
		if ts.InterfacesOf(cls.Type).Contains(intf) {
			result.Insert(cls.Type)
		}
	}
	return result
}
