// Package dex provides the opaque class/type/method object model consumed
// by the class merging analysis. Types are interned so identity comparison
// is pointer comparison; all set containers are name-ordered to keep the
// analysis deterministic.
package dex

import (
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Type is an interned JVM type descriptor, e.g. "Lcom/foo/Bar;".
// Instances are unique per TypeIndex; compare by pointer.
type Type struct {
	name string
	hash uint64
}

// Name returns the full type descriptor.
func (t *Type) Name() string {
	return t.name
}

// Hash returns the interned fingerprint of the descriptor.
func (t *Type) Hash() uint64 {
	return t.hash
}

// SimpleName returns the class name without package or descriptor
// decoration, e.g. "Lcom/foo/Bar;" -> "Bar".
func (t *Type) SimpleName() string {
	name := strings.TrimSuffix(strings.TrimPrefix(t.name, "L"), ";")
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func (t *Type) String() string {
	return t.name
}

// ============================================================================
// TypeIndex - Type interning
// ============================================================================

// TypeIndex interns type descriptors. A single index is shared by the scope,
// the stores and every model built over them.
type TypeIndex struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewTypeIndex creates an empty type index.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{
		types: make(map[string]*Type),
	}
}

// Intern returns the unique Type for the given descriptor, creating it on
// first use.
func (ix *TypeIndex) Intern(name string) *Type {
	ix.mu.RLock()
	t, ok := ix.types[name]
	ix.mu.RUnlock()
	if ok {
		return t
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if t, ok := ix.types[name]; ok {
		return t
	}
	t = &Type{name: name, hash: xxhash.Sum64String(name)}
	ix.types[name] = t
	return t
}

// Get returns the interned Type for a descriptor, if present.
func (ix *TypeIndex) Get(name string) (*Type, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[name]
	return t, ok
}

// Len returns the number of interned types.
func (ix *TypeIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.types)
}

// ============================================================================
// TypeSet - Name-ordered set of types
// ============================================================================

// TypeSet is a set of types ordered by descriptor name. The ordering makes
// iteration deterministic regardless of insertion order.
type TypeSet struct {
	sorted []*Type
}

// NewTypeSet creates a TypeSet holding the given types.
func NewTypeSet(types ...*Type) *TypeSet {
	s := &TypeSet{}
	for _, t := range types {
		s.Insert(t)
	}
	return s
}

func (s *TypeSet) search(t *Type) (int, bool) {
	idx := sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i].name >= t.name
	})
	return idx, idx < len(s.sorted) && s.sorted[idx] == t
}

// Insert adds a type to the set. Returns false if it was already present.
func (s *TypeSet) Insert(t *Type) bool {
	idx, found := s.search(t)
	if found {
		return false
	}
	s.sorted = append(s.sorted, nil)
	copy(s.sorted[idx+1:], s.sorted[idx:])
	s.sorted[idx] = t
	return true
}

// Remove deletes a type from the set. Returns false if it was absent.
func (s *TypeSet) Remove(t *Type) bool {
	idx, found := s.search(t)
	if !found {
		return false
	}
	s.sorted = append(s.sorted[:idx], s.sorted[idx+1:]...)
	return true
}

// Contains reports whether the set holds the type.
func (s *TypeSet) Contains(t *Type) bool {
	if s == nil {
		return false
	}
	_, found := s.search(t)
	return found
}

// Len returns the number of types in the set.
func (s *TypeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sorted)
}

// Empty reports whether the set has no types.
func (s *TypeSet) Empty() bool {
	return s.Len() == 0
}

// Types returns the types in name order. The returned slice is shared;
// callers must not mutate it.
func (s *TypeSet) Types() []*Type {
	if s == nil {
		return nil
	}
	return s.sorted
}

// InsertAll adds every type from other into the set.
func (s *TypeSet) InsertAll(other *TypeSet) {
	for _, t := range other.Types() {
		s.Insert(t)
	}
}

// Clone returns an independent copy of the set.
func (s *TypeSet) Clone() *TypeSet {
	c := &TypeSet{sorted: make([]*Type, len(s.sorted))}
	copy(c.sorted, s.sorted)
	return c
}

// Key returns a canonical string key for the set, usable as a map key when
// grouping by interface sets.
func (s *TypeSet) Key() string {
	if s.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range s.sorted {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(t.name)
	}
	return b.String()
}
