// Package refcheck answers whether instances of a type can be treated
// uniformly with its merge siblings: types that escape through reflection,
// carry unsupported annotations, hold initialization-ordering static state
// or have native methods are unsafe to erase.
package refcheck

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dexmerge/internal/dex"
)

const defaultCacheSize = 4096

// Config controls the safety predicate.
type Config struct {
	// MergeTypesWithStaticFields permits non-primitive static fields on
	// mergeable types. Enabling this changes initialization order.
	MergeTypesWithStaticFields bool

	// ExcludeTypeLikeStrings treats types whose descriptor appears as a
	// string constant in the program as reflection-reachable and unsafe.
	ExcludeTypeLikeStrings bool

	// UnsupportedAnnos lists annotation types that mark a class unsafe.
	UnsupportedAnnos *dex.TypeSet

	// SafeNamespaces lists package prefixes whose type-like string
	// references are assumed safe: generated code cross-referencing its
	// own namespace does not leak class identity.
	SafeNamespaces []string

	// CacheSize bounds the verdict cache. Defaults to 4096.
	CacheSize int
}

// Checker is the per-type safety predicate. Verdicts are memoized; the
// checker is safe for concurrent readers once built.
type Checker struct {
	scope       *dex.Scope
	typeStrings *dex.TypeSet
	config      Config
	cache       *lru.Cache[*dex.Type, bool]
}

// New creates a checker over the program.
func New(prog *dex.Program, config Config) (*Checker, error) {
	size := config.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[*dex.Type, bool](size)
	if err != nil {
		return nil, err
	}
	return &Checker{
		scope:       prog.Scope,
		typeStrings: prog.TypeStrings,
		config:      config,
		cache:       cache,
	}, nil
}

// IsSafe reports whether the type may be merged with its shape siblings.
// Types not defined in the scope are never safe.
func (c *Checker) IsSafe(t *dex.Type) bool {
	if verdict, ok := c.cache.Get(t); ok {
		return verdict
	}
	verdict := c.check(t)
	c.cache.Add(t, verdict)
	return verdict
}

func (c *Checker) check(t *dex.Type) bool {
	cls := c.scope.ClassOf(t)
	if cls == nil {
		return false
	}
	if cls.HasNativeMethods() {
		return false
	}
	if c.config.ExcludeTypeLikeStrings && c.typeStrings.Contains(t) && !c.inSafeNamespace(t) {
		return false
	}
	if !c.config.MergeTypesWithStaticFields && hasReferenceStaticFields(cls) {
		return false
	}
	for _, anno := range cls.Annotations {
		if c.config.UnsupportedAnnos.Contains(anno) {
			return false
		}
	}
	return true
}

func (c *Checker) inSafeNamespace(t *dex.Type) bool {
	for _, ns := range c.config.SafeNamespaces {
		if strings.HasPrefix(t.Name(), ns) {
			return true
		}
	}
	return false
}

// hasReferenceStaticFields reports whether the class holds static state
// whose initialization order is observable after merging.
func hasReferenceStaticFields(cls *dex.Class) bool {
	for _, f := range cls.StaticFields() {
		if f.Category == dex.CategoryReference || f.Category == dex.CategoryString {
			return true
		}
	}
	return false
}
