// Package classmerge implements the class hierarchy erasure model: given a
// set of root types, it decides which subtypes can be collapsed into a
// small number of synthetic merger classes, grouping candidates by
// structural shape, dex and interdex placement and virtual dispatch
// compatibility. The output is a merge plan; materializing the merged
// bytecode is downstream work.
package classmerge

import (
	"strings"

	"github.com/dexmerge/internal/dex"
	apperrors "github.com/dexmerge/pkg/errors"
)

// InterDexGroupingType controls which subset of the program is subject to
// interdex boundary enforcement.
type InterDexGroupingType int

const (
	// InterdexDisabled ignores interdex boundaries entirely.
	InterdexDisabled InterDexGroupingType = iota
	// InterdexNonHotSet enforces grouping for everything outside the hot set.
	InterdexNonHotSet
	// InterdexNonOrderedSet enforces grouping for everything outside the
	// ordered set.
	InterdexNonOrderedSet
	// InterdexFull enforces group membership for every type.
	InterdexFull
)

// String returns the config name of the grouping type.
func (g InterDexGroupingType) String() string {
	switch g {
	case InterdexDisabled:
		return "disabled"
	case InterdexNonHotSet:
		return "non-hot-set"
	case InterdexNonOrderedSet:
		return "non-ordered-set"
	case InterdexFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseInterDexGroupingType parses a config string.
func ParseInterDexGroupingType(s string) (InterDexGroupingType, error) {
	switch s {
	case "", "disabled":
		return InterdexDisabled, nil
	case "non-hot-set":
		return InterdexNonHotSet, nil
	case "non-ordered-set":
		return InterdexNonOrderedSet, nil
	case "full":
		return InterdexFull, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeSpecError, "unknown interdex grouping type %q", s)
	}
}

// InterDexInferringMode selects the signal used to assign types to
// interdex subgroups.
type InterDexInferringMode int

const (
	// InferAllTypeRefs propagates subgroups through observed type references.
	InferAllTypeRefs InterDexInferringMode = iota
	// InferClassLoads uses the observed class-load order only.
	InferClassLoads
	// InferClassLoadsBasicBlockFiltering uses class loads but ignores loads
	// observed only in cold basic blocks.
	InferClassLoadsBasicBlockFiltering
)

// String returns the config name of the inferring mode.
func (m InterDexInferringMode) String() string {
	switch m {
	case InferAllTypeRefs:
		return "all-type-refs"
	case InferClassLoads:
		return "class-loads"
	case InferClassLoadsBasicBlockFiltering:
		return "class-loads-bb"
	default:
		return "unknown"
	}
}

// ParseInterDexInferringMode parses a config string.
func ParseInterDexInferringMode(s string) (InterDexInferringMode, error) {
	switch s {
	case "", "all-type-refs":
		return InferAllTypeRefs, nil
	case "class-loads":
		return InferClassLoads, nil
	case "class-loads-bb":
		return InferClassLoadsBasicBlockFiltering, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeSpecError, "unknown interdex inferring mode %q", s)
	}
}

// TypeTagConfig is the type tag policy of a model.
type TypeTagConfig int

const (
	// TypeTagNone attaches no tag; original type identity is unrecoverable,
	// so merged siblings must share identical virtual code.
	TypeTagNone TypeTagConfig = iota
	// TypeTagGenerate synthesizes a tag and threads it through constructors.
	TypeTagGenerate
	// TypeTagInputPassToCtor assumes the input carries tags; constructor
	// plumbing must still be generated.
	TypeTagInputPassToCtor
	// TypeTagInputHandled assumes the input carries tags and fully handles
	// them.
	TypeTagInputHandled
)

// String returns the config name of the tag policy.
func (c TypeTagConfig) String() string {
	switch c {
	case TypeTagNone:
		return "none"
	case TypeTagGenerate:
		return "generate"
	case TypeTagInputPassToCtor:
		return "input-pass-type-tag-to-ctor"
	case TypeTagInputHandled:
		return "input-handled"
	default:
		return "unknown"
	}
}

// ParseTypeTagConfig parses a config string.
func ParseTypeTagConfig(s string) (TypeTagConfig, error) {
	switch s {
	case "", "generate":
		return TypeTagGenerate, nil
	case "none":
		return TypeTagNone, nil
	case "input-pass-type-tag-to-ctor":
		return TypeTagInputPassToCtor, nil
	case "input-handled":
		return TypeTagInputHandled, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeSpecError, "unknown type tag config %q", s)
	}
}

// TypeLikeStringConfig decides what to do with classes whose names appear
// as string constants.
type TypeLikeStringConfig int

const (
	// TypeLikeStringExclude keeps potentially reflected classes unmerged.
	TypeLikeStringExclude TypeLikeStringConfig = iota
	// TypeLikeStringReplace assumes reflection still works after renaming
	// and merges such classes anyway.
	TypeLikeStringReplace
)

// ParseTypeLikeStringConfig parses a config string.
func ParseTypeLikeStringConfig(s string) (TypeLikeStringConfig, error) {
	switch s {
	case "", "exclude":
		return TypeLikeStringExclude, nil
	case "replace":
		return TypeLikeStringReplace, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeSpecError, "unknown type-like string config %q", s)
	}
}

// Strategy selects how a mergeable pool is split into merger groups.
type Strategy int

const (
	// StrategyByClassCount caps each group at max_count classes.
	StrategyByClassCount Strategy = iota
	// StrategyByCodeSize closes a group early once its estimated code size
	// exceeds the per-merger budget.
	StrategyByCodeSize
)

// String returns the config name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyByClassCount:
		return "by-class-count"
	case StrategyByCodeSize:
		return "by-code-size"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a config string.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "by-class-count":
		return StrategyByClassCount, nil
	case "by-code-size":
		return StrategyByCodeSize, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeSpecError, "unknown merging strategy %q", s)
	}
}

// ApproxShapingConfig controls approximate shape merging: folding a shape
// into a strict superset shape when the extra field count is within the
// tolerance. Missing fields on the folded types become default-initialized
// slots of the superset shape.
type ApproxShapingConfig struct {
	Enabled bool
	// MaxFieldDelta is the maximum number of extra fields the superset
	// shape may carry over the folded shape.
	MaxFieldDelta int
}

// ModelSpec is the declarative, immutable specification of one model.
type ModelSpec struct {
	// Name identifies the model in logs, metrics and print output.
	Name string
	// ClassNamePrefix prefixes every generated merger class name.
	ClassNamePrefix string

	// Roots are the base types from which candidate subtypes are discovered.
	Roots []*dex.Type
	// MergingTargets optionally narrows merging to an explicit set of
	// subtypes. Empty means every discovered subtype is a target.
	MergingTargets *dex.TypeSet

	// ExcludeTypes and ExcludePrefixes remove types (and their subtrees)
	// from the model.
	ExcludeTypes    *dex.TypeSet
	ExcludePrefixes []string

	TypeTagConfig TypeTagConfig
	// TypeTagField is the instance field carrying the input type tag for
	// the input-* tag policies.
	TypeTagField string

	// MinCount is the smallest group that still forms a merger. Groups
	// below it are dropped. Defaults to 2.
	MinCount int
	// MaxCount caps mergeables per merger. 0 means uncapped.
	MaxCount int

	Strategy Strategy

	InterdexGrouping      InterDexGroupingType
	InterdexInferringMode InterDexInferringMode

	// PerDexGrouping forbids mergers whose mergeables span dex files.
	PerDexGrouping bool
	// IncludePrimaryDex permits merging candidates resolved to the primary
	// dex.
	IncludePrimaryDex bool

	// IsGeneratedCode enables reference-safety exclusion for the whole
	// candidate set.
	IsGeneratedCode bool
	// GenAnnos are annotation types marking generated code.
	GenAnnos *dex.TypeSet
	// Generated describes the generated set the model belongs to, used to
	// relax reference-safety exclusion inside it.
	Generated GeneratedSpec

	MergeTypesWithStaticFields bool
	KeepDebugInfo              bool
	DedupFillInStackTrace      bool
	TypeLikeStrings            TypeLikeStringConfig

	ApproximateShaping ApproxShapingConfig

	// MaxNumDispatchTargets caps the per-merger dispatch fan-out. 0 means
	// uncapped.
	MaxNumDispatchTargets int
}

// defaultTypeTagField is the conventional input tag field name.
const defaultTypeTagField = "mTypeTag"

// Validate normalizes defaults and rejects inconsistent specs.
func (s *ModelSpec) Validate() error {
	if s.Name == "" {
		return apperrors.New(apperrors.CodeSpecError, "model spec without a name")
	}
	if len(s.Roots) == 0 {
		return apperrors.Newf(apperrors.CodeSpecError, "model %s has no roots", s.Name)
	}
	if s.MinCount <= 0 {
		s.MinCount = 2
	}
	if s.MaxCount > 0 && s.MinCount > s.MaxCount {
		return apperrors.Newf(apperrors.CodeSpecError,
			"model %s: min_count %d exceeds max_count %d", s.Name, s.MinCount, s.MaxCount)
	}
	if s.TypeTagField == "" {
		s.TypeTagField = defaultTypeTagField
	}
	return nil
}

// GeneratedSpec describes the generated code set a model covers beyond its
// own roots.
type GeneratedSpec struct {
	// SameNamespace skips the reference-safety exclusion for candidates in
	// the same namespace as a generated root: cross references inside one
	// generated namespace never leak class identity.
	SameNamespace bool
	// OtherRoots are additional bases whose subtypes belong to the
	// generated set. They contribute namespaces but are not merged.
	OtherRoots []*dex.Type
}

// GeneratedNamespaces returns the package prefixes the generated set
// spans: the model roots (for generated-code models) plus the declared
// other roots. Empty unless same-namespace handling is on. The reference
// checker treats type-like strings inside these as safe.
func (s *ModelSpec) GeneratedNamespaces() []string {
	if !s.Generated.SameNamespace {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(t *dex.Type) {
		if ns := namespaceOf(t.Name()); ns != "" && !seen[ns] {
			seen[ns] = true
			out = append(out, ns)
		}
	}
	if s.IsGeneratedCode {
		for _, r := range s.Roots {
			add(r)
		}
	}
	for _, r := range s.Generated.OtherRoots {
		add(r)
	}
	return out
}

// namespaceOf returns the package prefix of a type descriptor, including
// the trailing slash, or "" for the default package.
func namespaceOf(name string) string {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return ""
	}
	return name[:idx+1]
}

// GenerateTypeTag reports whether the engine must synthesize a tag.
func (s *ModelSpec) GenerateTypeTag() bool {
	return s.TypeTagConfig == TypeTagGenerate
}

// NoTypeTag reports whether no tag exists or is generated.
func (s *ModelSpec) NoTypeTag() bool {
	return s.TypeTagConfig == TypeTagNone
}

// HasTypeTag reports whether a tag exists in the output.
func (s *ModelSpec) HasTypeTag() bool {
	return s.TypeTagConfig != TypeTagNone
}

// InputHasTypeTag reports whether the input hierarchy carries tags.
func (s *ModelSpec) InputHasTypeTag() bool {
	return s.TypeTagConfig == TypeTagInputPassToCtor ||
		s.TypeTagConfig == TypeTagInputHandled
}

// PassTypeTagToCtor reports whether constructor plumbing must be generated.
func (s *ModelSpec) PassTypeTagToCtor() bool {
	return s.TypeTagConfig == TypeTagGenerate ||
		s.TypeTagConfig == TypeTagInputPassToCtor
}

// ExcludeTypeLikeStrings reports whether reflected names exclude a class.
func (s *ModelSpec) ExcludeTypeLikeStrings() bool {
	return s.TypeLikeStrings == TypeLikeStringExclude
}

// InterdexGroupingEnabled reports whether interdex constraints apply.
func (s *ModelSpec) InterdexGroupingEnabled() bool {
	return s.InterdexGrouping != InterdexDisabled
}
