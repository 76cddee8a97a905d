package classmerge

import (
	"github.com/dexmerge/internal/dex"
	"github.com/dexmerge/pkg/config"
)

// SpecFromConfig materializes a file-form model config against a loaded
// image's type index. Enum strings are parsed here so a misconfigured
// model fails before any build work starts.
func SpecFromConfig(mc *config.ModelConfig, ix *dex.TypeIndex) (*ModelSpec, error) {
	spec := &ModelSpec{
		Name:            mc.Name,
		ClassNamePrefix: mc.ClassNamePrefix,
		TypeTagField:    mc.TypeTagField,

		MinCount: mc.MinCount,
		MaxCount: mc.MaxCount,

		PerDexGrouping:    mc.PerDexGrouping,
		IncludePrimaryDex: mc.IncludePrimaryDex,
		IsGeneratedCode:   mc.IsGeneratedCode,

		MergeTypesWithStaticFields: mc.MergeTypesWithStaticFields,
		KeepDebugInfo:              mc.KeepDebugInfo,
		// Deduplicating fillInStackTrace overrides is on unless the config
		// opts out.
		DedupFillInStackTrace: mc.DedupFillInStackTrace == nil || *mc.DedupFillInStackTrace,

		ApproximateShaping: ApproxShapingConfig{
			Enabled:       mc.ApproximateShaping.Enabled,
			MaxFieldDelta: mc.ApproximateShaping.MaxFieldDelta,
		},
		MaxNumDispatchTargets: mc.MaxNumDispatchTargets,
	}

	for _, name := range mc.Roots {
		spec.Roots = append(spec.Roots, ix.Intern(name))
	}
	if len(mc.MergingTargets) > 0 {
		spec.MergingTargets = dex.NewTypeSet()
		for _, name := range mc.MergingTargets {
			spec.MergingTargets.Insert(ix.Intern(name))
		}
	}
	if len(mc.Exclude) > 0 {
		spec.ExcludeTypes = dex.NewTypeSet()
		for _, name := range mc.Exclude {
			spec.ExcludeTypes.Insert(ix.Intern(name))
		}
	}
	spec.ExcludePrefixes = append(spec.ExcludePrefixes, mc.ExcludePrefixes...)
	if len(mc.GenAnnos) > 0 {
		spec.GenAnnos = dex.NewTypeSet()
		for _, name := range mc.GenAnnos {
			spec.GenAnnos.Insert(ix.Intern(name))
		}
	}
	spec.Generated.SameNamespace = mc.Generated.SameNamespace
	for _, name := range mc.Generated.OtherRoots {
		spec.Generated.OtherRoots = append(spec.Generated.OtherRoots, ix.Intern(name))
	}

	var err error
	if mc.TypeTagConfig != "" {
		if spec.TypeTagConfig, err = ParseTypeTagConfig(mc.TypeTagConfig); err != nil {
			return nil, err
		}
	}
	if mc.Strategy != "" {
		if spec.Strategy, err = ParseStrategy(mc.Strategy); err != nil {
			return nil, err
		}
	}
	if mc.InterdexGrouping != "" {
		if spec.InterdexGrouping, err = ParseInterDexGroupingType(mc.InterdexGrouping); err != nil {
			return nil, err
		}
	}
	if mc.InterdexInferringMode != "" {
		if spec.InterdexInferringMode, err = ParseInterDexInferringMode(mc.InterdexInferringMode); err != nil {
			return nil, err
		}
	}
	if mc.TypeLikeStrings != "" {
		if spec.TypeLikeStrings, err = ParseTypeLikeStringConfig(mc.TypeLikeStrings); err != nil {
			return nil, err
		}
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
