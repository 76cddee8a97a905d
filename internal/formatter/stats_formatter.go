package formatter

import (
	"sort"

	"github.com/dexmerge/pkg/model"
	"github.com/dexmerge/pkg/utils"
)

// StatsFormatter renders the full counter set per model, including the
// dedup counters and interdex group sizes.
type StatsFormatter struct{}

// Name returns the formatter name used for lookup.
func (f *StatsFormatter) Name() string {
	return "stats"
}

// Format outputs the merge plan to the logger.
func (f *StatsFormatter) Format(plan *model.MergePlan, log utils.Logger) {
	for _, report := range plan.Models {
		log.Info("=== Stats: %s ===", report.Name)
		f.printStats(&report.Stats, log)
		log.Info("")
	}

	log.Info("=== Stats: totals ===")
	f.printStats(&plan.Totals, log)
}

// FormatSummary returns a summary map for serialization.
func (f *StatsFormatter) FormatSummary(plan *model.MergePlan) map[string]interface{} {
	stats := make(map[string]interface{}, len(plan.Models)+1)
	for _, report := range plan.Models {
		stats[report.Name] = report.Stats
	}
	stats["totals"] = plan.Totals

	return map[string]interface{}{
		"rid":   plan.RunUUID,
		"stats": stats,
	}
}

func (f *StatsFormatter) printStats(s *model.StatsReport, log utils.Logger) {
	log.Info("  all_types:                %d", s.AllTypes)
	log.Info("  excluded:                 %d", s.Excluded)
	log.Info("  non_mergeables:           %d", s.NonMergeables)
	log.Info("  dropped:                  %d", s.Dropped)
	log.Info("  classes_merged:           %d", s.ClassesMerged)
	log.Info("  generated_classes:        %d", s.GeneratedClasses)
	log.Info("  ctor_dedupped:            %d", s.CtorDedupped)
	log.Info("  static_non_virt_dedupped: %d", s.StaticNonVirtDedupped)
	log.Info("  vmethods_dedupped:        %d", s.VMethodsDedupped)
	log.Info("  const_lifted_methods:     %d", s.ConstLiftedMethods)

	if s.ApproxShapesMerged > 0 {
		log.Info("  approx shaping: %d shapes folded, %d types moved, %d fields padded",
			s.ApproxShapesMerged, s.ApproxMergeablesMoved, s.ApproxFieldsAdded)
	}

	if len(s.InterdexGroups) == 0 {
		return
	}

	groups := make([]int, 0, len(s.InterdexGroups))
	for g := range s.InterdexGroups {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	log.Info("  interdex groups:")
	for _, g := range groups {
		log.Info("    group %d: %d classes", g, s.InterdexGroups[g])
	}
}
