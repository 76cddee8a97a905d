package formatter

import (
	"sort"

	"github.com/dexmerge/pkg/model"
	"github.com/dexmerge/pkg/utils"
)

// SummaryFormatter renders per-model headline numbers and the largest
// mergers. It is the default output of the merge command.
type SummaryFormatter struct{}

// Name returns the formatter name used for lookup.
func (f *SummaryFormatter) Name() string {
	return "summary"
}

// Format outputs the merge plan to the logger.
func (f *SummaryFormatter) Format(plan *model.MergePlan, log utils.Logger) {
	log.Info("=== Merge Plan ===")
	log.Info("Run UUID:       %s", plan.RunUUID)
	log.Info("Models:         %d", len(plan.Models))
	log.Info("")

	for _, report := range plan.Models {
		log.Info("=== Model: %s ===", report.Name)
		log.Info("  Types considered:  %d", report.Stats.AllTypes)
		log.Info("  Classes merged:    %d (%.1f%%)", report.Stats.ClassesMerged, report.Stats.MergedRatio()*100)
		log.Info("  Generated classes: %d", report.Stats.GeneratedClasses)
		log.Info("  Excluded:          %d", report.Stats.Excluded)
		log.Info("  Non-mergeables:    %d", report.Stats.NonMergeables)
		log.Info("  Dropped:           %d", report.Stats.Dropped)

		f.printTopMergers(&report, log)
		log.Info("")
	}

	log.Info("=== Totals ===")
	log.Info("  Classes merged:    %d", plan.Totals.ClassesMerged)
	log.Info("  Generated classes: %d", plan.Totals.GeneratedClasses)
}

// FormatSummary returns a summary map for serialization.
func (f *SummaryFormatter) FormatSummary(plan *model.MergePlan) map[string]interface{} {
	models := make([]map[string]interface{}, 0, len(plan.Models))
	for _, report := range plan.Models {
		models = append(models, map[string]interface{}{
			"name":              report.Name,
			"mergers":           len(report.Mergers),
			"classes_merged":    report.Stats.ClassesMerged,
			"generated_classes": report.Stats.GeneratedClasses,
			"merged_ratio":      report.Stats.MergedRatio(),
		})
	}

	return map[string]interface{}{
		"rid":               plan.RunUUID,
		"models":            models,
		"classes_merged":    plan.Totals.ClassesMerged,
		"generated_classes": plan.Totals.GeneratedClasses,
	}
}

func (f *SummaryFormatter) printTopMergers(report *model.ModelReport, log utils.Logger) {
	if len(report.Mergers) == 0 {
		return
	}

	mergers := make([]model.MergerReport, len(report.Mergers))
	copy(mergers, report.Mergers)
	sort.SliceStable(mergers, func(i, j int) bool {
		return len(mergers[i].Mergeables) > len(mergers[j].Mergeables)
	})

	log.Info("  Top mergers:")
	count := min(5, len(mergers))
	for i := 0; i < count; i++ {
		m := mergers[i]
		log.Info("    %2d. %4d classes  %s", i+1, len(m.Mergeables), truncateString(m.Name, 70))
	}
	if len(mergers) > count {
		log.Info("    ... and %d more mergers", len(mergers)-count)
	}
}
