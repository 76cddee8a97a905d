package formatter

import (
	"github.com/dexmerge/pkg/model"
	"github.com/dexmerge/pkg/utils"
)

// MergerFormatter renders every merger with its shape, placement and
// method dispatch decisions.
type MergerFormatter struct{}

// Name returns the formatter name used for lookup.
func (f *MergerFormatter) Name() string {
	return "mergers"
}

// Format outputs the merge plan to the logger.
func (f *MergerFormatter) Format(plan *model.MergePlan, log utils.Logger) {
	for _, report := range plan.Models {
		log.Info("=== Model: %s ===", report.Name)

		for _, m := range report.Mergers {
			log.Info("  %s", m.Name)
			log.Info("    shape: %s", m.Shape)
			if m.DexID != nil {
				log.Info("    dex: %d", *m.DexID)
			}
			if m.InterdexSubgroup != nil {
				log.Info("    interdex subgroup: %d", *m.InterdexSubgroup)
			}

			log.Info("    mergeables (%d):", len(m.Mergeables))
			for _, t := range m.Mergeables {
				log.Info("      - %s", t)
			}

			f.printMethods(&m, log)
		}
		log.Info("")
	}
}

// FormatSummary returns a summary map for serialization.
func (f *MergerFormatter) FormatSummary(plan *model.MergePlan) map[string]interface{} {
	mergers := make([]map[string]interface{}, 0)
	for _, report := range plan.Models {
		for _, m := range report.Mergers {
			entry := map[string]interface{}{
				"model":      report.Name,
				"name":       m.Name,
				"shape":      m.Shape,
				"mergeables": len(m.Mergeables),
				"methods":    len(m.Methods),
			}
			if m.DexID != nil {
				entry["dex_id"] = *m.DexID
			}
			if m.InterdexSubgroup != nil {
				entry["interdex_subgroup"] = *m.InterdexSubgroup
			}
			mergers = append(mergers, entry)
		}
	}

	return map[string]interface{}{
		"rid":     plan.RunUUID,
		"mergers": mergers,
	}
}

func (f *MergerFormatter) printMethods(m *model.MergerReport, log utils.Logger) {
	if len(m.Methods) == 0 {
		return
	}

	log.Info("    methods (%d):", len(m.Methods))
	for _, method := range m.Methods {
		if method.Interface != "" {
			log.Info("      %s %s [%s, %d targets] intf=%s",
				method.Name, method.Proto, method.Dispatch, len(method.Targets), method.Interface)
			continue
		}
		log.Info("      %s %s [%s, %d targets]",
			method.Name, method.Proto, method.Dispatch, len(method.Targets))
	}
}
