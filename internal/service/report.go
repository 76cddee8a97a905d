package service

import (
	"time"

	"github.com/dexmerge/internal/classmerge"
	"github.com/dexmerge/pkg/model"
)

// BuildPlan assembles the serializable merge plan from built models.
func BuildPlan(runUUID, version string, models []*classmerge.Model) *model.MergePlan {
	plan := &model.MergePlan{
		RunUUID:     runUUID,
		Version:     version,
		Models:      make([]model.ModelReport, 0, len(models)),
		GeneratedAt: time.Now(),
	}

	var totals classmerge.ModelStats
	for _, m := range models {
		plan.Models = append(plan.Models, buildModelReport(m))
		totals.Add(m.Stats())
	}
	plan.Totals = statsReport(totals)

	return plan
}

func buildModelReport(m *classmerge.Model) model.ModelReport {
	report := model.ModelReport{
		Name:      m.Name(),
		Stats:     statsReport(m.Stats()),
		Hierarchy: m.Print(),
	}

	for _, root := range m.Roots() {
		report.Roots = append(report.Roots, root.Name())
	}

	for _, merger := range m.Mergers() {
		report.Mergers = append(report.Mergers, buildMergerReport(merger))
	}

	return report
}

func buildMergerReport(merger *classmerge.MergerType) model.MergerReport {
	report := model.MergerReport{
		Name:             merger.Type.Name(),
		Shape:            merger.Shape.String(),
		DexID:            merger.DexID,
		InterdexSubgroup: merger.InterdexSubgroup,
	}

	for _, t := range merger.Mergeables.Types() {
		report.Mergeables = append(report.Mergeables, t.Name())
	}

	for _, group := range merger.VirtualMethods {
		report.Methods = append(report.Methods, buildMethodReport(group))
	}
	for _, group := range merger.InterfaceMethods {
		report.Methods = append(report.Methods, buildMethodReport(group))
	}

	return report
}

func buildMethodReport(group *classmerge.MethodGroup) model.MethodReport {
	report := model.MethodReport{
		Name:  group.Name,
		Proto: group.Proto,
	}

	switch group.Kind {
	case classmerge.DispatchShared:
		report.Dispatch = "shared"
	case classmerge.DispatchByTypeTag:
		report.Dispatch = "type-tag"
	}

	if group.Interface != nil {
		report.Interface = group.Interface.Name()
	}

	for _, impl := range group.Implementations {
		report.Targets = append(report.Targets, impl.Owner.Name())
	}

	return report
}

func statsReport(s classmerge.ModelStats) model.StatsReport {
	report := model.StatsReport{
		AllTypes:              s.AllTypes,
		Excluded:              s.Excluded,
		NonMergeables:         s.NonMergeables,
		Dropped:               s.Dropped,
		ClassesMerged:         s.ClassesMerged,
		GeneratedClasses:      s.GeneratedClasses,
		CtorDedupped:          s.CtorDedupped,
		StaticNonVirtDedupped: s.StaticNonVirtDedupped,
		VMethodsDedupped:      s.VMethodsDedupped,
		ConstLiftedMethods:    s.ConstLiftedMethods,
		ApproxShapesMerged:    s.Approx.ShapesMerged,
		ApproxMergeablesMoved: s.Approx.MergeablesMoved,
		ApproxFieldsAdded:     s.Approx.FieldsAdded,
	}

	if len(s.InterdexGroups) > 0 {
		report.InterdexGroups = make(map[int]int, len(s.InterdexGroups))
		for group, count := range s.InterdexGroups {
			report.InterdexGroups[group] = count
		}
	}

	return report
}
