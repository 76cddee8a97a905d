package model

import (
	"time"
)

// MergePlan is the serializable output of a merge run: one report per
// model, ready for downstream code generation or inspection.
type MergePlan struct {
	RunUUID     string        `json:"rid"`
	Version     string        `json:"version"`
	Models      []ModelReport `json:"models"`
	Totals      StatsReport   `json:"totals"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// ModelReport is the plan slice for one model.
type ModelReport struct {
	Name      string         `json:"name"`
	Roots     []string       `json:"roots"`
	Mergers   []MergerReport `json:"mergers"`
	Stats     StatsReport    `json:"stats"`
	Hierarchy string         `json:"hierarchy,omitempty"`
}

// MergerReport describes one synthetic merger class.
type MergerReport struct {
	Name             string         `json:"name"`
	Shape            string         `json:"shape"`
	DexID            *int           `json:"dex_id,omitempty"`
	InterdexSubgroup *int           `json:"interdex_subgroup,omitempty"`
	Mergeables       []string       `json:"mergeables"`
	Methods          []MethodReport `json:"methods,omitempty"`
}

// MethodReport is the dispatch decision for one signature on a merger.
type MethodReport struct {
	Name      string   `json:"name"`
	Proto     string   `json:"proto"`
	Dispatch  string   `json:"dispatch"` // "shared" or "type-tag"
	Interface string   `json:"interface,omitempty"`
	Targets   []string `json:"targets"`
}

// StatsReport is the serializable form of model build counters.
type StatsReport struct {
	AllTypes         int `json:"all_types"`
	Excluded         int `json:"excluded"`
	NonMergeables    int `json:"non_mergeables"`
	Dropped          int `json:"dropped"`
	ClassesMerged    int `json:"classes_merged"`
	GeneratedClasses int `json:"generated_classes"`

	CtorDedupped          int `json:"ctor_dedupped,omitempty"`
	StaticNonVirtDedupped int `json:"static_non_virt_dedupped,omitempty"`
	VMethodsDedupped      int `json:"vmethods_dedupped,omitempty"`
	ConstLiftedMethods    int `json:"const_lifted_methods,omitempty"`

	ApproxShapesMerged    int `json:"approx_shapes_merged,omitempty"`
	ApproxMergeablesMoved int `json:"approx_mergeables_moved,omitempty"`
	ApproxFieldsAdded     int `json:"approx_fields_added,omitempty"`

	InterdexGroups map[int]int `json:"interdex_groups,omitempty"`
}

// MergedRatio returns the fraction of considered types that merged.
func (s *StatsReport) MergedRatio() float64 {
	if s.AllTypes == 0 {
		return 0
	}
	return float64(s.ClassesMerged) / float64(s.AllTypes)
}
