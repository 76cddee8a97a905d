package classmerge

import "fmt"

// MetricsSink accepts named counters. It is write-only from the model's
// perspective; implementations route to the host's metrics plumbing.
type MetricsSink interface {
	IncrBy(name string, value int)
}

// ModelStats accumulates counts across the build phases. Stats combine
// associatively so multi-model runs can aggregate into one total.
type ModelStats struct {
	// Candidate accounting.
	AllTypes      int
	Excluded      int
	NonMergeables int
	Dropped       int

	// Merging results.
	ClassesMerged    int
	GeneratedClasses int

	// Dedup counters filled in by the method distribution phase and by
	// downstream code generation.
	CtorDedupped          int
	StaticNonVirtDedupped int
	VMethodsDedupped      int
	ConstLiftedMethods    int

	// InterdexGroups counts mergeables per interdex subgroup.
	InterdexGroups map[int]int

	// Approx reports approximate shape merging activity.
	Approx ApproxStats
}

// Add accumulates other into s.
func (s *ModelStats) Add(other ModelStats) {
	s.AllTypes += other.AllTypes
	s.Excluded += other.Excluded
	s.NonMergeables += other.NonMergeables
	s.Dropped += other.Dropped
	s.ClassesMerged += other.ClassesMerged
	s.GeneratedClasses += other.GeneratedClasses
	s.CtorDedupped += other.CtorDedupped
	s.StaticNonVirtDedupped += other.StaticNonVirtDedupped
	s.VMethodsDedupped += other.VMethodsDedupped
	s.ConstLiftedMethods += other.ConstLiftedMethods
	if other.InterdexGroups != nil {
		if s.InterdexGroups == nil {
			s.InterdexGroups = make(map[int]int)
		}
		for group, count := range other.InterdexGroups {
			s.InterdexGroups[group] += count
		}
	}
	s.Approx.Add(other.Approx)
}

func (s *ModelStats) countInterdexGroup(group int, count int) {
	if s.InterdexGroups == nil {
		s.InterdexGroups = make(map[int]int)
	}
	s.InterdexGroups[group] += count
}

// Flush emits the stats as named counters with the given prefix.
func (s *ModelStats) Flush(prefix string, sink MetricsSink) {
	sink.IncrBy(prefix+".all_types", s.AllTypes)
	sink.IncrBy(prefix+".excluded", s.Excluded)
	sink.IncrBy(prefix+".non_mergeables", s.NonMergeables)
	sink.IncrBy(prefix+".dropped", s.Dropped)
	sink.IncrBy(prefix+".classes_merged", s.ClassesMerged)
	sink.IncrBy(prefix+".generated_classes", s.GeneratedClasses)
	sink.IncrBy(prefix+".ctor_dedupped", s.CtorDedupped)
	sink.IncrBy(prefix+".static_non_virt_dedupped", s.StaticNonVirtDedupped)
	sink.IncrBy(prefix+".vmethods_dedupped", s.VMethodsDedupped)
	sink.IncrBy(prefix+".const_lifted_methods", s.ConstLiftedMethods)
	sink.IncrBy(prefix+".approx_shapes_merged", s.Approx.ShapesMerged)
	sink.IncrBy(prefix+".approx_mergeables_moved", s.Approx.MergeablesMoved)
	sink.IncrBy(prefix+".approx_fields_added", s.Approx.FieldsAdded)
	for group, count := range s.InterdexGroups {
		sink.IncrBy(fmt.Sprintf("%s.interdex_group_%d", prefix, group), count)
	}
}
