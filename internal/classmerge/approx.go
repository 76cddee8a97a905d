package classmerge

import "sort"

// ApproxStats counts the effect of approximate shape merging.
type ApproxStats struct {
	// ShapesMerged is the number of shape buckets folded away.
	ShapesMerged int
	// MergeablesMoved is the number of types moved into a superset shape.
	MergeablesMoved int
	// FieldsAdded is the total number of default-initialized padding slots.
	FieldsAdded int
}

// Add accumulates other into s.
func (s *ApproxStats) Add(other ApproxStats) {
	s.ShapesMerged += other.ShapesMerged
	s.MergeablesMoved += other.MergeablesMoved
	s.FieldsAdded += other.FieldsAdded
}

// approximateShapes folds small shape buckets into near-identical superset
// shapes. The rule is deterministic:
//
//  1. Shapes are visited in ascending population order (ties broken by the
//     shape total order), so the smallest buckets are folded first.
//  2. A fold target must strictly include the source shape and add at most
//     MaxFieldDelta padding slots.
//  3. Among eligible targets the most populated bucket wins; ties again go
//     to the shape total order.
//
// Types folded into a superset receive default-initialized slots for the
// missing fields.
func approximateShapes(collector *ShapeCollector, config ApproxShapingConfig) ApproxStats {
	var stats ApproxStats
	if !config.Enabled || config.MaxFieldDelta <= 0 {
		return stats
	}

	shapes := collector.Shapes()
	sort.SliceStable(shapes, func(i, j int) bool {
		ni := collector.TypesOf(shapes[i]).Len()
		nj := collector.TypesOf(shapes[j]).Len()
		if ni != nj {
			return ni < nj
		}
		return shapes[i].Less(shapes[j])
	})

	for _, source := range shapes {
		sourceTypes := collector.TypesOf(source)
		if sourceTypes == nil {
			// Already folded into another bucket.
			continue
		}

		var target *Shape
		targetPop := 0
		for _, candidate := range collector.Shapes() {
			if candidate == source {
				continue
			}
			if !candidate.Includes(source) || candidate.Distance(source) > config.MaxFieldDelta {
				continue
			}
			pop := collector.TypesOf(candidate).Len()
			if target == nil || pop > targetPop || (pop == targetPop && candidate.Less(*target)) {
				c := candidate
				target = &c
				targetPop = pop
			}
		}
		if target == nil {
			continue
		}

		padding := target.Distance(source)
		for _, t := range sourceTypes.Types() {
			collector.Insert(*target, t)
		}
		stats.ShapesMerged++
		stats.MergeablesMoved += sourceTypes.Len()
		stats.FieldsAdded += padding * sourceTypes.Len()
		collector.remove(source)
	}

	return stats
}
