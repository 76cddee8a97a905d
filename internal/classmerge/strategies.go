package classmerge

import (
	"github.com/dexmerge/internal/dex"
)

// perMergerCodeBudget is the estimated code-unit budget of one merger under
// the by-code-size strategy. A group is closed early once it would exceed
// the budget, keeping generated dispatch and linearized methods within a
// single dex method-count comfort zone.
const perMergerCodeBudget = 1 << 16

// splitGroups applies the splitting strategy to a mergeable pool, producing
// subgroups each within maxCount (when set). The pool arrives name ordered
// and subgroups preserve that order, so the split is deterministic.
// Subgroups below minCount are the caller's responsibility to drop.
func splitGroups(
	strategy Strategy,
	scope *dex.Scope,
	pool []*dex.Type,
	maxCount int,
) [][]*dex.Type {
	if len(pool) == 0 {
		return nil
	}
	switch strategy {
	case StrategyByCodeSize:
		return splitByCodeSize(scope, pool, maxCount)
	default:
		return splitByClassCount(pool, maxCount)
	}
}

func splitByClassCount(pool []*dex.Type, maxCount int) [][]*dex.Type {
	if maxCount <= 0 {
		return [][]*dex.Type{pool}
	}
	var groups [][]*dex.Type
	for start := 0; start < len(pool); start += maxCount {
		end := start + maxCount
		if end > len(pool) {
			end = len(pool)
		}
		groups = append(groups, pool[start:end])
	}
	return groups
}

func splitByCodeSize(scope *dex.Scope, pool []*dex.Type, maxCount int) [][]*dex.Type {
	var groups [][]*dex.Type
	var current []*dex.Type
	currentSize := 0

	for _, t := range pool {
		size := 0
		if cls := scope.ClassOf(t); cls != nil {
			size = cls.CodeSize()
		}
		overBudget := len(current) > 0 && currentSize+size > perMergerCodeBudget
		overCount := maxCount > 0 && len(current) >= maxCount
		if overBudget || overCount {
			groups = append(groups, current)
			current = nil
			currentSize = 0
		}
		current = append(current, t)
		currentSize += size
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
