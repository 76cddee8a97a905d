// Package formatter renders merge plans for CLI output.
package formatter

import (
	"github.com/dexmerge/pkg/model"
	"github.com/dexmerge/pkg/utils"
)

// PlanFormatter is the interface for rendering merge plans.
type PlanFormatter interface {
	// Format outputs the merge plan to the logger.
	Format(plan *model.MergePlan, log utils.Logger)

	// FormatSummary returns a summary map for serialization.
	FormatSummary(plan *model.MergePlan) map[string]interface{}

	// Name returns the formatter name used for lookup.
	Name() string
}

// Registry manages formatter instances.
type Registry struct {
	formatters map[string]PlanFormatter
	fallback   PlanFormatter
}

// NewRegistry creates a new formatter registry with default formatters.
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[string]PlanFormatter),
		fallback:   &SummaryFormatter{},
	}

	r.Register(&SummaryFormatter{})
	r.Register(&MergerFormatter{})
	r.Register(&StatsFormatter{})

	return r
}

// Register registers a formatter.
func (r *Registry) Register(f PlanFormatter) {
	r.formatters[f.Name()] = f
}

// Get returns the formatter with the given name.
func (r *Registry) Get(name string) PlanFormatter {
	if f, ok := r.formatters[name]; ok {
		return f
	}
	return r.fallback
}

// Format formats the merge plan using the named formatter.
func (r *Registry) Format(name string, plan *model.MergePlan, log utils.Logger) {
	if plan == nil {
		return
	}
	r.Get(name).Format(plan, log)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
