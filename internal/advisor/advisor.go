// Package advisor generates tuning suggestions from merge run results.
package advisor

import (
	"fmt"

	"github.com/dexmerge/pkg/model"
)

// Advisor inspects model reports and flags configurations that leave
// merging opportunity on the table.
type Advisor struct {
	rules []Rule
}

// Rule represents a suggestion rule.
type Rule struct {
	Type        string
	Name        string
	Description string
	Threshold   float64
	Check       RuleCheckFunc
}

// RuleCheckFunc is a function that checks if a rule applies.
type RuleCheckFunc func(ctx *RuleContext) []model.Suggestion

// RuleContext provides context for rule checking.
type RuleContext struct {
	RunUUID string
	Report  *model.ModelReport
}

// NewAdvisor creates a new Advisor with default rules.
func NewAdvisor() *Advisor {
	return &Advisor{
		rules: defaultRules(),
	}
}

// NewAdvisorWithRules creates a new Advisor with custom rules.
func NewAdvisorWithRules(rules []Rule) *Advisor {
	return &Advisor{
		rules: rules,
	}
}

// Advise generates suggestions for one model report.
func (a *Advisor) Advise(ctx *RuleContext) []model.Suggestion {
	suggestions := make([]model.Suggestion, 0)

	for _, rule := range a.rules {
		if rule.Check != nil {
			suggestions = append(suggestions, rule.Check(ctx)...)
		}
	}

	for i := range suggestions {
		suggestions[i].RunUUID = ctx.RunUUID
		suggestions[i].ModelName = ctx.Report.Name
	}
	return suggestions
}

// defaultRules returns the default set of merge tuning rules.
func defaultRules() []Rule {
	return []Rule{
		{
			Type:        "coverage",
			Name:        "high_drop_rate",
			Description: "Check for models dropping most of their candidates",
			Threshold:   0.5,
			Check:       checkHighDropRate,
		},
		{
			Type:        "coverage",
			Name:        "low_merge_ratio",
			Description: "Check for models merging few of the considered types",
			Threshold:   0.2,
			Check:       checkLowMergeRatio,
		},
		{
			Type:        "shape",
			Name:        "singleton_mergers",
			Description: "Check for mergers barely above the minimum size",
			Threshold:   3,
			Check:       checkSmallMergers,
		},
		{
			Type:        "exclusion",
			Name:        "heavy_exclusion",
			Description: "Check for exclusion rules removing most candidates",
			Threshold:   0.5,
			Check:       checkHeavyExclusion,
		},
	}
}

// checkHighDropRate flags models whose shape buckets mostly fall under
// min_count.
func checkHighDropRate(ctx *RuleContext) []model.Suggestion {
	suggestions := make([]model.Suggestion, 0)

	stats := ctx.Report.Stats
	if stats.AllTypes == 0 {
		return suggestions
	}
	rate := float64(stats.Dropped) / float64(stats.AllTypes)
	if rate > 0.5 {
		suggestions = append(suggestions, model.Suggestion{
			Type:     "dropped_candidates",
			Severity: "warning",
			Suggestion: fmt.Sprintf(
				"%d of %d candidates dropped below min_count; consider enabling approximate shaping or lowering min_count",
				stats.Dropped, stats.AllTypes),
		})
	}
	return suggestions
}

// checkLowMergeRatio flags models that consider many types but merge few.
func checkLowMergeRatio(ctx *RuleContext) []model.Suggestion {
	suggestions := make([]model.Suggestion, 0)

	stats := ctx.Report.Stats
	if stats.AllTypes < 10 {
		return suggestions
	}
	if stats.MergedRatio() < 0.2 {
		suggestions = append(suggestions, model.Suggestion{
			Type:     "low_merge_ratio",
			Severity: "info",
			Suggestion: fmt.Sprintf(
				"only %d of %d considered types merged; review exclusion rules and shape distribution",
				stats.ClassesMerged, stats.AllTypes),
		})
	}
	return suggestions
}

// checkSmallMergers flags a preponderance of minimum-size mergers, a sign
// that grouping dimensions are slicing the candidate pools too finely.
func checkSmallMergers(ctx *RuleContext) []model.Suggestion {
	suggestions := make([]model.Suggestion, 0)

	small := 0
	for _, merger := range ctx.Report.Mergers {
		if len(merger.Mergeables) <= 3 {
			small++
		}
	}
	if len(ctx.Report.Mergers) >= 4 && small*2 > len(ctx.Report.Mergers) {
		suggestions = append(suggestions, model.Suggestion{
			Type:     "small_mergers",
			Severity: "info",
			Suggestion: fmt.Sprintf(
				"%d of %d mergers hold 3 or fewer classes; per-dex or interdex grouping may be fragmenting the pools",
				small, len(ctx.Report.Mergers)),
		})
	}
	return suggestions
}

// checkHeavyExclusion flags exclusion rules eating most of the candidate
// set.
func checkHeavyExclusion(ctx *RuleContext) []model.Suggestion {
	suggestions := make([]model.Suggestion, 0)

	stats := ctx.Report.Stats
	if stats.AllTypes == 0 {
		return suggestions
	}
	if float64(stats.Excluded)/float64(stats.AllTypes) > 0.5 {
		suggestions = append(suggestions, model.Suggestion{
			Type:     "heavy_exclusion",
			Severity: "warning",
			Suggestion: fmt.Sprintf(
				"%d of %d candidates excluded by spec rules; verify exclude prefixes are not overshooting",
				stats.Excluded, stats.AllTypes),
		})
	}
	return suggestions
}
