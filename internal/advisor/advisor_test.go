package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dexmerge/pkg/model"
)

func TestNewAdvisor(t *testing.T) {
	advisor := NewAdvisor()

	assert.NotNil(t, advisor)
	assert.NotEmpty(t, advisor.rules)
}

func TestNewAdvisorWithRules(t *testing.T) {
	rules := []Rule{
		{Type: "test", Name: "test_rule"},
	}

	advisor := NewAdvisorWithRules(rules)

	assert.Len(t, advisor.rules, 1)
	assert.Equal(t, "test_rule", advisor.rules[0].Name)
}

func TestAdvisor_Advise_HighDropRate(t *testing.T) {
	advisor := NewAdvisor()

	ctx := &RuleContext{
		RunUUID: "run-1",
		Report: &model.ModelReport{
			Name: "handlers",
			Stats: model.StatsReport{
				AllTypes:      100,
				Dropped:       80,
				ClassesMerged: 20,
			},
		},
	}

	suggestions := advisor.Advise(ctx)

	var found bool
	for _, s := range suggestions {
		if s.Type == "dropped_candidates" {
			found = true
			assert.Equal(t, "warning", s.Severity)
			assert.Equal(t, "run-1", s.RunUUID)
			assert.Equal(t, "handlers", s.ModelName)
			assert.Contains(t, s.Suggestion, "80 of 100")
		}
	}
	assert.True(t, found, "should flag high drop rate")
}

func TestAdvisor_Advise_LowMergeRatio(t *testing.T) {
	advisor := NewAdvisor()

	ctx := &RuleContext{
		RunUUID: "run-1",
		Report: &model.ModelReport{
			Name: "handlers",
			Stats: model.StatsReport{
				AllTypes:      50,
				ClassesMerged: 5,
				NonMergeables: 45,
			},
		},
	}

	suggestions := advisor.Advise(ctx)

	var found bool
	for _, s := range suggestions {
		if s.Type == "low_merge_ratio" {
			found = true
			assert.Equal(t, "info", s.Severity)
		}
	}
	assert.True(t, found)
}

func TestAdvisor_Advise_SmallMergers(t *testing.T) {
	advisor := NewAdvisor()

	mergers := make([]model.MergerReport, 6)
	for i := range mergers {
		mergers[i] = model.MergerReport{Mergeables: []string{"La;", "Lb;"}}
	}
	mergers[5].Mergeables = []string{"La;", "Lb;", "Lc;", "Ld;", "Le;"}

	ctx := &RuleContext{
		Report: &model.ModelReport{
			Name:    "handlers",
			Mergers: mergers,
			Stats:   model.StatsReport{AllTypes: 20, ClassesMerged: 15},
		},
	}

	suggestions := advisor.Advise(ctx)

	var found bool
	for _, s := range suggestions {
		if s.Type == "small_mergers" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAdvisor_Advise_HealthyModelIsQuiet(t *testing.T) {
	advisor := NewAdvisor()

	ctx := &RuleContext{
		Report: &model.ModelReport{
			Name: "handlers",
			Mergers: []model.MergerReport{
				{Mergeables: []string{"La;", "Lb;", "Lc;", "Ld;", "Le;", "Lf;"}},
			},
			Stats: model.StatsReport{
				AllTypes:      10,
				ClassesMerged: 6,
				Dropped:       1,
				Excluded:      1,
				NonMergeables: 2,
			},
		},
	}

	assert.Empty(t, advisor.Advise(ctx))
}
