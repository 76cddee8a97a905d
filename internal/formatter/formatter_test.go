package formatter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmerge/pkg/model"
	"github.com/dexmerge/pkg/utils"
)

// recordingLogger captures Info lines for assertions.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debug(msg string, args ...interface{}) {}
func (l *recordingLogger) Info(msg string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(msg, args...))
}
func (l *recordingLogger) Warn(msg string, args ...interface{})  {}
func (l *recordingLogger) Error(msg string, args ...interface{}) {}
func (l *recordingLogger) WithField(key string, value interface{}) utils.Logger {
	return l
}
func (l *recordingLogger) WithFields(fields map[string]interface{}) utils.Logger {
	return l
}

func (l *recordingLogger) joined() string {
	return strings.Join(l.lines, "\n")
}

func testPlan() *model.MergePlan {
	dexID := 1
	subgroup := 0
	return &model.MergePlan{
		RunUUID: "run-1",
		Models: []model.ModelReport{
			{
				Name:  "event_classes",
				Roots: []string{"Lcom/app/EventBase;"},
				Mergers: []model.MergerReport{
					{
						Name:             "LGenEBaseShape0S0001000_I0;",
						Shape:            "(0,0,0,1,0,0,0)",
						DexID:            &dexID,
						InterdexSubgroup: &subgroup,
						Mergeables:       []string{"Lcom/app/EventA;", "Lcom/app/EventB;", "Lcom/app/EventC;"},
						Methods: []model.MethodReport{
							{Name: "getValue", Proto: "()I", Dispatch: "type-tag", Targets: []string{"Lcom/app/EventA;", "Lcom/app/EventB;", "Lcom/app/EventC;"}},
							{Name: "onFire", Proto: "()V", Dispatch: "shared", Interface: "Lcom/app/Fireable;", Targets: []string{"Lcom/app/EventA;"}},
						},
					},
					{
						Name:       "LGenEBaseShape1S0001000;",
						Shape:      "(0,0,0,1,0,0,0)",
						Mergeables: []string{"Lcom/app/EventD;", "Lcom/app/EventE;"},
					},
				},
				Stats: model.StatsReport{
					AllTypes:         8,
					Excluded:         1,
					NonMergeables:    1,
					Dropped:          1,
					ClassesMerged:    5,
					GeneratedClasses: 2,
					VMethodsDedupped: 2,
					InterdexGroups:   map[int]int{0: 3, 1: 2},
				},
			},
		},
		Totals: model.StatsReport{
			AllTypes:         8,
			ClassesMerged:    5,
			GeneratedClasses: 2,
		},
	}
}

func TestRegistry_GetAndFallback(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, "summary", r.Get("summary").Name())
	assert.Equal(t, "mergers", r.Get("mergers").Name())
	assert.Equal(t, "stats", r.Get("stats").Name())

	// Unknown names fall back to the summary formatter.
	assert.Equal(t, "summary", r.Get("bogus").Name())
}

func TestRegistry_FormatNilPlan(t *testing.T) {
	r := NewRegistry()
	log := &recordingLogger{}

	r.Format("summary", nil, log)
	assert.Empty(t, log.lines)
}

func TestSummaryFormatter_Format(t *testing.T) {
	f := &SummaryFormatter{}
	log := &recordingLogger{}

	f.Format(testPlan(), log)
	out := log.joined()

	assert.Contains(t, out, "Run UUID:       run-1")
	assert.Contains(t, out, "Model: event_classes")
	assert.Contains(t, out, "Classes merged:    5")
	assert.Contains(t, out, "Generated classes: 2")
	assert.Contains(t, out, "Top mergers:")

	// Largest merger comes first.
	first := strings.Index(out, "LGenEBaseShape0S0001000_I0;")
	second := strings.Index(out, "LGenEBaseShape1S0001000;")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second)
}

func TestSummaryFormatter_FormatSummary(t *testing.T) {
	f := &SummaryFormatter{}

	summary := f.FormatSummary(testPlan())
	assert.Equal(t, "run-1", summary["rid"])
	assert.Equal(t, 5, summary["classes_merged"])

	models, ok := summary["models"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, models, 1)
	assert.Equal(t, "event_classes", models[0]["name"])
	assert.Equal(t, 2, models[0]["mergers"])
}

func TestMergerFormatter_Format(t *testing.T) {
	f := &MergerFormatter{}
	log := &recordingLogger{}

	f.Format(testPlan(), log)
	out := log.joined()

	assert.Contains(t, out, "LGenEBaseShape0S0001000_I0;")
	assert.Contains(t, out, "shape: (0,0,0,1,0,0,0)")
	assert.Contains(t, out, "dex: 1")
	assert.Contains(t, out, "interdex subgroup: 0")
	assert.Contains(t, out, "- Lcom/app/EventA;")
	assert.Contains(t, out, "getValue ()I [type-tag, 3 targets]")
	assert.Contains(t, out, "onFire ()V [shared, 1 targets] intf=Lcom/app/Fireable;")
}

func TestMergerFormatter_FormatSummary(t *testing.T) {
	f := &MergerFormatter{}

	summary := f.FormatSummary(testPlan())
	mergers, ok := summary["mergers"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, mergers, 2)
	assert.Equal(t, 3, mergers[0]["mergeables"])
	assert.Equal(t, 1, mergers[0]["dex_id"])

	// Second merger has no dex assignment.
	_, hasDex := mergers[1]["dex_id"]
	assert.False(t, hasDex)
}

func TestStatsFormatter_Format(t *testing.T) {
	f := &StatsFormatter{}
	log := &recordingLogger{}

	f.Format(testPlan(), log)
	out := log.joined()

	assert.Contains(t, out, "Stats: event_classes")
	assert.Contains(t, out, "classes_merged:           5")
	assert.Contains(t, out, "vmethods_dedupped:        2")
	assert.Contains(t, out, "group 0: 3 classes")
	assert.Contains(t, out, "group 1: 2 classes")
	assert.Contains(t, out, "Stats: totals")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijkl", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}
