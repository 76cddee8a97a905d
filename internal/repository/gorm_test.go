package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dexmerge/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Create tables
	err = db.AutoMigrate(
		&MergeRunRecord{},
		&MergePlanRecord{},
		&MergeSuggestion{},
	)
	require.NoError(t, err)

	return db
}

func TestGormRunRepository_GetPendingRuns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("GetPendingRuns_Empty", func(t *testing.T) {
		runs, err := repo.GetPendingRuns(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("GetPendingRuns_WithData", func(t *testing.T) {
		run := &MergeRunRecord{
			RID:       "run-uuid-1",
			Status:    model.RunStatusPending,
			ImageFile: "classes.json",
			UserName:  "testuser",
		}
		require.NoError(t, db.Create(run).Error)

		completed := &MergeRunRecord{
			RID:    "run-uuid-2",
			Status: model.RunStatusCompleted,
		}
		require.NoError(t, db.Create(completed).Error)

		runs, err := repo.GetPendingRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-uuid-1", runs[0].RunUUID)
		assert.Equal(t, "classes.json", runs[0].ImageFile)
	})
}

func TestGormRunRepository_GetRunByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("GetRunByID_NotFound", func(t *testing.T) {
		run, err := repo.GetRunByID(ctx, 999)
		assert.Error(t, err)
		assert.Nil(t, run)
		assert.Contains(t, err.Error(), "run not found")
	})

	t.Run("GetRunByID_Success", func(t *testing.T) {
		record := &MergeRunRecord{
			RID:    "run-uuid-3",
			Status: model.RunStatusPending,
		}
		require.NoError(t, db.Create(record).Error)

		run, err := repo.GetRunByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, "run-uuid-3", run.RunUUID)
	})
}

func TestGormRunRepository_GetRunByUUID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("GetRunByUUID_NotFound", func(t *testing.T) {
		run, err := repo.GetRunByUUID(ctx, "missing")
		assert.Error(t, err)
		assert.Nil(t, run)
	})

	t.Run("GetRunByUUID_Success", func(t *testing.T) {
		record := &MergeRunRecord{
			RID:       "run-uuid-4",
			Status:    model.RunStatusPending,
			OrderFile: "betamap.txt",
		}
		require.NoError(t, db.Create(record).Error)

		run, err := repo.GetRunByUUID(ctx, "run-uuid-4")
		require.NoError(t, err)
		assert.Equal(t, record.ID, run.ID)
		assert.Equal(t, "betamap.txt", run.OrderFile)
	})
}

func TestGormRunRepository_CreateRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	run := model.NewMergeRun(0, "run-uuid-5", "classes.json")
	run.UserName = "alice"
	run.NumModels = 3

	err := repo.CreateRun(ctx, run)
	require.NoError(t, err)
	assert.NotZero(t, run.ID)

	loaded, err := repo.GetRunByUUID(ctx, "run-uuid-5")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPending, loaded.Status)
	assert.Equal(t, "alice", loaded.UserName)
	assert.Equal(t, 3, loaded.NumModels)
}

func TestGormRunRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("UpdateStatus_NotFound", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, 999, model.RunStatusRunning)
		assert.Error(t, err)
	})

	t.Run("UpdateStatus_Success", func(t *testing.T) {
		record := &MergeRunRecord{
			RID:    "run-uuid-6",
			Status: model.RunStatusPending,
		}
		require.NoError(t, db.Create(record).Error)

		err := repo.UpdateStatus(ctx, record.ID, model.RunStatusRunning)
		require.NoError(t, err)

		run, err := repo.GetRunByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusRunning, run.Status)
	})

	t.Run("UpdateStatusWithInfo_SetsEndTime", func(t *testing.T) {
		record := &MergeRunRecord{
			RID:    "run-uuid-7",
			Status: model.RunStatusRunning,
		}
		require.NoError(t, db.Create(record).Error)

		err := repo.UpdateStatusWithInfo(ctx, record.ID, model.RunStatusFailed, "image parse error")
		require.NoError(t, err)

		run, err := repo.GetRunByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, run.Status)
		assert.Equal(t, "image parse error", run.StatusInfo)
		assert.NotNil(t, run.EndTime)
	})
}

func TestGormRunRepository_LockRunForMerge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("Lock_NotFound", func(t *testing.T) {
		locked, err := repo.LockRunForMerge(ctx, 999)
		require.NoError(t, err)
		assert.False(t, locked)
	})

	t.Run("Lock_Pending", func(t *testing.T) {
		record := &MergeRunRecord{
			RID:    "run-uuid-8",
			Status: model.RunStatusPending,
		}
		require.NoError(t, db.Create(record).Error)

		locked, err := repo.LockRunForMerge(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, locked)

		run, err := repo.GetRunByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusRunning, run.Status)
		assert.NotNil(t, run.BeginTime)

		// Second lock attempt fails: the run is no longer pending.
		locked, err = repo.LockRunForMerge(ctx, record.ID)
		require.NoError(t, err)
		assert.False(t, locked)
	})
}

func samplePlan(runUUID string) *model.MergePlan {
	return &model.MergePlan{
		RunUUID: runUUID,
		Version: "v1.0.0",
		Models: []model.ModelReport{
			{
				Name:  "event_classes",
				Roots: []string{"Lcom/app/EventBase;"},
				Mergers: []model.MergerReport{
					{
						Name:       "LGenEBaseShape0S0001000;",
						Shape:      "(0,0,0,1,0,0,0)",
						Mergeables: []string{"Lcom/app/EventA;", "Lcom/app/EventB;"},
					},
				},
				Stats: model.StatsReport{
					AllTypes:         5,
					ClassesMerged:    2,
					GeneratedClasses: 1,
				},
			},
		},
		Totals: model.StatsReport{
			AllTypes:         5,
			ClassesMerged:    2,
			GeneratedClasses: 1,
		},
	}
}

func TestGormPlanRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanRepository(db, "v1.0.0")
	ctx := context.Background()

	t.Run("GetPlan_NotFound", func(t *testing.T) {
		plan, err := repo.GetPlanByRunUUID(ctx, "missing")
		assert.Error(t, err)
		assert.Nil(t, plan)
	})

	t.Run("SavePlan_Success", func(t *testing.T) {
		plan := samplePlan("run-uuid-9")
		require.NoError(t, repo.SavePlan(ctx, plan))

		loaded, err := repo.GetPlanByRunUUID(ctx, "run-uuid-9")
		require.NoError(t, err)
		assert.Equal(t, "run-uuid-9", loaded.RunUUID)
		assert.Equal(t, "v1.0.0", loaded.Version)
		require.Len(t, loaded.Models, 1)
		assert.Equal(t, "event_classes", loaded.Models[0].Name)
		require.Len(t, loaded.Models[0].Mergers, 1)
		assert.Equal(t, 2, loaded.Totals.ClassesMerged)
	})

	t.Run("SavePlan_FillsCounterColumns", func(t *testing.T) {
		plan := samplePlan("run-uuid-10")
		require.NoError(t, repo.SavePlan(ctx, plan))

		var record MergePlanRecord
		require.NoError(t, db.Where("rid = ?", "run-uuid-10").First(&record).Error)
		assert.Equal(t, 2, record.ClassesMerged)
		assert.Equal(t, 1, record.GeneratedClasses)
	})
}

func TestGormPlanRepository_UpdatePlan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPlanRepository(db, "v1.0.0")
	ctx := context.Background()

	t.Run("UpdatePlan_NotFound", func(t *testing.T) {
		err := repo.UpdatePlan(ctx, samplePlan("missing"))
		assert.Error(t, err)
	})

	t.Run("UpdatePlan_Success", func(t *testing.T) {
		plan := samplePlan("run-uuid-11")
		require.NoError(t, repo.SavePlan(ctx, plan))

		plan.Totals.ClassesMerged = 10
		require.NoError(t, repo.UpdatePlan(ctx, plan))

		loaded, err := repo.GetPlanByRunUUID(ctx, "run-uuid-11")
		require.NoError(t, err)
		assert.Equal(t, 10, loaded.Totals.ClassesMerged)
	})
}

func TestGormSuggestionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSuggestionRepository(db)
	ctx := context.Background()

	t.Run("SaveSuggestions_Empty", func(t *testing.T) {
		require.NoError(t, repo.SaveSuggestions(ctx, nil))
	})

	t.Run("SaveSuggestions_SkipsBlank", func(t *testing.T) {
		suggestions := []model.Suggestion{
			{
				RunUUID:    "run-uuid-12",
				ModelName:  "event_classes",
				Type:       "high_drop_rate",
				Severity:   "warning",
				Suggestion: "most shape groups fall below min_count",
			},
			{
				RunUUID:   "run-uuid-12",
				ModelName: "event_classes",
				Type:      "empty",
			},
		}
		require.NoError(t, repo.SaveSuggestions(ctx, suggestions))

		loaded, err := repo.GetSuggestionsByRunUUID(ctx, "run-uuid-12")
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "high_drop_rate", loaded[0].Type)
		assert.Equal(t, "warning", loaded[0].Severity)
	})

	t.Run("GetSuggestions_None", func(t *testing.T) {
		loaded, err := repo.GetSuggestionsByRunUUID(ctx, "run-uuid-13")
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})
}

func newMockMySQLDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestGormRunRepository_UpdateStatus_MySQL(t *testing.T) {
	db, mock := newMockMySQLDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("UpdateStatus_Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `merge_run`").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, 1, model.RunStatusRunning)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UpdateStatus_NoRows", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `merge_run`").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, 42, model.RunStatusCompleted)
		assert.Error(t, err)
	})
}
