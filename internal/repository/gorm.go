package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dexmerge/pkg/model"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// GetPendingRuns retrieves runs waiting for a merge pass.
func (r *GormRunRepository) GetPendingRuns(ctx context.Context, limit int) ([]*model.MergeRun, error) {
	var records []MergeRunRecord

	err := r.db.WithContext(ctx).
		Where("status = ?", model.RunStatusPending).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}

	result := make([]*model.MergeRun, len(records))
	for i, rec := range records {
		result[i] = rec.ToModel()
	}

	return result, nil
}

// GetRunByID retrieves a run by its ID.
func (r *GormRunRepository) GetRunByID(ctx context.Context, id int64) (*model.MergeRun, error) {
	var record MergeRunRecord

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return record.ToModel(), nil
}

// GetRunByUUID retrieves a run by its UUID.
func (r *GormRunRepository) GetRunByUUID(ctx context.Context, uuid string) (*model.MergeRun, error) {
	var record MergeRunRecord

	err := r.db.WithContext(ctx).Where("rid = ?", uuid).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %s", uuid)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return record.ToModel(), nil
}

// CreateRun inserts a new run record.
func (r *GormRunRepository) CreateRun(ctx context.Context, run *model.MergeRun) error {
	var record MergeRunRecord
	record.FromModel(run)
	record.ID = 0

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	run.ID = record.ID
	return nil
}

// UpdateStatus updates the status of a run.
func (r *GormRunRepository) UpdateStatus(ctx context.Context, id int64, status model.RunStatus) error {
	result := r.db.WithContext(ctx).
		Model(&MergeRunRecord{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %d", id)
	}

	return nil
}

// UpdateStatusWithInfo updates the status with additional info.
func (r *GormRunRepository) UpdateStatusWithInfo(ctx context.Context, id int64, status model.RunStatus, info string) error {
	updates := map[string]interface{}{
		"status":      status,
		"status_info": info,
	}
	if status == model.RunStatusCompleted || status == model.RunStatusFailed {
		updates["end_time"] = time.Now()
	}

	result := r.db.WithContext(ctx).
		Model(&MergeRunRecord{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %d", id)
	}

	return nil
}

// LockRunForMerge attempts to lock a run for processing using FOR UPDATE.
func (r *GormRunRepository) LockRunForMerge(ctx context.Context, id int64) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record MergeRunRecord

		// Try to lock the row with FOR UPDATE
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, model.RunStatusPending).
			First(&record).Error

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		return tx.Model(&MergeRunRecord{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     model.RunStatusRunning,
				"begin_time": time.Now(),
			}).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock run: %w", err)
	}

	return true, nil
}

// GormPlanRepository implements PlanRepository using GORM.
type GormPlanRepository struct {
	db      *gorm.DB
	version string
}

// NewGormPlanRepository creates a new GormPlanRepository.
func NewGormPlanRepository(db *gorm.DB, version string) *GormPlanRepository {
	return &GormPlanRepository{db: db, version: version}
}

func (r *GormPlanRepository) record(plan *model.MergePlan) (*MergePlanRecord, error) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}

	return &MergePlanRecord{
		RID:              plan.RunUUID,
		Plan:             planJSON,
		Version:          r.version,
		ClassesMerged:    plan.Totals.ClassesMerged,
		GeneratedClasses: plan.Totals.GeneratedClasses,
	}, nil
}

// SavePlan saves a merge plan to the database.
func (r *GormPlanRepository) SavePlan(ctx context.Context, plan *model.MergePlan) error {
	record, err := r.record(plan)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save merge plan: %w", err)
	}

	return nil
}

// GetPlanByRunUUID retrieves the merge plan for a run.
func (r *GormPlanRepository) GetPlanByRunUUID(ctx context.Context, runUUID string) (*model.MergePlan, error) {
	var record MergePlanRecord

	err := r.db.WithContext(ctx).Where("rid = ?", runUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan not found for run: %s", runUUID)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return record.ToModel()
}

// UpdatePlan updates an existing merge plan.
func (r *GormPlanRepository) UpdatePlan(ctx context.Context, plan *model.MergePlan) error {
	record, err := r.record(plan)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Model(&MergePlanRecord{}).
		Where("rid = ?", plan.RunUUID).
		Updates(map[string]interface{}{
			"plan":              record.Plan,
			"version":           record.Version,
			"classes_merged":    record.ClassesMerged,
			"generated_classes": record.GeneratedClasses,
		})

	if res.Error != nil {
		return fmt.Errorf("failed to update plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plan not found for run: %s", plan.RunUUID)
	}

	return nil
}

// GormSuggestionRepository implements SuggestionRepository using GORM.
type GormSuggestionRepository struct {
	db *gorm.DB
}

// NewGormSuggestionRepository creates a new GormSuggestionRepository.
func NewGormSuggestionRepository(db *gorm.DB) *GormSuggestionRepository {
	return &GormSuggestionRepository{db: db}
}

// SaveSuggestions saves multiple suggestions to the database.
func (r *GormSuggestionRepository) SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		for _, sug := range suggestions {
			if sug.Suggestion == "" {
				continue
			}

			record := &MergeSuggestion{
				RID:        sug.RunUUID,
				Model:      sug.ModelName,
				Type:       sug.Type,
				Severity:   sug.Severity,
				Suggestion: sug.Suggestion,
				CreatedAt:  now,
				UpdatedAt:  now,
			}

			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to insert suggestion: %w", err)
			}
		}

		return nil
	})
}

// GetSuggestionsByRunUUID retrieves suggestions for a run.
func (r *GormSuggestionRepository) GetSuggestionsByRunUUID(ctx context.Context, runUUID string) ([]model.Suggestion, error) {
	var records []MergeSuggestion

	err := r.db.WithContext(ctx).Where("rid = ?", runUUID).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}

	suggestions := make([]model.Suggestion, len(records))
	for i, rec := range records {
		suggestions[i] = rec.ToModel()
	}

	return suggestions, nil
}
