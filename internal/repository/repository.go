// Package repository provides database persistence for merge runs.
package repository

import (
	"context"

	"github.com/dexmerge/pkg/model"
)

// RunRepository defines the interface for merge-run database operations.
type RunRepository interface {
	// GetPendingRuns retrieves runs waiting for a merge pass.
	GetPendingRuns(ctx context.Context, limit int) ([]*model.MergeRun, error)

	// GetRunByID retrieves a run by its ID.
	GetRunByID(ctx context.Context, id int64) (*model.MergeRun, error)

	// GetRunByUUID retrieves a run by its UUID.
	GetRunByUUID(ctx context.Context, uuid string) (*model.MergeRun, error)

	// CreateRun inserts a new run record.
	CreateRun(ctx context.Context, run *model.MergeRun) error

	// UpdateStatus updates the status of a run.
	UpdateStatus(ctx context.Context, id int64, status model.RunStatus) error

	// UpdateStatusWithInfo updates the status with additional info.
	UpdateStatusWithInfo(ctx context.Context, id int64, status model.RunStatus, info string) error

	// LockRunForMerge attempts to lock a run for processing (prevents
	// concurrent workers picking up the same run).
	LockRunForMerge(ctx context.Context, id int64) (bool, error)
}

// PlanRepository defines the interface for merge plan persistence.
type PlanRepository interface {
	// SavePlan saves a merge plan to the database.
	SavePlan(ctx context.Context, plan *model.MergePlan) error

	// GetPlanByRunUUID retrieves the merge plan for a run.
	GetPlanByRunUUID(ctx context.Context, runUUID string) (*model.MergePlan, error)

	// UpdatePlan updates an existing merge plan.
	UpdatePlan(ctx context.Context, plan *model.MergePlan) error
}

// SuggestionRepository defines the interface for suggestion operations.
type SuggestionRepository interface {
	// SaveSuggestions saves multiple suggestions to the database.
	SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error

	// GetSuggestionsByRunUUID retrieves suggestions for a run.
	GetSuggestionsByRunUUID(ctx context.Context, runUUID string) ([]model.Suggestion, error)
}
