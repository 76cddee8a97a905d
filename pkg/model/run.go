// Package model defines the core data structures used throughout the application.
package model

import (
	"time"
)

// RunStatus represents the status of a merge run.
type RunStatus int

const (
	RunStatusPending   RunStatus = 0 // Pending
	RunStatusRunning   RunStatus = 1 // Running
	RunStatusCompleted RunStatus = 2 // Completed
	RunStatusFailed    RunStatus = 3 // Failed
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusRunning:
		return "running"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MergeRun represents one invocation of the merge pipeline over a program
// image.
type MergeRun struct {
	ID         int64      `json:"id" db:"id"`
	RunUUID    string     `json:"rid" db:"rid"`
	Status     RunStatus  `json:"status" db:"status"`
	StatusInfo string     `json:"status_info" db:"status_info"`
	ImageFile  string     `json:"image_file" db:"image_file"`
	OrderFile  string     `json:"order_file" db:"order_file"`
	PlanFile   string     `json:"plan_file" db:"plan_file"`
	UserName   string     `json:"user_name" db:"user_name"`
	NumModels  int        `json:"num_models" db:"num_models"`
	CreateTime time.Time  `json:"create_time" db:"create_time"`
	BeginTime  *time.Time `json:"begin_time" db:"begin_time"`
	EndTime    *time.Time `json:"end_time" db:"end_time"`
}

// NewMergeRun creates a new MergeRun instance.
func NewMergeRun(id int64, runUUID string, imageFile string) *MergeRun {
	return &MergeRun{
		ID:         id,
		RunUUID:    runUUID,
		ImageFile:  imageFile,
		Status:     RunStatusPending,
		CreateTime: time.Now(),
	}
}

// Duration returns the wall time of a finished run, zero otherwise.
func (r *MergeRun) Duration() time.Duration {
	if r.BeginTime == nil || r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(*r.BeginTime)
}

// IsFinished reports whether the run reached a terminal status.
func (r *MergeRun) IsFinished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
