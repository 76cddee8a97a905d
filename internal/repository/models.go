package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/dexmerge/pkg/model"
)

// MergeRunRecord represents the merge_run table.
type MergeRunRecord struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	RID        string          `gorm:"column:rid;type:varchar(64);uniqueIndex"`
	Status     model.RunStatus `gorm:"column:status"`
	StatusInfo string          `gorm:"column:status_info;type:text"`
	ImageFile  string          `gorm:"column:image_file;type:varchar(512)"`
	OrderFile  string          `gorm:"column:order_file;type:varchar(512)"`
	PlanFile   string          `gorm:"column:plan_file;type:varchar(512)"`
	UserName   string          `gorm:"column:user_name;type:varchar(128)"`
	NumModels  int             `gorm:"column:num_models"`
	CreateTime time.Time       `gorm:"column:create_time;autoCreateTime"`
	BeginTime  *time.Time      `gorm:"column:begin_time"`
	EndTime    *time.Time      `gorm:"column:end_time"`
}

// TableName returns the table name for MergeRunRecord.
func (MergeRunRecord) TableName() string {
	return "merge_run"
}

// ToModel converts MergeRunRecord to model.MergeRun.
func (r *MergeRunRecord) ToModel() *model.MergeRun {
	return &model.MergeRun{
		ID:         r.ID,
		RunUUID:    r.RID,
		Status:     r.Status,
		StatusInfo: r.StatusInfo,
		ImageFile:  r.ImageFile,
		OrderFile:  r.OrderFile,
		PlanFile:   r.PlanFile,
		UserName:   r.UserName,
		NumModels:  r.NumModels,
		CreateTime: r.CreateTime,
		BeginTime:  r.BeginTime,
		EndTime:    r.EndTime,
	}
}

// FromModel fills the record from a model.MergeRun.
func (r *MergeRunRecord) FromModel(run *model.MergeRun) {
	r.ID = run.ID
	r.RID = run.RunUUID
	r.Status = run.Status
	r.StatusInfo = run.StatusInfo
	r.ImageFile = run.ImageFile
	r.OrderFile = run.OrderFile
	r.PlanFile = run.PlanFile
	r.UserName = run.UserName
	r.NumModels = run.NumModels
	r.CreateTime = run.CreateTime
	r.BeginTime = run.BeginTime
	r.EndTime = run.EndTime
}

// MergePlanRecord represents the merge_plan table. The plan body is stored
// as one JSON document; headline counters stay queryable through dedicated
// columns.
type MergePlanRecord struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RID              string    `gorm:"column:rid;type:varchar(64);uniqueIndex"`
	Plan             JSONField `gorm:"column:plan;type:json"`
	Version          string    `gorm:"column:version;type:varchar(32)"`
	ClassesMerged    int       `gorm:"column:classes_merged"`
	GeneratedClasses int       `gorm:"column:generated_classes"`
}

// TableName returns the table name for MergePlanRecord.
func (MergePlanRecord) TableName() string {
	return "merge_plan"
}

// ToModel converts MergePlanRecord to model.MergePlan.
func (r *MergePlanRecord) ToModel() (*model.MergePlan, error) {
	plan := &model.MergePlan{}
	if r.Plan != nil {
		if err := json.Unmarshal(r.Plan, plan); err != nil {
			return nil, err
		}
	}
	plan.RunUUID = r.RID
	plan.Version = r.Version
	return plan, nil
}

// MergeSuggestion represents the merge_suggestions table.
type MergeSuggestion struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RID        string    `gorm:"column:rid;type:varchar(64);index"`
	Model      string    `gorm:"column:model;type:varchar(256)"`
	Type       string    `gorm:"column:type;type:varchar(64)"`
	Severity   string    `gorm:"column:severity;type:varchar(32)"`
	Suggestion string    `gorm:"column:suggestion;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for MergeSuggestion.
func (MergeSuggestion) TableName() string {
	return "merge_suggestions"
}

// ToModel converts MergeSuggestion to model.Suggestion.
func (s *MergeSuggestion) ToModel() model.Suggestion {
	return model.Suggestion{
		ID:         s.ID,
		RunUUID:    s.RID,
		ModelName:  s.Model,
		Type:       s.Type,
		Severity:   s.Severity,
		Suggestion: s.Suggestion,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
