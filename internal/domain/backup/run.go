package backup

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunKind string

const (
	RunKindBackup  RunKind = "backup"
	RunKindRestore RunKind = "restore"
)

type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run tracks one asynchronous backup or restore request.
type Run struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind        RunKind        `gorm:"column:kind;size:16;not null;index" json:"kind"`
	Status      RunStatus      `gorm:"column:status;size:16;not null;index" json:"status"`
	ActivityID  *int64         `gorm:"column:activityid" json:"activityid,omitempty"`
	CourseID    int64          `gorm:"column:courseid;not null" json:"courseid"`
	UserInfo    bool           `gorm:"column:userinfo;not null" json:"userinfo"`
	ArchiveKey  string         `gorm:"column:archivekey;size:255" json:"archivekey,omitempty"`
	RequestedBy int64          `gorm:"column:requestedby;not null" json:"requestedby"`
	Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
	Summary     datatypes.JSON `gorm:"column:summary" json:"summary,omitempty"`
	StartedAt   *time.Time     `gorm:"column:startedat" json:"startedat,omitempty"`
	FinishedAt  *time.Time     `gorm:"column:finishedat" json:"finishedat,omitempty"`
	CreatedAt   time.Time      `gorm:"column:createdat;autoCreateTime" json:"createdat"`
	UpdatedAt   time.Time      `gorm:"column:updatedat;autoUpdateTime" json:"updatedat"`
}

func (Run) TableName() string { return "backup_runs" }

func (r *Run) Done() bool {
	return r != nil && (r.Status == RunStatusSucceeded || r.Status == RunStatusFailed)
}
