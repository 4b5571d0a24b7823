package training

import "time"

type EvaluationState string

const (
	EvaluationDraft      EvaluationState = "draft"
	EvaluationFinalised  EvaluationState = "finalised"
	EvaluationSuperseded EvaluationState = "superseded"
)

// Evaluation is one versioned evaluation pass of one user. At most one row
// per (WTID, UserID) is Active; older versions stay as history.
type Evaluation struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WTID          int64      `gorm:"column:wtid;not null;uniqueIndex:uq_te_evaluation_version,priority:1" json:"wtid"`
	UserID        int64      `gorm:"column:userid;not null;uniqueIndex:uq_te_evaluation_version,priority:2" json:"userid"`
	Finalised     bool       `gorm:"column:finalised;not null" json:"finalised"`
	FinalisedBy   *int64     `gorm:"column:finalisedby" json:"finalisedby"`
	TimeFinalised *time.Time `gorm:"column:timefinalised" json:"timefinalised"`
	Version       int        `gorm:"column:version;not null;uniqueIndex:uq_te_evaluation_version,priority:3" json:"version"`
	Active        bool       `gorm:"column:active;not null" json:"active"`
	UserModified  int64      `gorm:"column:usermodified;not null" json:"usermodified"`
	TimeCreated   time.Time  `gorm:"column:timecreated;autoCreateTime" json:"timecreated"`
	TimeModified  time.Time  `gorm:"column:timemodified;autoUpdateTime" json:"timemodified"`
}

func (Evaluation) TableName() string { return "trainingevaluation_evaluations" }

func (e *Evaluation) State() EvaluationState {
	switch {
	case e == nil:
		return ""
	case !e.Active:
		return EvaluationSuperseded
	case e.Finalised:
		return EvaluationFinalised
	default:
		return EvaluationDraft
	}
}
