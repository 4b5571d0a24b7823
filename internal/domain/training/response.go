package training

import "time"

// Response is one user's answer to one item, scoped to an evaluation version.
type Response struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ItemID       int64     `gorm:"column:itemid;not null;uniqueIndex:uq_te_response,priority:1" json:"itemid"`
	UserID       int64     `gorm:"column:userid;not null;uniqueIndex:uq_te_response,priority:2;index" json:"userid"`
	Response     string    `gorm:"column:response;type:text" json:"response"`
	Completed    bool      `gorm:"column:completed;not null" json:"completed"`
	Version      int       `gorm:"column:version;not null;uniqueIndex:uq_te_response,priority:3" json:"version"`
	UserModified int64     `gorm:"column:usermodified;not null" json:"usermodified"`
	TimeCreated  time.Time `gorm:"column:timecreated;autoCreateTime" json:"timecreated"`
	TimeModified time.Time `gorm:"column:timemodified;autoUpdateTime" json:"timemodified"`
}

func (Response) TableName() string { return "trainingevaluation_responses" }
