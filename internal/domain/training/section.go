package training

import "time"

// Section is a node of the per-activity section forest. ParentSection, when
// set, points at a section of the same activity.
type Section struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WTID          int64     `gorm:"column:wtid;not null;index" json:"wtid"`
	Name          string    `gorm:"column:name;size:255;not null" json:"name"`
	ParentSection *int64    `gorm:"column:parentsection;index" json:"parentsection"`
	Position      int       `gorm:"column:position;not null" json:"position"`
	UserModified  int64     `gorm:"column:usermodified;not null" json:"usermodified"`
	TimeCreated   time.Time `gorm:"column:timecreated;autoCreateTime" json:"timecreated"`
	TimeModified  time.Time `gorm:"column:timemodified;autoUpdateTime" json:"timemodified"`
}

func (Section) TableName() string { return "trainingevaluation_sections" }
