package training

import "time"

// Component scopes every file area owned by the activity.
const Component = "mod_trainingevaluation"

// ModuleName is the activity type name used in archives and events.
const ModuleName = "trainingevaluation"

type Activity struct {
	ID                   int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Course               int64     `gorm:"column:course;not null;index" json:"course"`
	Name                 string    `gorm:"column:name;size:255;not null" json:"name"`
	Intro                string    `gorm:"column:intro;type:text" json:"intro"`
	IntroFormat          int       `gorm:"column:introformat;not null" json:"introformat"`
	ShowLastModified     bool      `gorm:"column:showlastmodified;not null" json:"showlastmodified"`
	CompletionOnRequired bool      `gorm:"column:completiononrequired;not null" json:"completiononrequired"`
	Visible              bool      `gorm:"column:visible;not null" json:"visible"`
	TimeCreated          time.Time `gorm:"column:timecreated;autoCreateTime" json:"timecreated"`
	TimeModified         time.Time `gorm:"column:timemodified;autoUpdateTime" json:"timemodified"`
}

func (Activity) TableName() string { return "trainingevaluation" }
