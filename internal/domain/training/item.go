package training

import "time"

type ItemType string

const (
	ItemTypeTextInput  ItemType = "textinput"
	ItemTypeSelectMenu ItemType = "selectmenu"
	ItemTypeDatePicker ItemType = "datepicker"
	ItemTypeFileUpload ItemType = "fileupload"
)

// ItemTypes lists the supported item types in display order.
var ItemTypes = []ItemType{ItemTypeTextInput, ItemTypeSelectMenu, ItemTypeDatePicker, ItemTypeFileUpload}

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeTextInput, ItemTypeSelectMenu, ItemTypeDatePicker, ItemTypeFileUpload:
		return true
	default:
		return false
	}
}

type SectionItem struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SectionID    int64     `gorm:"column:sectionid;not null;index" json:"sectionid"`
	Name         string    `gorm:"column:name;size:255;not null" json:"name"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	Type         ItemType  `gorm:"column:type;size:32;not null;index" json:"type"`
	Position     int       `gorm:"column:position;not null" json:"position"`
	IsRequired   bool      `gorm:"column:isrequired;not null" json:"isrequired"`
	UserModified int64     `gorm:"column:usermodified;not null" json:"usermodified"`
	TimeCreated  time.Time `gorm:"column:timecreated;autoCreateTime" json:"timecreated"`
	TimeModified time.Time `gorm:"column:timemodified;autoUpdateTime" json:"timemodified"`
}

func (SectionItem) TableName() string { return "trainingevaluation_section_items" }

type ItemConfig struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ItemID int64  `gorm:"column:itemid;not null;index" json:"itemid"`
	Name   string `gorm:"column:name;size:255;not null" json:"name"`
	Value  string `gorm:"column:value;type:text" json:"value"`
}

func (ItemConfig) TableName() string { return "trainingevaluation_item_config" }
