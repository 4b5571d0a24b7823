package training

import "time"

// StoredFile is a file record in the content-addressed store. Bytes live in
// the blob pool under ContentHash; the record places them in an area.
//
// ContextID is the owning activity id. For fileupload areas ItemID is the
// uploading learner's user id; for the intro area it is zero.
type StoredFile struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ContextID    int64     `gorm:"column:contextid;not null;uniqueIndex:uq_stored_file_path,priority:1" json:"contextid"`
	Component    string    `gorm:"column:component;size:100;not null;uniqueIndex:uq_stored_file_path,priority:2" json:"component"`
	FileArea     string    `gorm:"column:filearea;size:100;not null;uniqueIndex:uq_stored_file_path,priority:3" json:"filearea"`
	ItemID       int64     `gorm:"column:itemid;not null;uniqueIndex:uq_stored_file_path,priority:4" json:"itemid"`
	FilePath     string    `gorm:"column:filepath;size:255;not null;uniqueIndex:uq_stored_file_path,priority:5" json:"filepath"`
	FileName     string    `gorm:"column:filename;size:255;not null;uniqueIndex:uq_stored_file_path,priority:6" json:"filename"`
	ContentHash  string    `gorm:"column:contenthash;size:64;not null;index" json:"contenthash"`
	FileSize     int64     `gorm:"column:filesize;not null" json:"filesize"`
	MimeType     string    `gorm:"column:mimetype;size:100" json:"mimetype"`
	UserID       *int64    `gorm:"column:userid" json:"userid"`
	TimeCreated  time.Time `gorm:"column:timecreated;autoCreateTime" json:"timecreated"`
	TimeModified time.Time `gorm:"column:timemodified;autoUpdateTime" json:"timemodified"`
}

func (StoredFile) TableName() string { return "stored_files" }
