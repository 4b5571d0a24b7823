package backup

import (
	"gorm.io/datatypes"
)

// RestoreIDMapping records old -> new ids for one restore run. Rows are
// scoped by RestoreID and removed once the run finishes.
type RestoreIDMapping struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RestoreID string         `gorm:"column:restoreid;size:36;not null;uniqueIndex:uq_restore_mapping_old,priority:1;index:idx_restore_mapping_new,priority:1" json:"restoreid"`
	ItemName  string         `gorm:"column:itemname;size:100;not null;uniqueIndex:uq_restore_mapping_old,priority:2;index:idx_restore_mapping_new,priority:2" json:"itemname"`
	OldID     int64          `gorm:"column:olditemid;not null;uniqueIndex:uq_restore_mapping_old,priority:3" json:"olditemid"`
	NewID     int64          `gorm:"column:newitemid;not null;index:idx_restore_mapping_new,priority:3" json:"newitemid"`
	ParentID  *int64         `gorm:"column:parentitemid" json:"parentitemid"`
	Info      datatypes.JSON `gorm:"column:info" json:"info,omitempty"`
}

func (RestoreIDMapping) TableName() string { return "restore_id_mappings" }
