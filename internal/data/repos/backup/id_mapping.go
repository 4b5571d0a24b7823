package backup

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type IDMappingRepo interface {
	Set(dbc dbctx.Context, row *types.RestoreIDMapping) error
	Get(dbc dbctx.Context, restoreID, itemName string, oldID int64) (*types.RestoreIDMapping, error)
	GetNewID(dbc dbctx.Context, restoreID, itemName string, oldID int64) (int64, bool, error)
	GetOldID(dbc dbctx.Context, restoreID, itemName string, newID int64) (int64, bool, error)
	List(dbc dbctx.Context, restoreID, itemName string) ([]*types.RestoreIDMapping, error)
	DeleteByRestoreID(dbc dbctx.Context, restoreID string) error
}

type idMappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIDMappingRepo(db *gorm.DB, baseLog *logger.Logger) IDMappingRepo {
	return &idMappingRepo{db: db, log: baseLog.With("repo", "IDMappingRepo")}
}

func (r *idMappingRepo) Set(dbc dbctx.Context, row *types.RestoreIDMapping) error {
	if row == nil {
		return nil
	}
	return dbc.Conn(r.db).Create(row).Error
}

func (r *idMappingRepo) Get(dbc dbctx.Context, restoreID, itemName string, oldID int64) (*types.RestoreIDMapping, error) {
	var row types.RestoreIDMapping
	if err := dbc.Conn(r.db).
		Where("restoreid = ? AND itemname = ? AND olditemid = ?", restoreID, itemName, oldID).
		Limit(1).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *idMappingRepo) GetNewID(dbc dbctx.Context, restoreID, itemName string, oldID int64) (int64, bool, error) {
	row, err := r.Get(dbc, restoreID, itemName, oldID)
	if err != nil || row == nil {
		return 0, false, err
	}
	return row.NewID, true, nil
}

// GetOldID is the reverse lookup used by steps that only know the freshly
// inserted id.
func (r *idMappingRepo) GetOldID(dbc dbctx.Context, restoreID, itemName string, newID int64) (int64, bool, error) {
	var row types.RestoreIDMapping
	if err := dbc.Conn(r.db).
		Where("restoreid = ? AND itemname = ? AND newitemid = ?", restoreID, itemName, newID).
		Limit(1).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return row.OldID, true, nil
}

func (r *idMappingRepo) List(dbc dbctx.Context, restoreID, itemName string) ([]*types.RestoreIDMapping, error) {
	var out []*types.RestoreIDMapping
	if err := dbc.Conn(r.db).
		Where("restoreid = ? AND itemname = ?", restoreID, itemName).
		Order("olditemid ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *idMappingRepo) DeleteByRestoreID(dbc dbctx.Context, restoreID string) error {
	return dbc.Conn(r.db).Where("restoreid = ?", restoreID).Delete(&types.RestoreIDMapping{}).Error
}
