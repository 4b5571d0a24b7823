package training

import (
	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type ItemConfigRepo interface {
	Create(dbc dbctx.Context, rows []*types.ItemConfig) ([]*types.ItemConfig, error)
	ListByItem(dbc dbctx.Context, itemID int64) ([]*types.ItemConfig, error)
	ListByItemIDs(dbc dbctx.Context, itemIDs []int64) ([]*types.ItemConfig, error)
	ReplaceForItem(dbc dbctx.Context, itemID int64, rows []*types.ItemConfig) ([]*types.ItemConfig, error)
	DeleteByItemIDs(dbc dbctx.Context, itemIDs []int64) error
}

type itemConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemConfigRepo(db *gorm.DB, baseLog *logger.Logger) ItemConfigRepo {
	return &itemConfigRepo{db: db, log: baseLog.With("repo", "ItemConfigRepo")}
}

func (r *itemConfigRepo) Create(dbc dbctx.Context, rows []*types.ItemConfig) ([]*types.ItemConfig, error) {
	if len(rows) == 0 {
		return []*types.ItemConfig{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *itemConfigRepo) ListByItem(dbc dbctx.Context, itemID int64) ([]*types.ItemConfig, error) {
	return r.ListByItemIDs(dbc, []int64{itemID})
}

func (r *itemConfigRepo) ListByItemIDs(dbc dbctx.Context, itemIDs []int64) ([]*types.ItemConfig, error) {
	var out []*types.ItemConfig
	if len(itemIDs) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("itemid IN ?", itemIDs).
		Order("itemid ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceForItem drops the item's configs and inserts rows in their place.
// Callers wanting atomicity pass a transaction in dbc.
func (r *itemConfigRepo) ReplaceForItem(dbc dbctx.Context, itemID int64, rows []*types.ItemConfig) ([]*types.ItemConfig, error) {
	if err := r.DeleteByItemIDs(dbc, []int64{itemID}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		row.ID = 0
		row.ItemID = itemID
	}
	return r.Create(dbc, rows)
}

func (r *itemConfigRepo) DeleteByItemIDs(dbc dbctx.Context, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Where("itemid IN ?", itemIDs).Delete(&types.ItemConfig{}).Error
}
