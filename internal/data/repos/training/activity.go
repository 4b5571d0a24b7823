package training

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type ActivityRepo interface {
	Create(dbc dbctx.Context, row *types.Activity) (*types.Activity, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Activity, error)
	ListByCourse(dbc dbctx.Context, courseID int64) ([]*types.Activity, error)
	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error
	DeleteByID(dbc dbctx.Context, id int64) error
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) Create(dbc dbctx.Context, row *types.Activity) (*types.Activity, error) {
	if err := dbc.Conn(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *activityRepo) GetByID(dbc dbctx.Context, id int64) (*types.Activity, error) {
	var row types.Activity
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *activityRepo) ListByCourse(dbc dbctx.Context, courseID int64) ([]*types.Activity, error) {
	var out []*types.Activity
	if err := dbc.Conn(r.db).
		Where("course = ?", courseID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Model(&types.Activity{}).Where("id = ?", id).Updates(updates).Error
}

func (r *activityRepo) DeleteByID(dbc dbctx.Context, id int64) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Activity{}).Error
}
