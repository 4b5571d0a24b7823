package training

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type SectionItemRepo interface {
	Create(dbc dbctx.Context, rows []*types.SectionItem) ([]*types.SectionItem, error)
	GetByID(dbc dbctx.Context, id int64) (*types.SectionItem, error)
	ListBySection(dbc dbctx.Context, sectionID int64) ([]*types.SectionItem, error)
	ListBySectionIDs(dbc dbctx.Context, sectionIDs []int64) ([]*types.SectionItem, error)
	ListByActivity(dbc dbctx.Context, wtid int64) ([]*types.SectionItem, error)
	ListByActivityAndType(dbc dbctx.Context, wtid int64, typ training.ItemType) ([]*types.SectionItem, error)
	CountRequiredByActivity(dbc dbctx.Context, wtid int64) (int64, error)
	NextPosition(dbc dbctx.Context, sectionID int64) (int, error)
	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error
	DeleteByIDs(dbc dbctx.Context, ids []int64) error
}

type sectionItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionItemRepo(db *gorm.DB, baseLog *logger.Logger) SectionItemRepo {
	return &sectionItemRepo{db: db, log: baseLog.With("repo", "SectionItemRepo")}
}

func (r *sectionItemRepo) Create(dbc dbctx.Context, rows []*types.SectionItem) ([]*types.SectionItem, error) {
	if len(rows) == 0 {
		return []*types.SectionItem{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sectionItemRepo) GetByID(dbc dbctx.Context, id int64) (*types.SectionItem, error) {
	var row types.SectionItem
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *sectionItemRepo) ListBySection(dbc dbctx.Context, sectionID int64) ([]*types.SectionItem, error) {
	var out []*types.SectionItem
	if err := dbc.Conn(r.db).
		Where("sectionid = ?", sectionID).
		Order("position ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionItemRepo) ListBySectionIDs(dbc dbctx.Context, sectionIDs []int64) ([]*types.SectionItem, error) {
	var out []*types.SectionItem
	if len(sectionIDs) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("sectionid IN ?", sectionIDs).
		Order("sectionid ASC, position ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionItemRepo) activityScope(dbc dbctx.Context, wtid int64) *gorm.DB {
	return dbc.Conn(r.db).
		Table("trainingevaluation_section_items AS si").
		Joins("JOIN trainingevaluation_sections s ON s.id = si.sectionid").
		Where("s.wtid = ?", wtid)
}

func (r *sectionItemRepo) ListByActivity(dbc dbctx.Context, wtid int64) ([]*types.SectionItem, error) {
	var out []*types.SectionItem
	if err := r.activityScope(dbc, wtid).
		Select("si.*").
		Order("si.id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionItemRepo) ListByActivityAndType(dbc dbctx.Context, wtid int64, typ training.ItemType) ([]*types.SectionItem, error) {
	var out []*types.SectionItem
	if err := r.activityScope(dbc, wtid).
		Where("si.type = ?", typ).
		Select("si.*").
		Order("si.id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionItemRepo) CountRequiredByActivity(dbc dbctx.Context, wtid int64) (int64, error) {
	var n int64
	if err := r.activityScope(dbc, wtid).
		Where("si.isrequired = ?", true).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *sectionItemRepo) NextPosition(dbc dbctx.Context, sectionID int64) (int, error) {
	var max int
	if err := dbc.Conn(r.db).Model(&types.SectionItem{}).
		Where("sectionid = ?", sectionID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *sectionItemRepo) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Model(&types.SectionItem{}).Where("id = ?", id).Updates(updates).Error
}

func (r *sectionItemRepo) DeleteByIDs(dbc dbctx.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Where("id IN ?", ids).Delete(&types.SectionItem{}).Error
}
