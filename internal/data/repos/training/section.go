package training

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type SectionRepo interface {
	Create(dbc dbctx.Context, rows []*types.Section) ([]*types.Section, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Section, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Section, error)
	ListByActivity(dbc dbctx.Context, wtid int64) ([]*types.Section, error)
	ListChildren(dbc dbctx.Context, wtid int64, parent *int64) ([]*types.Section, error)
	NextPosition(dbc dbctx.Context, wtid int64, parent *int64) (int, error)
	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error
	SetParent(dbc dbctx.Context, id int64, parent *int64) error
	DeleteByIDs(dbc dbctx.Context, ids []int64) error
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return &sectionRepo{db: db, log: baseLog.With("repo", "SectionRepo")}
}

func (r *sectionRepo) Create(dbc dbctx.Context, rows []*types.Section) ([]*types.Section, error) {
	if len(rows) == 0 {
		return []*types.Section{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sectionRepo) GetByID(dbc dbctx.Context, id int64) (*types.Section, error) {
	var row types.Section
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *sectionRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Section, error) {
	var out []*types.Section
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByActivity returns every section of the activity ordered by position,
// which is also the order the export tree and the view render them in.
func (r *sectionRepo) ListByActivity(dbc dbctx.Context, wtid int64) ([]*types.Section, error) {
	var out []*types.Section
	if err := dbc.Conn(r.db).
		Where("wtid = ?", wtid).
		Order("position ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionRepo) ListChildren(dbc dbctx.Context, wtid int64, parent *int64) ([]*types.Section, error) {
	var out []*types.Section
	q := dbc.Conn(r.db).Where("wtid = ?", wtid)
	if parent == nil {
		q = q.Where("parentsection IS NULL")
	} else {
		q = q.Where("parentsection = ?", *parent)
	}
	if err := q.Order("position ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionRepo) NextPosition(dbc dbctx.Context, wtid int64, parent *int64) (int, error) {
	var max int
	q := dbc.Conn(r.db).Model(&types.Section{}).Where("wtid = ?", wtid)
	if parent == nil {
		q = q.Where("parentsection IS NULL")
	} else {
		q = q.Where("parentsection = ?", *parent)
	}
	if err := q.Select("COALESCE(MAX(position), -1)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *sectionRepo) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Model(&types.Section{}).Where("id = ?", id).Updates(updates).Error
}

// SetParent rewrites parentsection without touching the audit columns.
func (r *sectionRepo) SetParent(dbc dbctx.Context, id int64, parent *int64) error {
	return dbc.Conn(r.db).Model(&types.Section{}).Where("id = ?", id).UpdateColumn("parentsection", parent).Error
}

func (r *sectionRepo) DeleteByIDs(dbc dbctx.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Where("id IN ?", ids).Delete(&types.Section{}).Error
}
