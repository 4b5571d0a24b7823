package files

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

// AreaFilter selects stored files of one (context, component, area). A nil
// ItemID matches every item id of the area.
type AreaFilter struct {
	ContextID int64
	Component string
	FileArea  string
	ItemID    *int64
}

type StoredFileRepo interface {
	Create(dbc dbctx.Context, rows []*types.StoredFile) ([]*types.StoredFile, error)
	GetByID(dbc dbctx.Context, id int64) (*types.StoredFile, error)
	GetByPath(dbc dbctx.Context, f AreaFilter, filePath, fileName string) (*types.StoredFile, error)
	ListArea(dbc dbctx.Context, f AreaFilter) ([]*types.StoredFile, error)
	ListByContext(dbc dbctx.Context, contextID int64, component string) ([]*types.StoredFile, error)
	CountByHash(dbc dbctx.Context, contentHash string) (int64, error)
	DeleteByIDs(dbc dbctx.Context, ids []int64) error
}

type storedFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoredFileRepo(db *gorm.DB, baseLog *logger.Logger) StoredFileRepo {
	return &storedFileRepo{db: db, log: baseLog.With("repo", "StoredFileRepo")}
}

func (r *storedFileRepo) Create(dbc dbctx.Context, rows []*types.StoredFile) ([]*types.StoredFile, error) {
	if len(rows) == 0 {
		return []*types.StoredFile{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *storedFileRepo) GetByID(dbc dbctx.Context, id int64) (*types.StoredFile, error) {
	var row types.StoredFile
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *storedFileRepo) area(dbc dbctx.Context, f AreaFilter) *gorm.DB {
	q := dbc.Conn(r.db).
		Where("contextid = ? AND component = ? AND filearea = ?", f.ContextID, f.Component, f.FileArea)
	if f.ItemID != nil {
		q = q.Where("itemid = ?", *f.ItemID)
	}
	return q
}

func (r *storedFileRepo) GetByPath(dbc dbctx.Context, f AreaFilter, filePath, fileName string) (*types.StoredFile, error) {
	var row types.StoredFile
	if err := r.area(dbc, f).
		Where("filepath = ? AND filename = ?", filePath, fileName).
		Limit(1).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *storedFileRepo) ListArea(dbc dbctx.Context, f AreaFilter) ([]*types.StoredFile, error) {
	var out []*types.StoredFile
	if err := r.area(dbc, f).
		Order("itemid ASC, filepath ASC, filename ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storedFileRepo) ListByContext(dbc dbctx.Context, contextID int64, component string) ([]*types.StoredFile, error) {
	var out []*types.StoredFile
	if err := dbc.Conn(r.db).
		Where("contextid = ? AND component = ?", contextID, component).
		Order("filearea ASC, itemid ASC, filepath ASC, filename ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByHash reports how many records still reference a blob.
func (r *storedFileRepo) CountByHash(dbc dbctx.Context, contentHash string) (int64, error) {
	var n int64
	if err := dbc.Conn(r.db).Model(&types.StoredFile{}).
		Where("contenthash = ?", contentHash).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *storedFileRepo) DeleteByIDs(dbc dbctx.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Where("id IN ?", ids).Delete(&types.StoredFile{}).Error
}
