package training

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type ResponseRepo interface {
	Create(dbc dbctx.Context, rows []*types.Response) ([]*types.Response, error)
	Upsert(dbc dbctx.Context, row *types.Response) (*types.Response, error)
	Get(dbc dbctx.Context, itemID, userID int64, version int) (*types.Response, error)
	ListByItem(dbc dbctx.Context, itemID int64) ([]*types.Response, error)
	ListByItemIDs(dbc dbctx.Context, itemIDs []int64) ([]*types.Response, error)
	ListForUserVersion(dbc dbctx.Context, wtid, userID int64, version int) ([]*types.Response, error)
	CountCompletedRequired(dbc dbctx.Context, wtid, userID int64) (int64, error)
	VersionsByItem(dbc dbctx.Context, itemID int64) ([]int, error)
	DeleteByItemIDs(dbc dbctx.Context, itemIDs []int64) error
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{db: db, log: baseLog.With("repo", "ResponseRepo")}
}

func (r *responseRepo) Create(dbc dbctx.Context, rows []*types.Response) ([]*types.Response, error) {
	if len(rows) == 0 {
		return []*types.Response{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert writes the response for (itemid, userid, version), replacing the
// payload of an existing row and keeping its id and timecreated.
func (r *responseRepo) Upsert(dbc dbctx.Context, row *types.Response) (*types.Response, error) {
	row.TimeModified = time.Now().UTC()
	err := dbc.Conn(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "itemid"}, {Name: "userid"}, {Name: "version"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"response",
			"completed",
			"usermodified",
			"timemodified",
		}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(dbc, row.ItemID, row.UserID, row.Version)
}

func (r *responseRepo) Get(dbc dbctx.Context, itemID, userID int64, version int) (*types.Response, error) {
	var row types.Response
	if err := dbc.Conn(r.db).
		Where("itemid = ? AND userid = ? AND version = ?", itemID, userID, version).
		Limit(1).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *responseRepo) ListByItem(dbc dbctx.Context, itemID int64) ([]*types.Response, error) {
	return r.ListByItemIDs(dbc, []int64{itemID})
}

func (r *responseRepo) ListByItemIDs(dbc dbctx.Context, itemIDs []int64) ([]*types.Response, error) {
	var out []*types.Response
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

func (r *responseRepo) ListForUserVersion(dbc dbctx.Context, wtid, userID int64, version int) ([]*types.Response, error) {
	var out []*types.Response
	if err := dbc.Conn(r.db).
		Table("trainingevaluation_responses AS r").
		Joins("JOIN trainingevaluation_section_items si ON si.id = r.itemid").
		Joins("JOIN trainingevaluation_sections s ON s.id = si.sectionid").
		Where("s.wtid = ? AND r.userid = ? AND r.version = ?", wtid, userID, version).
		Select("r.*").
		Order("r.itemid ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountCompletedRequired counts distinct required items of the activity that
// the user completed under their active evaluation version. Responses of
// superseded versions never match the join.
func (r *responseRepo) CountCompletedRequired(dbc dbctx.Context, wtid, userID int64) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).Raw(`
		SELECT COUNT(DISTINCT r.itemid)
		  FROM trainingevaluation_responses r
		  JOIN trainingevaluation_section_items si ON si.id = r.itemid
		  JOIN trainingevaluation_sections s ON s.id = si.sectionid
		  JOIN trainingevaluation_evaluations e
		    ON e.wtid = s.wtid AND e.userid = r.userid AND e.version = r.version AND e.active = ?
		 WHERE s.wtid = ? AND r.userid = ? AND si.isrequired = ? AND r.completed = ?`,
		true, wtid, userID, true, true,
	).Scan(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *responseRepo) VersionsByItem(dbc dbctx.Context, itemID int64) ([]int, error) {
	var out []int
	if err := dbc.Conn(r.db).Model(&types.Response{}).
		Where("itemid = ?", itemID).
		Distinct().
		Order("version ASC").
		Pluck("version", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseRepo) DeleteByItemIDs(dbc dbctx.Context, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Where("itemid IN ?", itemIDs).Delete(&types.Response{}).Error
}
