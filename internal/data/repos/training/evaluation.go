package training

import (
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type EvaluationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Evaluation) ([]*types.Evaluation, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Evaluation, error)
	GetActive(dbc dbctx.Context, wtid, userID int64) (*types.Evaluation, error)
	GetByVersion(dbc dbctx.Context, wtid, userID int64, version int) (*types.Evaluation, error)
	ListByUser(dbc dbctx.Context, wtid, userID int64) ([]*types.Evaluation, error)
	ListByActivity(dbc dbctx.Context, wtid int64) ([]*types.Evaluation, error)
	MaxVersion(dbc dbctx.Context, wtid, userID int64) (int, error)
	Deactivate(dbc dbctx.Context, id int64, by int64) error
	MarkFinalised(dbc dbctx.Context, id int64, by int64, at time.Time) (bool, error)
	DeleteByActivity(dbc dbctx.Context, wtid int64) error
}

type evaluationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) EvaluationRepo {
	return &evaluationRepo{db: db, log: baseLog.With("repo", "EvaluationRepo")}
}

func (r *evaluationRepo) Create(dbc dbctx.Context, rows []*types.Evaluation) ([]*types.Evaluation, error) {
	if len(rows) == 0 {
		return []*types.Evaluation{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *evaluationRepo) first(q *gorm.DB) (*types.Evaluation, error) {
	var row types.Evaluation
	if err := q.Limit(1).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *evaluationRepo) GetByID(dbc dbctx.Context, id int64) (*types.Evaluation, error) {
	return r.first(dbc.Conn(r.db).Where("id = ?", id))
}

func (r *evaluationRepo) GetActive(dbc dbctx.Context, wtid, userID int64) (*types.Evaluation, error) {
	return r.first(dbc.Conn(r.db).
		Where("wtid = ? AND userid = ? AND active = ?", wtid, userID, true).
		Order("version DESC"))
}

func (r *evaluationRepo) GetByVersion(dbc dbctx.Context, wtid, userID int64, version int) (*types.Evaluation, error) {
	return r.first(dbc.Conn(r.db).Where("wtid = ? AND userid = ? AND version = ?", wtid, userID, version))
}

func (r *evaluationRepo) ListByUser(dbc dbctx.Context, wtid, userID int64) ([]*types.Evaluation, error) {
	var out []*types.Evaluation
	if err := dbc.Conn(r.db).
		Where("wtid = ? AND userid = ?", wtid, userID).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *evaluationRepo) ListByActivity(dbc dbctx.Context, wtid int64) ([]*types.Evaluation, error) {
	var out []*types.Evaluation
	if err := dbc.Conn(r.db).
		Where("wtid = ?", wtid).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *evaluationRepo) MaxVersion(dbc dbctx.Context, wtid, userID int64) (int, error) {
	var max int
	if err := dbc.Conn(r.db).Model(&types.Evaluation{}).
		Where("wtid = ? AND userid = ?", wtid, userID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *evaluationRepo) Deactivate(dbc dbctx.Context, id int64, by int64) error {
	return dbc.Conn(r.db).Model(&types.Evaluation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": false, "usermodified": by}).Error
}

// MarkFinalised finalises the row if it is still a draft. It reports false
// when nothing changed (already finalised or missing).
func (r *evaluationRepo) MarkFinalised(dbc dbctx.Context, id int64, by int64, at time.Time) (bool, error) {
	res := dbc.Conn(r.db).Model(&types.Evaluation{}).
		Where("id = ? AND finalised = ?", id, false).
		Updates(map[string]interface{}{
			"finalised":     true,
			"finalisedby":   by,
			"timefinalised": at,
			"usermodified":  by,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *evaluationRepo) DeleteByActivity(dbc dbctx.Context, wtid int64) error {
	return dbc.Conn(r.db).Where("wtid = ?", wtid).Delete(&types.Evaluation{}).Error
}
