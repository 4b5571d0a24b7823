package backup

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainbackup "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type RunRepo interface {
	Create(dbc dbctx.Context, row *types.BackupRun) (*types.BackupRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BackupRun, error)
	MarkRunning(dbc dbctx.Context, id uuid.UUID, now time.Time) error
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID, now time.Time, archiveKey string, summary datatypes.JSON) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, now time.Time, msg string) error
}

type runRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunRepo(db *gorm.DB, baseLog *logger.Logger) RunRepo {
	return &runRepo{db: db, log: baseLog.With("repo", "BackupRunRepo")}
}

func (r *runRepo) Create(dbc dbctx.Context, row *types.BackupRun) (*types.BackupRun, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = domainbackup.RunStatusQueued
	}
	if err := dbc.Conn(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *runRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BackupRun, error) {
	var row types.BackupRun
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *runRepo) MarkRunning(dbc dbctx.Context, id uuid.UUID, now time.Time) error {
	return dbc.Conn(r.db).Model(&types.BackupRun{}).
		Where("id = ? AND status = ?", id, domainbackup.RunStatusQueued).
		Updates(map[string]interface{}{
			"status":    domainbackup.RunStatusRunning,
			"startedat": now,
			"updatedat": now,
		}).Error
}

func (r *runRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID, now time.Time, archiveKey string, summary datatypes.JSON) error {
	updates := map[string]interface{}{
		"status":     domainbackup.RunStatusSucceeded,
		"finishedat": now,
		"updatedat":  now,
		"error":      "",
	}
	if archiveKey != "" {
		updates["archivekey"] = archiveKey
	}
	if len(summary) > 0 {
		updates["summary"] = summary
	}
	return dbc.Conn(r.db).Model(&types.BackupRun{}).Where("id = ?", id).Updates(updates).Error
}

func (r *runRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, now time.Time, msg string) error {
	return dbc.Conn(r.db).Model(&types.BackupRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domainbackup.RunStatusFailed,
			"finishedat": now,
			"updatedat":  now,
			"error":      msg,
		}).Error
}
