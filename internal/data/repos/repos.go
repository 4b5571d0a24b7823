package repos

import (
	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/files"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type ActivityRepo = training.ActivityRepo
type SectionRepo = training.SectionRepo
type SectionItemRepo = training.SectionItemRepo
type ItemConfigRepo = training.ItemConfigRepo
type ResponseRepo = training.ResponseRepo
type EvaluationRepo = training.EvaluationRepo

type StoredFileRepo = files.StoredFileRepo
type AreaFilter = files.AreaFilter

type IDMappingRepo = backup.IDMappingRepo
type BackupRunRepo = backup.RunRepo

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return training.NewActivityRepo(db, baseLog)
}
func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return training.NewSectionRepo(db, baseLog)
}
func NewSectionItemRepo(db *gorm.DB, baseLog *logger.Logger) SectionItemRepo {
	return training.NewSectionItemRepo(db, baseLog)
}
func NewItemConfigRepo(db *gorm.DB, baseLog *logger.Logger) ItemConfigRepo {
	return training.NewItemConfigRepo(db, baseLog)
}
func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return training.NewResponseRepo(db, baseLog)
}
func NewEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) EvaluationRepo {
	return training.NewEvaluationRepo(db, baseLog)
}

func NewStoredFileRepo(db *gorm.DB, baseLog *logger.Logger) StoredFileRepo {
	return files.NewStoredFileRepo(db, baseLog)
}

func NewIDMappingRepo(db *gorm.DB, baseLog *logger.Logger) IDMappingRepo {
	return backup.NewIDMappingRepo(db, baseLog)
}
func NewBackupRunRepo(db *gorm.DB, baseLog *logger.Logger) BackupRunRepo {
	return backup.NewRunRepo(db, baseLog)
}

// Set bundles every repo for wiring.
type Set struct {
	Activities  ActivityRepo
	Sections    SectionRepo
	Items       SectionItemRepo
	ItemConfigs ItemConfigRepo
	Responses   ResponseRepo
	Evaluations EvaluationRepo
	Files       StoredFileRepo
	IDMappings  IDMappingRepo
	BackupRuns  BackupRunRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) *Set {
	return &Set{
		Activities:  NewActivityRepo(db, baseLog),
		Sections:    NewSectionRepo(db, baseLog),
		Items:       NewSectionItemRepo(db, baseLog),
		ItemConfigs: NewItemConfigRepo(db, baseLog),
		Responses:   NewResponseRepo(db, baseLog),
		Evaluations: NewEvaluationRepo(db, baseLog),
		Files:       NewStoredFileRepo(db, baseLog),
		IDMappings:  NewIDMappingRepo(db, baseLog),
		BackupRuns:  NewBackupRunRepo(db, baseLog),
	}
}
