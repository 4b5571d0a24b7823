package domain

import (
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
)

type Activity = training.Activity
type Section = training.Section
type SectionItem = training.SectionItem
type ItemConfig = training.ItemConfig
type Response = training.Response
type Evaluation = training.Evaluation
type StoredFile = training.StoredFile
type ItemType = training.ItemType

type RestoreIDMapping = backup.RestoreIDMapping
type BackupRun = backup.Run

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&training.Activity{},
		&training.Section{},
		&training.SectionItem{},
		&training.ItemConfig{},
		&training.Response{},
		&training.Evaluation{},
		&training.StoredFile{},
		&backup.RestoreIDMapping{},
		&backup.Run{},
	}
}
