package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureEvaluationIndexes(db)
}

// EnsureEvaluationIndexes adds the partial unique index that keeps a single
// active evaluation per (activity, user). Both Postgres and SQLite accept it.
func EnsureEvaluationIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_te_evaluation_active
		ON trainingevaluation_evaluations (wtid, userid)
		WHERE active = true;
	`).Error; err != nil {
		return fmt.Errorf("create uq_te_evaluation_active: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stored_files_area
		ON stored_files (contextid, component, filearea);
	`).Error; err != nil {
		return fmt.Errorf("create idx_stored_files_area: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running migrations...")
	return AutoMigrateAll(s.db)
}
