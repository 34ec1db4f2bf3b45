package db

import (
	"github.com/labassist/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Software{},
		&domain.CheckReport{},
	)
	if err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Host listing and DISTINCT ON lookups scan by host first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_check_reports_host
		ON check_reports (host_identity)
	`).Error; err != nil {
		return err
	}

	return nil
}
