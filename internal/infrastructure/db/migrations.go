package db

import (
	"github.com/agentdeck/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		return err
	}
	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// The dispatcher's claim query scans pending rows in id order.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_status_id
		ON tasks (status, id)
	`).Error; err != nil {
		return err
	}

	// List orders by most recent activity.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_activity
		ON tasks (completed_at, started_at, created_at)
	`).Error; err != nil {
		return err
	}

	return nil
}
