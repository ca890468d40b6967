package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collab-engine/internal/domain"
)

// MigrateDB creates or updates the schema for every persisted entity.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("setup: cannot migrate with nil DB connection")
	}
	err := db.AutoMigrate(
		&domain.Room{},
		&domain.FileVersion{},
		&domain.EditOperation{},
		&domain.ChatMessage{},
		&domain.RoomSnapshot{},
		&domain.AuditEvent{},
	)
	if err != nil {
		return fmt.Errorf("setup: auto-migrate: %w", err)
	}
	logrus.Info("Database migration completed")
	return nil
}
