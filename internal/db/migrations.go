package db

import (
	"errors"

	"gorm.io/gorm"
)

// SyncSchema creates/updates tables and indexes from models. Table structure changes do not use versioned migrations.
func SyncSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := db.AutoMigrate(
		&Injection{},
		&WatcherSession{},
	); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_injections_created_at ON injections(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_injections_target_created_at ON injections(target, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_watcher_sessions_target ON watcher_sessions(target, started_at DESC);`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
