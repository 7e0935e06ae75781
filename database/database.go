package database

import (
	"fmt"
	"time"

	"syntrad-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=syntrad port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.CartSnapshot{}); err != nil {
		return fmt.Errorf("failed to migrate cart_snapshots: %w", err)
	}
	return nil
}

// PruneSnapshots deletes carts that have not been written since cutoff. The
// SQL backend has no native expiry, so this stands in for the Redis TTL.
func PruneSnapshots(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("updated_at < ?", cutoff).Delete(&models.CartSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune cart snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
