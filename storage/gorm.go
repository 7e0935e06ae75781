package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"syntrad-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps snapshots in the cart_snapshots table.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (g *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var snapshot models.CartSnapshot
	err := g.DB.WithContext(ctx).Where("session_key = ?", key).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return []byte(snapshot.Data), nil
}

func (g *GormStore) Set(ctx context.Context, key string, value []byte) error {
	snapshot := models.CartSnapshot{
		SessionKey: key,
		Data:       string(value),
		UpdatedAt:  time.Now(),
	}

	err := g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&snapshot).Error
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (g *GormStore) Delete(ctx context.Context, key string) error {
	if err := g.DB.WithContext(ctx).Where("session_key = ?", key).Delete(&models.CartSnapshot{}).Error; err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}
