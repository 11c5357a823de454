package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event-planner/internal/model"
)

// KVRepository is the on-device key-value store: one string value per key.
type KVRepository struct {
	db *gorm.DB
}

func NewKVRepository(db *gorm.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get returns the value stored under key; ok is false when the key is absent.
func (r *KVRepository) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	var entry model.KVEntry
	err = r.db.WithContext(ctx).Where(keyIs(key)).First(&entry).Error
	switch {
	case err == nil:
		return entry.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
}

// Set stores value under key, replacing any previous value.
func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	entry := model.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where(keyIs(key)).Delete(&model.KVEntry{}).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func keyIs(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}
