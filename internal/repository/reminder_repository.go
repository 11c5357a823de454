package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"event-planner/internal/model"
)

// ReminderRepository stores the alerts currently armed by the notification gateway.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	reminder.FireAt = reminder.FireAt.UTC()
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// Delete removes a reminder row; unknown ids are ignored.
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Reminder{}).Error; err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// ListAll returns every stored reminder ordered by fire time.
func (r *ReminderRepository) ListAll(ctx context.Context) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).Order("fire_at ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// DeleteBefore drops reminders whose fire time is not after t and reports how many were removed.
// Fire times are stored in UTC so that SQLite compares them as text correctly.
func (r *ReminderRepository) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("fire_at <= ?", t.UTC()).Delete(&model.Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune reminders: %w", res.Error)
	}
	return res.RowsAffected, nil
}
