package model

import "time"

// KVEntry is one row of the on-device key-value store.
type KVEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// Reminder is a one-shot alert armed by the notification gateway.
// Rows survive restarts so that future alerts can be re-armed.
type Reminder struct {
	ID        string    `gorm:"primaryKey"`
	EventID   string    `gorm:"index"`
	Kind      string
	FireAt    time.Time `gorm:"index"`
	Title     string
	Body      string
	CreatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }

func (Reminder) TableName() string { return "reminders" }
