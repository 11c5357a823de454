package model

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusActive   EventStatus = "active"
	StatusInactive EventStatus = "inactive"
	StatusCanceled EventStatus = "canceled"
	StatusDeleted  EventStatus = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusCanceled, StatusDeleted:
		return true
	default:
		return false
	}
}

// Event is a scheduled task owned by exactly one user.
// NotificationIDs holds the outstanding reminder identifiers and is empty
// unless Status is active.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	StartDate       time.Time   `json:"start_date"`
	EndDate         time.Time   `json:"end_date"`
	Status          EventStatus `json:"status"`
	CreatedDate     time.Time   `json:"created_date"`
	UpdatedDate     time.Time   `json:"updated_date"`
	NotificationIDs []string    `json:"notification_ids,omitempty"`
}

// ShortID is the id prefix shown to the user in lists.
func (e Event) ShortID() string {
	if len(e.ID) <= 8 {
		return e.ID
	}
	return e.ID[:8]
}
