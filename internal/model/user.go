package model

import "time"

// User is an account registered on this device together with the events it owns.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedDate  time.Time `json:"created_date"`
	UpdatedDate  time.Time `json:"updated_date"`
	Events       []Event   `json:"events"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// EventIndex returns the position of the event with the given id or -1.
func (u User) EventIndex(eventID string) int {
	for i := range u.Events {
		if u.Events[i].ID == eventID {
			return i
		}
	}
	return -1
}
