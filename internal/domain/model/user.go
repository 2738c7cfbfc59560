package model

import (
	"strings"
	"time"

	"billing-reminder-bot/internal/domain"
)

// User is a subscriber identified by their Telegram user id.
// MutedUntil is an exclusive bound: reminders resume on that date.
type User struct {
	ID           int64
	Handle       string
	FirstName    string
	LastName     string
	MutedUntil   *time.Time
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

func NewUser(id int64, handle, firstName, lastName string) (*User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &User{
		ID:           id,
		Handle:       strings.TrimPrefix(strings.TrimSpace(handle), "@"),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == 0 }

// DisplayName prefers the @handle, then the full name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Handle != "" {
		return "@" + u.Handle
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "user"
	}
	return name
}

// MutedOn reports whether reminders are suppressed on the given civil date.
func (u *User) MutedOn(today time.Time) bool {
	if u == nil || u.MutedUntil == nil {
		return false
	}
	return today.Before(*u.MutedUntil)
}
