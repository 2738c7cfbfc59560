package model

import "time"

// PendingIntent is the single staged "about to pay" record of a user,
// consumed when proof arrives or on explicit cancel.
type PendingIntent struct {
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Months    int       `json:"months"`
	CreatedAt time.Time `json:"created_at"`
}
