package repository

import (
	"context"

	"billing-reminder-bot/internal/domain/model"
)

// IntentRepository is the single-slot pending payment mailbox of each user.
// Set overwrites; Take returns and removes the intent atomically.
type IntentRepository interface {
	Set(ctx context.Context, intent *model.PendingIntent) error
	// Get returns domain.ErrNotFound when the user has no intent.
	Get(ctx context.Context, userID int64) (*model.PendingIntent, error)
	// Take returns domain.ErrNotFound when the user has no intent.
	Take(ctx context.Context, userID int64) (*model.PendingIntent, error)
	Clear(ctx context.Context, userID int64) error
}
