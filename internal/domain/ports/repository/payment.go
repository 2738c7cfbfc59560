package repository

import (
	"context"

	"billing-reminder-bot/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Save appends a payment. Payments are immutable once stored.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// ListByUser returns all payments of a user in no guaranteed order.
	ListByUser(ctx context.Context, tx Tx, userID int64) ([]*model.Payment, error)
	// ListRecentByUser returns up to limit payments, newest first.
	ListRecentByUser(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.Payment, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
