package repository

import (
	"context"

	"billing-reminder-bot/internal/domain/model"
)

// SettingsRepository persists the single billing settings row.
type SettingsRepository interface {
	// Load returns domain.ErrNotFound when nothing was saved yet.
	Load(ctx context.Context, tx Tx) (*model.BillingConfig, error)
	Save(ctx context.Context, tx Tx, cfg *model.BillingConfig) error
}
