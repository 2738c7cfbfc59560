package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) Load(ctx context.Context, tx repository.Tx) (*model.BillingConfig, error) {
	var (
		c               model.BillingConfig
		policy, updated string
	)
	err := pickRow(ctx, r.db, tx, `
		SELECT billing_day, timezone, monthly_amount, reminder_time, fold_policy, updated_at
		FROM billing_settings WHERE id = 1`).
		Scan(&c.BillingDay, &c.Timezone, &c.MonthlyAmount, &c.ReminderTime, &policy, &updated)
	if err != nil {
		return nil, notFound(err)
	}
	c.FoldPolicy = model.FoldPolicy(policy)
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SettingsRepo) Save(ctx context.Context, tx repository.Tx, c *model.BillingConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	_, err = ex.ExecContext(ctx, `
		INSERT INTO billing_settings (id, billing_day, timezone, monthly_amount, reminder_time, fold_policy, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			billing_day    = excluded.billing_day,
			timezone       = excluded.timezone,
			monthly_amount = excluded.monthly_amount,
			reminder_time  = excluded.reminder_time,
			fold_policy    = excluded.fold_policy,
			updated_at     = excluded.updated_at`,
		c.BillingDay, c.Timezone, c.MonthlyAmount, c.ReminderTime, string(c.Policy()), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save billing settings: %w", err)
	}
	return nil
}
