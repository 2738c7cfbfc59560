package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo keeps the billing configuration in a single row (id = 1).
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) Load(ctx context.Context, tx repository.Tx) (*model.BillingConfig, error) {
	const q = `
SELECT billing_day, timezone, monthly_amount, reminder_time, fold_policy, updated_at
  FROM billing_settings WHERE id=1;`
	var (
		c      model.BillingConfig
		policy string
	)
	err := pickRow(ctx, r.pool, tx, q).Scan(&c.BillingDay, &c.Timezone, &c.MonthlyAmount, &c.ReminderTime, &policy, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	c.FoldPolicy = model.FoldPolicy(policy)
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (r *SettingsRepo) Save(ctx context.Context, tx repository.Tx, c *model.BillingConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	const q = `
INSERT INTO billing_settings (id, billing_day, timezone, monthly_amount, reminder_time, fold_policy, updated_at)
VALUES (1,$1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  billing_day=EXCLUDED.billing_day, timezone=EXCLUDED.timezone,
  monthly_amount=EXCLUDED.monthly_amount, reminder_time=EXCLUDED.reminder_time,
  fold_policy=EXCLUDED.fold_policy, updated_at=EXCLUDED.updated_at;`
	c.UpdatedAt = time.Now().UTC()
	if _, err := execSQL(ctx, r.pool, tx, q, c.BillingDay, c.Timezone, c.MonthlyAmount, c.ReminderTime, string(c.Policy()), c.UpdatedAt); err != nil {
		return fmt.Errorf("save billing settings: %w", err)
	}
	return nil
}
