package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, amount, months, proof_reference, paid_at`

func (r *PaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if p == nil || p.ID == "" || p.Months <= 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6);`
	if _, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.Amount, p.Months, p.ProofReference, p.PaidAt.UTC()); err != nil {
		return fmt.Errorf("save payment %s: %w", p.ID, err)
	}
	return nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1;`, id)
	return scanPayment(row)
}

func (r *PaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Payment, error) {
	return r.list(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE user_id=$1 ORDER BY paid_at, seq;`, userID)
}

func (r *PaymentRepo) ListRecentByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return r.list(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE user_id=$1 ORDER BY paid_at DESC, seq DESC LIMIT $2;`, userID, limit)
}

func (r *PaymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM payments WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PaymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Months, &p.ProofReference, &p.PaidAt); err != nil {
		return nil, notFound(err)
	}
	p.PaidAt = p.PaidAt.UTC()
	return &p, nil
}
