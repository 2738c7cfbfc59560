package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, user_id, amount, months, proof_reference, paid_at`

func (r *PaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if p == nil || p.ID == "" || p.Months <= 0 {
		return domain.ErrInvalidArgument
	}
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Amount, p.Months, p.ProofReference, formatTime(p.PaidAt))
	if err != nil {
		return fmt.Errorf("save payment %s: %w", p.ID, err)
	}
	return nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	return scanPayment(pickRow(ctx, r.db, tx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
}

// ListByUser fails as a whole with domain.ErrMalformedTimestamp when any
// stored paid_at cannot be parsed.
func (r *PaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Payment, error) {
	return r.list(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY paid_at, rowid`, userID)
}

func (r *PaymentRepo) ListRecentByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return r.list(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY paid_at DESC, rowid DESC LIMIT ?`, userID, limit)
}

func (r *PaymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return rowsAffected(res)
}

func (r *PaymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...any) ([]*model.Payment, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row scanner) (*model.Payment, error) {
	var (
		p      model.Payment
		paidAt string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Months, &p.ProofReference, &paidAt); err != nil {
		return nil, notFound(err)
	}
	t, err := parseTime(paidAt)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", p.ID, err)
	}
	p.PaidAt = t
	return &p, nil
}
