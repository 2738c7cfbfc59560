package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, handle, first_name, last_name, muted_until, registered_at, updated_at`

// Save upserts by Telegram id. registered_at and muted_until survive updates.
func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u.IsZero() {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO users (id, handle, first_name, last_name, registered_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  handle=EXCLUDED.handle, first_name=EXCLUDED.first_name,
  last_name=EXCLUDED.last_name, updated_at=EXCLUDED.updated_at;`
	now := time.Now().UTC()
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = now
	}
	u.UpdatedAt = now
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Handle, u.FirstName, u.LastName, u.RegisteredAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
	return scanUser(row)
}

// FindByHandle matches case-insensitively, with or without a leading "@".
func (r *UserRepo) FindByHandle(ctx context.Context, tx repository.Tx, handle string) (*model.User, error) {
	h := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if h == "" {
		return nil, domain.ErrInvalidArgument
	}
	row := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE lower(handle)=lower($1) ORDER BY id LIMIT 1;`, h)
	return scanUser(row)
}

func (r *UserRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) SetMutedUntil(ctx context.Context, tx repository.Tx, id int64, until *time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE users SET muted_until=$2, updated_at=NOW() WHERE id=$1;`, id, until)
	if err != nil {
		return fmt.Errorf("set muted_until %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u     model.User
		muted *time.Time
	)
	if err := row.Scan(&u.ID, &u.Handle, &u.FirstName, &u.LastName, &muted, &u.RegisteredAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	if muted != nil {
		m := time.Date(muted.Year(), muted.Month(), muted.Day(), 0, 0, 0, 0, time.UTC)
		u.MutedUntil = &m
	}
	u.RegisteredAt = u.RegisteredAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
