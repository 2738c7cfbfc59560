package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, handle, first_name, last_name, muted_until, registered_at, updated_at`

func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u.IsZero() {
		return domain.ErrInvalidArgument
	}
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = now
	}
	u.UpdatedAt = now
	_, err = ex.ExecContext(ctx, `
		INSERT INTO users (id, handle, first_name, last_name, registered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			handle     = excluded.handle,
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			updated_at = excluded.updated_at`,
		u.ID, u.Handle, u.FirstName, u.LastName, formatTime(u.RegisteredAt), formatTime(u.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	return scanUser(pickRow(ctx, r.db, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *UserRepo) FindByHandle(ctx context.Context, tx repository.Tx, handle string) (*model.User, error) {
	h := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if h == "" {
		return nil, domain.ErrInvalidArgument
	}
	return scanUser(pickRow(ctx, r.db, tx, `SELECT `+userColumns+` FROM users WHERE handle = ? COLLATE NOCASE ORDER BY id LIMIT 1`, h))
}

func (r *UserRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var (
		out []*model.User
		bad []repository.UnreadableRow
	)
	for rows.Next() {
		raw, err := readUserRow(rows)
		if err != nil {
			return nil, err
		}
		u, err := raw.decode()
		if err != nil {
			bad = append(bad, repository.UnreadableRow{ID: raw.u.ID, Err: err})
			continue
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(bad) > 0 {
		return out, &repository.UnreadableRowsError{Rows: bad}
	}
	return out, nil
}

func (r *UserRepo) SetMutedUntil(ctx context.Context, tx repository.Tx, id int64, until *time.Time) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	var v sql.NullString
	if until != nil {
		v = sql.NullString{String: until.Format(dateLayout), Valid: true}
	}
	res, err := ex.ExecContext(ctx, `UPDATE users SET muted_until = ?, updated_at = ? WHERE id = ?`, v, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set muted_until %d: %w", id, err)
	}
	return rowsAffected(res)
}

func (r *UserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	var n int
	if err := pickRow(ctx, r.db, tx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// userRow holds the raw columns of a users row before timestamp decoding.
type userRow struct {
	u                   model.User
	muted               sql.NullString
	registered, updated string
}

func readUserRow(row scanner) (*userRow, error) {
	var r userRow
	if err := row.Scan(&r.u.ID, &r.u.Handle, &r.u.FirstName, &r.u.LastName, &r.muted, &r.registered, &r.updated); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// decode only fails with domain.ErrMalformedTimestamp.
func (r *userRow) decode() (*model.User, error) {
	u := r.u
	var err error
	if u.RegisteredAt, err = parseTime(r.registered); err != nil {
		return nil, fmt.Errorf("%w: user %d", err, u.ID)
	}
	if u.UpdatedAt, err = parseTime(r.updated); err != nil {
		return nil, fmt.Errorf("%w: user %d", err, u.ID)
	}
	if r.muted.Valid && r.muted.String != "" {
		m, err := time.Parse(dateLayout, r.muted.String)
		if err != nil {
			return nil, fmt.Errorf("%w: muted_until of user %d", domain.ErrMalformedTimestamp, u.ID)
		}
		u.MutedUntil = &m
	}
	return &u, nil
}

func scanUser(row scanner) (*model.User, error) {
	raw, err := readUserRow(row)
	if err != nil {
		return nil, err
	}
	return raw.decode()
}
