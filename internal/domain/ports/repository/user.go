package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billing-reminder-bot/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Save inserts or updates the user keyed by its Telegram id.
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.User, error)
	FindByHandle(ctx context.Context, tx Tx, handle string) (*model.User, error)
	// ListAll returns every user in a stable order (by id). Rows that cannot
	// be decoded are reported through *UnreadableRowsError alongside the
	// users that could.
	ListAll(ctx context.Context, tx Tx) ([]*model.User, error)
	// SetMutedUntil sets or, with nil, clears the mute bound.
	SetMutedUntil(ctx context.Context, tx Tx, id int64, until *time.Time) error
	CountUsers(ctx context.Context, tx Tx) (int, error)
}

// UnreadableRow is a stored user row that failed to decode.
type UnreadableRow struct {
	ID  int64
	Err error
}

// UnreadableRowsError is returned by ListAll together with the readable users.
type UnreadableRowsError struct {
	Rows []UnreadableRow
}

func (e *UnreadableRowsError) Error() string {
	return fmt.Sprintf("%d user row(s) could not be read", len(e.Rows))
}

func (e *UnreadableRowsError) Unwrap() []error {
	errs := make([]error, 0, len(e.Rows))
	for _, r := range e.Rows {
		errs = append(errs, r.Err)
	}
	return errs
}

// AsUnreadableRows extracts an *UnreadableRowsError from err, if any.
func AsUnreadableRows(err error) (*UnreadableRowsError, bool) {
	var e *UnreadableRowsError
	ok := errors.As(err, &e)
	return e, ok
}
