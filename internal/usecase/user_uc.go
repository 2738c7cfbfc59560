package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/billing"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-related operations used by bot/admin flows.
type UserUseCase interface {
	// RegisterOrUpdate upserts the Telegram profile; created is true for new users.
	RegisterOrUpdate(ctx context.Context, tgID int64, handle, firstName, lastName string) (user *model.User, created bool, err error)
	Get(ctx context.Context, tgID int64) (*model.User, error)
	// ParseUserRef resolves a numeric id or an @handle.
	ParseUserRef(ctx context.Context, ref string) (*model.User, error)
	Mute(ctx context.Context, tgID int64, until time.Time) error
	Unmute(ctx context.Context, tgID int64) error
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		tm:    tm,
		log:   logger,
	}
}

func (u *userUC) RegisterOrUpdate(ctx context.Context, tgID int64, handle, firstName, lastName string) (*model.User, bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrUpdate")()

	var (
		user    *model.User
		created bool
	)
	// The read and the write share one transaction so concurrent /start
	// messages from the same user cannot both insert.
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.users.FindByID(ctx, tx, tgID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if existing != nil {
			changed := false
			h := strings.TrimPrefix(strings.TrimSpace(handle), "@")
			if h != "" && h != existing.Handle {
				existing.Handle = h
				changed = true
			}
			if firstName != "" && firstName != existing.FirstName {
				existing.FirstName = firstName
				changed = true
			}
			if lastName != existing.LastName {
				existing.LastName = lastName
				changed = true
			}
			if changed {
				existing.UpdatedAt = time.Now().UTC()
				if err := u.users.Save(ctx, tx, existing); err != nil {
					u.log.Error().Err(err).Int64("tg_id", tgID).Msg("Failed to update user")
					return err
				}
			}
			user = existing
			return nil
		}

		nu, err := model.NewUser(tgID, handle, firstName, lastName)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user, created = nu, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.IncUsersRegistered()
		u.log.Info().Int64("tg_id", tgID).Msg("new user registered")
	}
	return user, created, nil
}

func (u *userUC) Get(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	return u.users.FindByID(ctx, repository.NoTX, tgID)
}

func (u *userUC) ParseUserRef(ctx context.Context, ref string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.ParseUserRef")()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrInvalidArgument
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if id <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		return u.users.FindByID(ctx, repository.NoTX, id)
	}
	handle := strings.TrimPrefix(ref, "@")
	if handle == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.users.FindByHandle(ctx, repository.NoTX, handle)
}

func (u *userUC) Mute(ctx context.Context, tgID int64, until time.Time) error {
	defer logging.TraceDuration(u.log, "UserUC.Mute")()

	if until.IsZero() {
		return fmt.Errorf("%w: empty mute date", domain.ErrInvalidArgument)
	}
	d := billing.DateOf(until)
	if err := u.users.SetMutedUntil(ctx, repository.NoTX, tgID, &d); err != nil {
		return err
	}
	u.log.Info().Int64("tg_id", tgID).Str("until", d.Format(time.DateOnly)).Msg("user muted")
	return nil
}

func (u *userUC) Unmute(ctx context.Context, tgID int64) error {
	defer logging.TraceDuration(u.log, "UserUC.Unmute")()

	if err := u.users.SetMutedUntil(ctx, repository.NoTX, tgID, nil); err != nil {
		return err
	}
	u.log.Info().Int64("tg_id", tgID).Msg("user unmuted")
	return nil
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}
