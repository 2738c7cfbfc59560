//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/usecase"
)

func seedUsers(t *testing.T, repo *MockUserRepo, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		u, err := model.NewUser(id, "", "User", "")
		if err != nil {
			t.Fatalf("NewUser(%d): %v", id, err)
		}
		if err := repo.Save(context.Background(), nil, u); err != nil {
			t.Fatalf("seed user %d: %v", id, err)
		}
	}
}

func dueIDs(res *usecase.ScanResult) []int64 {
	out := make([]int64, 0, len(res.Due))
	for _, d := range res.Due {
		out = append(out, d.User.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScanUseCase_DueUsers(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("classifies users and keeps input order", func(t *testing.T) {
		// --- Arrange ---
		users := NewMockUserRepo()
		payments := NewMockPaymentRepo()
		seedUsers(t, users, 1, 2, 3, 4, 5)

		payments.add(2, noon(2024, 6, 2), 1) // covered through July
		payments.add(4, noon(2024, 3, 5), 1) // lapsed since May 1
		muteUntil := day(2024, 6, 11)
		_ = users.SetMutedUntil(ctx, nil, 3, &muteUntil)

		payments.ErrFor = map[int64]error{5: errors.New("disk on fire")}

		uc := usecase.NewScanUseCase(users, payments, logger)

		// --- Act ---
		res, err := uc.DueUsers(ctx, billingCfg(1), noon(2024, 6, 10))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := dueIDs(res); !equalIDs(got, []int64{1, 4}) {
			t.Errorf("expected due users [1 4], got %v", got)
		}
		if res.Scanned != 5 || res.Muted != 1 {
			t.Errorf("expected scanned=5 muted=1, got %d/%d", res.Scanned, res.Muted)
		}
		if len(res.Failures) != 1 || res.Failures[0].UserID != 5 {
			t.Errorf("expected a single failure for user 5, got %+v", res.Failures)
		}
		if !res.Today.Equal(day(2024, 6, 10)) {
			t.Errorf("unexpected today %s", res.Today)
		}
	})

	t.Run("malformed timestamp fails only that user", func(t *testing.T) {
		users := NewMockUserRepo()
		payments := NewMockPaymentRepo()
		seedUsers(t, users, 10, 11)
		payments.add(10, time.Time{}, 1)

		uc := usecase.NewScanUseCase(users, payments, logger)
		res, err := uc.DueUsers(ctx, billingCfg(1), noon(2024, 6, 10))
		if err != nil {
			t.Fatalf("scan must not abort: %v", err)
		}
		if len(res.Failures) != 1 || !errors.Is(res.Failures[0].Err, domain.ErrMalformedTimestamp) {
			t.Errorf("expected malformed timestamp failure, got %+v", res.Failures)
		}
		if got := dueIDs(res); !equalIDs(got, []int64{11}) {
			t.Errorf("expected user 11 due, got %v", got)
		}
	})

	t.Run("mute ends exactly on muted_until", func(t *testing.T) {
		users := NewMockUserRepo()
		seedUsers(t, users, 7)
		until := day(2024, 6, 10)
		_ = users.SetMutedUntil(ctx, nil, 7, &until)
		uc := usecase.NewScanUseCase(users, NewMockPaymentRepo(), logger)

		before, _ := uc.DueUsers(ctx, billingCfg(1), noon(2024, 6, 9))
		on, _ := uc.DueUsers(ctx, billingCfg(1), noon(2024, 6, 10))

		if len(before.Due) != 0 || before.Muted != 1 {
			t.Errorf("expected user muted the day before, got due=%v", dueIDs(before))
		}
		if !equalIDs(dueIDs(on), []int64{7}) {
			t.Errorf("expected user due on the mute end date, got %v", dueIDs(on))
		}
	})

	t.Run("today is derived in the billing timezone", func(t *testing.T) {
		users := NewMockUserRepo()
		payments := NewMockPaymentRepo()
		seedUsers(t, users, 8)
		payments.add(8, noon(2024, 4, 15), 1) // covers May, next due June 1
		uc := usecase.NewScanUseCase(users, payments, logger)

		now := time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC)

		utc, _ := uc.DueUsers(ctx, billingCfg(1), now)
		if len(utc.Due) != 0 {
			t.Errorf("in UTC it is still May 31, nobody is due; got %v", dueIDs(utc))
		}

		cfg := billingCfg(1)
		cfg.Timezone = "Asia/Tehran"
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		local, _ := uc.DueUsers(ctx, cfg, now)
		if !equalIDs(dueIDs(local), []int64{8}) {
			t.Errorf("in Tehran it is June 1, expected user 8 due; got %v", dueIDs(local))
		}
	})

	t.Run("user listing failure aborts", func(t *testing.T) {
		users := NewMockUserRepo()
		users.ListAllFunc = func(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
			return nil, errors.New("db down")
		}
		uc := usecase.NewScanUseCase(users, NewMockPaymentRepo(), logger)
		if _, err := uc.DueUsers(ctx, billingCfg(1), noon(2024, 6, 10)); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("unreadable user rows fail only those users", func(t *testing.T) {
		users := NewMockUserRepo()
		seedUsers(t, users, 1, 3)
		readable, _ := users.ListAll(ctx, repository.NoTX)
		users.ListAllFunc = func(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
			return readable, &repository.UnreadableRowsError{Rows: []repository.UnreadableRow{
				{ID: 2, Err: domain.ErrMalformedTimestamp},
			}}
		}
		uc := usecase.NewScanUseCase(users, NewMockPaymentRepo(), logger)
		res, err := uc.DueUsers(ctx, billingCfg(1), noon(2024, 6, 10))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !equalIDs(dueIDs(res), []int64{1, 3}) {
			t.Errorf("expected [1 3] due, got %v", dueIDs(res))
		}
		if len(res.Failures) != 1 || res.Failures[0].UserID != 2 || !errors.Is(res.Failures[0].Err, domain.ErrMalformedTimestamp) {
			t.Errorf("expected user 2 as the only failure, got %+v", res.Failures)
		}
		if res.Scanned != 3 {
			t.Errorf("expected 3 scanned, got %d", res.Scanned)
		}
	})
}

func TestScanUseCase_Coverage(t *testing.T) {
	ctx := context.Background()
	users := NewMockUserRepo()
	payments := NewMockPaymentRepo()
	seedUsers(t, users, 1)
	payments.add(1, noon(2024, 3, 10), 3)

	uc := usecase.NewScanUseCase(users, payments, newTestLogger())
	view, err := uc.Coverage(ctx, 1, billingCfg(15), noon(2024, 4, 1))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if view.Coverage.CoveredThrough == nil || !view.Coverage.CoveredThrough.Equal(day(2024, 6, 14)) {
		t.Errorf("expected coverage through 2024-06-14, got %v", view.Coverage.CoveredThrough)
	}
	if !view.Coverage.NextDue.Equal(day(2024, 6, 15)) {
		t.Errorf("expected next due 2024-06-15, got %s", view.Coverage.NextDue)
	}

	if _, err := uc.Coverage(ctx, 99, billingCfg(15), noon(2024, 4, 1)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}
