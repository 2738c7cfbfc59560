//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	users := NewUserRepo(testPool)
	repo := NewPaymentRepo(testPool)
	tm := NewTxManager(testPool)
	ctx := context.Background()

	seed := func(t *testing.T) {
		t.Helper()
		cleanup(t)
		u, _ := model.NewUser(1, "payer", "", "")
		if err := users.Save(ctx, nil, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	t.Run("should save, list and find payments", func(t *testing.T) {
		seed(t)
		base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		var ids []string
		for i := 0; i < 3; i++ {
			p, _ := model.NewPayment(1, 25000, i+1, "file-x", base.AddDate(0, i, 0))
			if err := repo.Save(ctx, nil, p); err != nil {
				t.Fatalf("Save: %v", err)
			}
			ids = append(ids, p.ID)
		}

		all, err := repo.ListByUser(ctx, nil, 1)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(all) != 3 || all[0].ID != ids[0] || all[2].ID != ids[2] {
			t.Fatalf("unexpected ListByUser result")
		}
		if !all[0].PaidAt.Equal(base) || all[0].PaidAt.Location() != time.UTC {
			t.Errorf("paid_at = %v, want %v UTC", all[0].PaidAt, base)
		}

		recent, err := repo.ListRecentByUser(ctx, nil, 1, 2)
		if err != nil {
			t.Fatalf("ListRecentByUser: %v", err)
		}
		if len(recent) != 2 || recent[0].ID != ids[2] || recent[1].ID != ids[1] {
			t.Errorf("recent should be newest first")
		}

		got, err := repo.FindByID(ctx, nil, ids[1])
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Months != 2 || got.Amount != 25000 || got.ProofReference != "file-x" {
			t.Errorf("unexpected payment %+v", got)
		}
	})

	t.Run("should delete inside a transaction", func(t *testing.T) {
		seed(t)
		p, _ := model.NewPayment(1, 100, 1, "", time.Now())
		_ = repo.Save(ctx, nil, p)

		err := tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := repo.FindByID(ctx, tx, p.ID); err != nil {
				return err
			}
			return repo.Delete(ctx, tx, p.ID)
		})
		if err != nil {
			t.Fatalf("WithTx: %v", err)
		}
		if _, err := repo.FindByID(ctx, nil, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("want ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, nil, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second delete: want ErrNotFound, got %v", err)
		}
	})

	t.Run("should roll back when the callback fails", func(t *testing.T) {
		seed(t)
		p, _ := model.NewPayment(1, 100, 1, "", time.Now())
		boom := errors.New("boom")
		err := tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.Save(ctx, tx, p); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("want boom, got %v", err)
		}
		if _, err := repo.FindByID(ctx, nil, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("payment should not survive rollback, got %v", err)
		}
	})

	t.Run("should reject foreign tx handles", func(t *testing.T) {
		if _, err := repo.ListByUser(ctx, "not-a-tx", 1); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Errorf("want ErrInvalidExecContext, got %v", err)
		}
	})
}

func TestSettingsRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	repo := NewSettingsRepo(testPool)
	ctx := context.Background()
	cleanup(t)

	if _, err := repo.Load(ctx, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty table: want ErrNotFound, got %v", err)
	}

	cfg := model.BillingConfig{BillingDay: 5, Timezone: "Asia/Tehran", MonthlyAmount: 25000, ReminderTime: "09:30", FoldPolicy: model.FoldStacked}
	if err := repo.Save(ctx, nil, &cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg.BillingDay = 7
	if err := repo.Save(ctx, nil, &cfg); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := repo.Load(ctx, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BillingDay != 7 || got.Timezone != "Asia/Tehran" || got.MonthlyAmount != 25000 || got.FoldPolicy != model.FoldStacked {
		t.Errorf("unexpected settings %+v", got)
	}

	bad := cfg
	bad.BillingDay = 31
	if err := repo.Save(ctx, nil, &bad); !errors.Is(err, domain.ErrInvalidBillingDay) {
		t.Errorf("want ErrInvalidBillingDay, got %v", err)
	}
}
