//go:build !integration

package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
)

func TestIntentRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("set overwrites and take clears", func(t *testing.T) {
		fc := newFakeClient()
		repo := NewIntentRepo(fc, time.Hour)

		_ = repo.Set(ctx, &model.PendingIntent{UserID: 1, Amount: 100, Months: 1})
		_ = repo.Set(ctx, &model.PendingIntent{UserID: 1, Amount: 300, Months: 3})

		got, err := repo.Get(ctx, 1)
		if err != nil || got.Months != 3 {
			t.Fatalf("expected the overwriting intent, got %+v, %v", got, err)
		}
		if fc.ttls["pay_intent:1"] != time.Hour {
			t.Errorf("expected ttl to be applied, got %v", fc.ttls["pay_intent:1"])
		}

		taken, err := repo.Take(ctx, 1)
		if err != nil || taken.Amount != 300 {
			t.Fatalf("unexpected take result %+v, %v", taken, err)
		}
		if _, err := repo.Take(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second take must report ErrNotFound, got %v", err)
		}
	})

	t.Run("concurrent takes hand the intent to exactly one caller", func(t *testing.T) {
		repo := NewIntentRepo(newFakeClient(), 0)
		_ = repo.Set(ctx, &model.PendingIntent{UserID: 2, Months: 1})

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Take(ctx, 2); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Errorf("expected exactly one winner, got %d", wins)
		}
	})

	t.Run("clear and per-user isolation", func(t *testing.T) {
		repo := NewIntentRepo(newFakeClient(), time.Minute)
		_ = repo.Set(ctx, &model.PendingIntent{UserID: 3, Months: 1})
		_ = repo.Set(ctx, &model.PendingIntent{UserID: 4, Months: 2})
		if err := repo.Clear(ctx, 3); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if _, err := repo.Get(ctx, 3); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after clear, got %v", err)
		}
		if in, err := repo.Get(ctx, 4); err != nil || in.Months != 2 {
			t.Errorf("other users must be untouched, got %+v, %v", in, err)
		}
	})

	t.Run("corrupt payload", func(t *testing.T) {
		fc := newFakeClient()
		_ = fc.Set(ctx, "pay_intent:5", "not json", 0)
		if _, err := NewIntentRepo(fc, 0).Get(ctx, 5); err == nil {
			t.Error("expected a decode error")
		}
	})
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	rl := NewRateLimiter(fc)
	key := UserCommandKey(7, "pay")

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("hit %d must be allowed: %v %v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Error("fourth hit must be rejected")
	}
	if fc.ttls[key] != time.Minute {
		t.Errorf("window must be set on the first hit, got %v", fc.ttls[key])
	}
	if key != "rate_limit:7:pay" {
		t.Errorf("unexpected key %q", key)
	}
}
