package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
)

var _ repository.IntentRepository = (*IntentRepo)(nil)

// IntentRepo keeps each user's single pending payment under one key. SET
// overwrites any previous intent and GETDEL makes the take atomic.
type IntentRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewIntentRepo(client RedisClient, ttl time.Duration) *IntentRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IntentRepo{client: client, ttl: ttl}
}

func (s *IntentRepo) intentKey(userID int64) string {
	return fmt.Sprintf("pay_intent:%d", userID)
}

func (s *IntentRepo) Set(ctx context.Context, intent *model.PendingIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.intentKey(intent.UserID), data, s.ttl)
}

func (s *IntentRepo) Get(ctx context.Context, userID int64) (*model.PendingIntent, error) {
	data, err := s.client.Get(ctx, s.intentKey(userID))
	if err != nil {
		return nil, err
	}
	return decodeIntent(data)
}

func (s *IntentRepo) Take(ctx context.Context, userID int64) (*model.PendingIntent, error) {
	data, err := s.client.GetDel(ctx, s.intentKey(userID))
	if err != nil {
		return nil, err
	}
	return decodeIntent(data)
}

func (s *IntentRepo) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.intentKey(userID))
}

func decodeIntent(data string) (*model.PendingIntent, error) {
	var in model.PendingIntent
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return nil, fmt.Errorf("decode pending intent: %w", err)
	}
	return &in, nil
}
