//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/infra/i18n"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func noon(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

func billingCfg(billingDay int) model.BillingConfig {
	cfg := model.DefaultBillingConfig()
	cfg.BillingDay = billingDay
	cfg.MonthlyAmount = 250
	return cfg
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func newTestTranslator() *i18n.Translator {
	testFS := fstest.MapFS{
		"locales/en.yaml": {
			Data: []byte(`
reminder_due: "due %s since %s"
admin_new_payment: "paid %s %s %d %s"
`),
		},
	}
	translator, _ := i18n.NewTranslator(testFS, "en")
	return translator
}

// =============================
// Adapters
// =============================

type sentMessage struct {
	UserID int64
	Text   string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentMessage

	NotifyFunc func(ctx context.Context, userID int64, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, userID int64, text string) error {
	if m.NotifyFunc != nil {
		if err := m.NotifyFunc(ctx, userID, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{UserID: userID, Text: text})
	return nil
}

func (m *MockNotifier) Recipients() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.Sent))
	for _, s := range m.Sent {
		out = append(out, s.UserID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================
// Repositories
// =============================

// ---- MockUserRepo ----

type MockUserRepo struct {
	mu    sync.RWMutex
	users map[int64]*model.User
	order []int64

	SaveFunc    func(ctx context.Context, tx repository.Tx, u *model.User) error
	ListAllFunc func(ctx context.Context, tx repository.Tx) ([]*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: map[int64]*model.User{}}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		m.order = append(m.order, u.ID)
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByHandle(ctx context.Context, tx repository.Tx, handle string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Handle == handle {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListAll returns users in insertion order so tests can assert stable output.
func (m *MockUserRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx, tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.User, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.users[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockUserRepo) SetMutedUntil(ctx context.Context, tx repository.Tx, id int64, until *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if until == nil {
		u.MutedUntil = nil
		return nil
	}
	t := *until
	u.MutedUntil = &t
	return nil
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// ---- MockPaymentRepo ----

type MockPaymentRepo struct {
	mu       sync.RWMutex
	payments []*model.Payment
	ErrFor   map[int64]error // ListByUser fails for these users

	SaveFunc       func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	ListByUserFunc func(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Payment, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo { return &MockPaymentRepo{} }

func (m *MockPaymentRepo) add(userID int64, paidAt time.Time, months int) *model.Payment {
	p := &model.Payment{ID: uuid.NewString(), UserID: userID, Amount: 250 * int64(months), Months: months, PaidAt: paidAt}
	m.mu.Lock()
	m.payments = append(m.payments, p)
	m.mu.Unlock()
	return p
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Payment, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, tx, userID)
	}
	if err := m.ErrFor[userID]; err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) ListRecentByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Payment, error) {
	all, _ := m.ListByUser(ctx, tx, userID)
	sort.SliceStable(all, func(i, j int) bool { return all[i].PaidAt.After(all[j].PaidAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockPaymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.payments {
		if p.ID == id {
			m.payments = append(m.payments[:i], m.payments[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockPaymentRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ---- MockIntentRepo ----

type MockIntentRepo struct {
	mu      sync.Mutex
	intents map[int64]model.PendingIntent

	TakeFunc func(ctx context.Context, userID int64) (*model.PendingIntent, error)
}

var _ repository.IntentRepository = (*MockIntentRepo)(nil)

func NewMockIntentRepo() *MockIntentRepo {
	return &MockIntentRepo{intents: map[int64]model.PendingIntent{}}
}

func (m *MockIntentRepo) Set(ctx context.Context, intent *model.PendingIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.UserID] = *intent
	return nil
}

func (m *MockIntentRepo) Get(ctx context.Context, userID int64) (*model.PendingIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &in, nil
}

func (m *MockIntentRepo) Take(ctx context.Context, userID int64) (*model.PendingIntent, error) {
	if m.TakeFunc != nil {
		return m.TakeFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.intents, userID)
	return &in, nil
}

func (m *MockIntentRepo) Clear(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.intents, userID)
	return nil
}

// ---- MockSettingsRepo ----

type MockSettingsRepo struct {
	mu     sync.Mutex
	stored *model.BillingConfig
	Saves  int

	SaveFunc func(ctx context.Context, tx repository.Tx, cfg *model.BillingConfig) error
}

var _ repository.SettingsRepository = (*MockSettingsRepo)(nil)

func (m *MockSettingsRepo) Load(ctx context.Context, tx repository.Tx) (*model.BillingConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.stored
	return &cp, nil
}

func (m *MockSettingsRepo) Save(ctx context.Context, tx repository.Tx, cfg *model.BillingConfig) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, cfg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cfg
	m.stored = &cp
	m.Saves++
	return nil
}

// ---- MockTxManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
	Keys  []string
}

var _ repository.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Keys = append(l.Keys, key)
	if err := l.ErrOn[key]; err != nil {
		return "", err
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockHeld
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

func (l *MockLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
