//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/adapter"
	"chat-billing/internal/domain/ports/repository"
)

// -----------------------------
// In-memory repository mocks
// -----------------------------
// Each mock keeps a small in-memory store with default behavior matching the
// real repository's contract, and exposes func fields to override individual
// methods per test.

// ---- Payment links ----

type MockLinkRepo struct {
	mu    sync.Mutex
	store map[string]*model.PaymentLink // keyed by LinkID

	SaveFunc           func(ctx context.Context, tx repository.Tx, link *model.PaymentLink) error
	FindByIDFunc       func(ctx context.Context, tx repository.Tx, id string) (*model.PaymentLink, error)
	UpdateStatusIfFunc func(ctx context.Context, tx repository.Tx, linkID string, from, to model.LinkStatus) (bool, error)
}

var _ repository.PaymentLinkRepository = (*MockLinkRepo)(nil)

func NewMockLinkRepo() *MockLinkRepo {
	return &MockLinkRepo{store: make(map[string]*model.PaymentLink)}
}

func (m *MockLinkRepo) Save(ctx context.Context, tx repository.Tx, link *model.PaymentLink) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, link)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *link
	m.store[link.LinkID] = &cp
	return nil
}

func (m *MockLinkRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentLink, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.store[id]; ok {
		cp := *l
		return &cp, nil
	}
	for _, l := range m.store {
		if l.OrderID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockLinkRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, linkID string, from, to model.LinkStatus) (bool, error) {
	if m.UpdateStatusIfFunc != nil {
		return m.UpdateStatusIfFunc(ctx, tx, linkID, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.store[linkID]
	if !ok || l.Status != from {
		return false, nil
	}
	l.Status = to
	return true, nil
}

func (m *MockLinkRepo) ExpirePendingBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.store {
		if l.Status == model.LinkStatusPending && l.ExpiresAt.Before(cutoff) {
			l.Status = model.LinkStatusExpired
			n++
		}
	}
	return n, nil
}

// ---- Webhook events ----

type MockEventRepo struct {
	mu    sync.Mutex
	byKey map[string]*model.WebhookEvent // (LinkID, DedupHash)
	byID  map[string]*model.WebhookEvent

	InsertIfAbsentFunc func(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error)
	UpdateStatusFunc   func(ctx context.Context, tx repository.Tx, id string, status model.EventStatus) error
}

var _ repository.WebhookEventRepository = (*MockEventRepo)(nil)

func NewMockEventRepo() *MockEventRepo {
	return &MockEventRepo{byKey: make(map[string]*model.WebhookEvent), byID: make(map[string]*model.WebhookEvent)}
}

func dedupKey(ev *model.WebhookEvent) string { return ev.LinkID + "|" + ev.DedupHash }

func (m *MockEventRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, tx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byKey[dedupKey(ev)]; ok {
		if existing.Status != model.EventStatusFailed {
			return false, nil
		}
		delete(m.byID, existing.ID)
	}
	cp := *ev
	cp.Status = model.EventStatusReceived
	m.byKey[dedupKey(ev)] = &cp
	m.byID[ev.ID] = &cp
	return true, nil
}

func (m *MockEventRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.EventStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Status = status
	return nil
}

func (m *MockEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription

	SaveFunc             func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	FindByUserFunc       func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
	ListExpiringFunc     func(ctx context.Context, tx repository.Tx, now, until time.Time) ([]*model.Subscription, error)
	ListExpiredFunc      func(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error)
	MarkReminderSentFunc func(ctx context.Context, tx repository.Tx, userID string) (bool, error)
	DowngradeFunc        func(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, sub)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.store[sub.UserID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if m.FindByUserFunc != nil {
		return m.FindByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) ListExpiring(ctx context.Context, tx repository.Tx, now, until time.Time) ([]*model.Subscription, error) {
	if m.ListExpiringFunc != nil {
		return m.ListExpiringFunc(ctx, tx, now, until)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.IsPremium && !s.RenewalReminderSent && s.PremiumExpiresAt != nil &&
			s.PremiumExpiresAt.After(now) && !s.PremiumExpiresAt.After(until) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) ListExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	if m.ListExpiredFunc != nil {
		return m.ListExpiredFunc(ctx, tx, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.IsPremium && s.PremiumExpiresAt != nil && s.PremiumExpiresAt.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) MarkReminderSent(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	if m.MarkReminderSentFunc != nil {
		return m.MarkReminderSentFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[userID]
	if !ok || s.RenewalReminderSent {
		return false, nil
	}
	s.RenewalReminderSent = true
	return true, nil
}

func (m *MockSubscriptionRepo) Downgrade(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error) {
	if m.DowngradeFunc != nil {
		return m.DowngradeFunc(ctx, tx, userID, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[userID]
	if !ok || !s.IsPremium || s.PremiumExpiresAt == nil || !s.PremiumExpiresAt.Before(now) {
		return false, nil
	}
	s.IsPremium = false
	return true, nil
}

// ---- Downgrade history ----

type downgradeRecord struct {
	UserID       string
	ExpiredAt    time.Time
	DowngradedAt time.Time
}

type MockDowngradeRepo struct {
	mu      sync.Mutex
	Records []downgradeRecord

	AppendFunc func(ctx context.Context, tx repository.Tx, userID string, expiredAt, downgradedAt time.Time) error
}

var _ repository.DowngradeHistoryRepository = (*MockDowngradeRepo)(nil)

func NewMockDowngradeRepo() *MockDowngradeRepo { return &MockDowngradeRepo{} }

func (m *MockDowngradeRepo) Append(ctx context.Context, tx repository.Tx, userID string, expiredAt, downgradedAt time.Time) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, userID, expiredAt, downgradedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, downgradeRecord{UserID: userID, ExpiredAt: expiredAt, DowngradedAt: downgradedAt})
	return nil
}

// ---- Activation codes ----

type MockCodeRepo struct {
	mu    sync.Mutex
	codes []*model.ActivationCode

	SaveIfVacantFunc        func(ctx context.Context, tx repository.Tx, code *model.ActivationCode) (bool, error)
	FindPendingForMonthFunc func(ctx context.Context, tx repository.Tx, at time.Time) (*model.ActivationCode, error)
}

var _ repository.ActivationCodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo { return &MockCodeRepo{} }

func (m *MockCodeRepo) SaveIfVacant(ctx context.Context, tx repository.Tx, code *model.ActivationCode) (bool, error) {
	if m.SaveIfVacantFunc != nil {
		return m.SaveIfVacantFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		sameMonth := c.CreatedAt.Year() == code.CreatedAt.Year() && c.CreatedAt.Month() == code.CreatedAt.Month()
		if sameMonth && c.Status == model.ActivationCodeStatusPending {
			return false, nil
		}
	}
	cp := *code
	m.codes = append(m.codes, &cp)
	return true, nil
}

func (m *MockCodeRepo) FindPendingForMonth(ctx context.Context, tx repository.Tx, at time.Time) (*model.ActivationCode, error) {
	if m.FindPendingForMonthFunc != nil {
		return m.FindPendingForMonthFunc(ctx, tx, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		sameMonth := c.CreatedAt.Year() == at.Year() && c.CreatedAt.Month() == at.Month()
		if sameMonth && c.Status == model.ActivationCodeStatusPending && c.ExpiresAt.After(at) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code && c.Status == model.ActivationCodeStatusPending && c.ExpiresAt.After(at) {
			c.Status = model.ActivationCodeStatusUsed
			c.UsedByUserID = &userID
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCodeRepo) All() []*model.ActivationCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ActivationCode, len(m.codes))
	copy(out, m.codes)
	return out
}

// ---- Withdrawals ----

type MockWithdrawalRepo struct {
	mu    sync.Mutex
	store map[string]*model.WithdrawalRequest

	SaveFunc           func(ctx context.Context, tx repository.Tx, req *model.WithdrawalRequest) error
	UpdateStatusIfFunc func(ctx context.Context, tx repository.Tx, id string, from []model.WithdrawalStatus, to model.WithdrawalStatus, reason string, at time.Time) (bool, error)
}

var _ repository.WithdrawalRepository = (*MockWithdrawalRepo)(nil)

func NewMockWithdrawalRepo() *MockWithdrawalRepo {
	return &MockWithdrawalRepo{store: make(map[string]*model.WithdrawalRequest)}
}

func (m *MockWithdrawalRepo) Save(ctx context.Context, tx repository.Tx, req *model.WithdrawalRequest) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.store[req.ID] = &cp
	return nil
}

func (m *MockWithdrawalRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockWithdrawalRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.WithdrawalRequest
	for _, r := range m.store {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockWithdrawalRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from []model.WithdrawalStatus, to model.WithdrawalStatus, reason string, at time.Time) (bool, error) {
	if m.UpdateStatusIfFunc != nil {
		return m.UpdateStatusIfFunc(ctx, tx, id, from, to, reason, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, f := range from {
		if r.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	r.Status = to
	switch to {
	case model.WithdrawalStatusProcessing:
		r.ApprovedAt = &at
	case model.WithdrawalStatusCompleted:
		r.CompletedAt = &at
	case model.WithdrawalStatusCancelled, model.WithdrawalStatusRejected:
		r.ClosedAt = &at
		r.RejectionReason = reason
	}
	return true, nil
}

// ---- Balances ----

type MockBalanceRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.BalanceAccount

	MoveAvailableToPendingFunc func(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error)
}

var _ repository.BalanceRepository = (*MockBalanceRepo)(nil)

func NewMockBalanceRepo() *MockBalanceRepo {
	return &MockBalanceRepo{accounts: make(map[string]*model.BalanceAccount)}
}

// Seed creates an account with the given available funds.
func (m *MockBalanceRepo) Seed(userID string, available int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = &model.BalanceAccount{UserID: userID, Available: available}
}

func (m *MockBalanceRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.BalanceAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return &model.BalanceAccount{UserID: userID}, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MockBalanceRepo) MoveAvailableToPending(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	if m.MoveAvailableToPendingFunc != nil {
		return m.MoveAvailableToPendingFunc(ctx, tx, userID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok || a.Available < amount {
		return false, nil
	}
	a.Available -= amount
	a.Pending += amount
	return true, nil
}

func (m *MockBalanceRepo) MovePendingToAvailable(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok || a.Pending < amount {
		return false, nil
	}
	a.Pending -= amount
	a.Available += amount
	return true, nil
}

func (m *MockBalanceRepo) MovePendingToWithdrawn(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok || a.Pending < amount {
		return false, nil
	}
	a.Pending -= amount
	a.Withdrawn += amount
	return true, nil
}

// ---- Purchases ----

type MockPurchaseRepo struct {
	mu        sync.Mutex
	Purchases []*model.Purchase

	AppendFunc func(ctx context.Context, tx repository.Tx, p *model.Purchase) error
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func NewMockPurchaseRepo() *MockPurchaseRepo { return &MockPurchaseRepo{} }

func (m *MockPurchaseRepo) Append(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.Purchases = append(m.Purchases, &cp)
	return nil
}

// -----------------------------
// Infra helpers for tests
// -----------------------------

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the function immediately with NoTX by default. Assign WithTxFunc
// to observe or fail transactions in specific tests.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock Notifier ----

type sentNotification struct {
	UserID  string
	Kind    adapter.NotificationKind
	Payload map[string]string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentNotification

	NotifyFunc func(ctx context.Context, userID string, kind adapter.NotificationKind, payload map[string]string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier { return &MockNotifier{} }

func (m *MockNotifier) Notify(ctx context.Context, userID string, kind adapter.NotificationKind, payload map[string]string) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, userID, kind, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
