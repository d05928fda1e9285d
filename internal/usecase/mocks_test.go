//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// memSessionRepo is a small in-memory implementation used by unit tests. The
// conditional update in UpdateStatusIfPending mirrors the SQL guard.
type memSessionRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.PaymentSession // by ID
	saveErr error                            // used by tests to simulate save failures
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: make(map[string]*model.PaymentSession)}
}

func (m *memSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) FindByTrackingID(ctx context.Context, tx repository.Tx, trackingID string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.TrackingID == trackingID && trackingID != "" {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) SetTrackingID(ctx context.Context, tx repository.Tx, id, trackingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.TrackingID = trackingID
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSessionRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.SessionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return false, nil
	}
	if s.Status != model.SessionStatusPending {
		return false, nil
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *memSessionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentSession
	for _, s := range m.store {
		if s.Status == model.SessionStatusPending && s.TrackingID != "" && s.CreatedAt.Before(olderThan) {
			cp := *s
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type memOrderRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Order // by ID
	saveErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{store: make(map[string]*model.Order)}
}

func (m *memOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) FindBySessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.store {
		if o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) ListByVendor(ctx context.Context, tx repository.Tx, vendorID string, offset, limit int) ([]*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Order
	for _, o := range m.store {
		for _, it := range o.Items {
			if it.VendorID == vendorID {
				cp := *o
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *memOrderRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

type memSubRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription // by UserID
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.UserID] = &cp
	return nil
}

func (m *memSubRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) MarkPaid(ctx context.Context, tx repository.Tx, userID string, plan model.PlanType, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[userID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = model.SubscriptionStatusPaid
	s.Plan = plan
	s.StartDate = &start
	s.EndDate = &end
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSubRepo) MarkFailed(ctx context.Context, tx repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[userID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = model.SubscriptionStatusFailed
	s.UpdatedAt = time.Now()
	return nil
}

// memWalletRepo keeps the balance/ledger invariant the way the SQL repo does:
// one deposit row appended per credit, balance bumped in the same step.
type memWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
	ledger  map[string][]model.WalletTransaction
	seq     int
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{
		wallets: make(map[string]*model.Wallet),
		ledger:  make(map[string][]model.WalletTransaction),
	}
}

func (m *memWalletRepo) FindByVendor(ctx context.Context, tx repository.Tx, vendorID string) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[vendorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWalletRepo) Credit(ctx context.Context, tx repository.Tx, vendorID string, amount int64, reference string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[vendorID]
	if !ok {
		w = &model.Wallet{VendorID: vendorID, CreatedAt: time.Now()}
		m.wallets[vendorID] = w
	}
	w.Balance += amount
	w.TotalSales += amount
	w.UpdatedAt = time.Now()
	m.seq++
	m.ledger[vendorID] = append(m.ledger[vendorID], model.WalletTransaction{
		ID:           time.Now().Format("20060102150405") + string(rune('a'+m.seq%26)),
		WalletID:     vendorID,
		Type:         model.WalletTxDeposit,
		Amount:       amount,
		Reference:    reference,
		BalanceAfter: w.Balance,
		CreatedAt:    time.Now(),
	})
	return w.Balance, nil
}

func (m *memWalletRepo) ListTransactions(ctx context.Context, tx repository.Tx, vendorID string, limit int) ([]model.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.WalletTransaction, len(m.ledger[vendorID]))
	copy(out, m.ledger[vendorID])
	return out, nil
}

// mockTxManager runs the function directly; unit tests do not need a real
// transaction, only the call shape.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// mockGateway scripts provider behavior per test.
type mockGateway struct {
	mu         sync.Mutex
	pushErr    error
	trackingID string
	queryRes   []adapter.StatusResult // consumed in order; last one repeats
	queryErr   error
	queryDelay time.Duration
	queryCalls int
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) Authenticate(ctx context.Context) (string, error) { return "test-token", nil }

func (g *mockGateway) InitiatePush(ctx context.Context, phone string, amount int64, reference, description string) (string, error) {
	if g.pushErr != nil {
		return "", g.pushErr
	}
	if g.trackingID != "" {
		return g.trackingID, nil
	}
	return "ws_CO_TEST", nil
}

func (g *mockGateway) QueryStatus(ctx context.Context, trackingID string) (adapter.StatusResult, error) {
	if g.queryDelay > 0 {
		select {
		case <-time.After(g.queryDelay):
		case <-ctx.Done():
			return adapter.StatusResult{}, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	if g.queryErr != nil {
		return adapter.StatusResult{Outcome: adapter.OutcomePending}, g.queryErr
	}
	if len(g.queryRes) == 0 {
		return adapter.StatusResult{Outcome: adapter.OutcomePending}, nil
	}
	res := g.queryRes[0]
	if len(g.queryRes) > 1 {
		g.queryRes = g.queryRes[1:]
	}
	return res, nil
}

func (g *mockGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queryCalls
}

type memStatusCache struct {
	mu    sync.Mutex
	store map[string]string
}

func newMemStatusCache() *memStatusCache {
	return &memStatusCache{store: make(map[string]string)}
}

func (c *memStatusCache) StoreTerminal(ctx context.Context, trackingID, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[trackingID] = status
	return nil
}

func (c *memStatusCache) GetTerminal(ctx context.Context, trackingID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[trackingID], nil
}

// fixture wires a full use-case set over the in-memory world.
type fixture struct {
	sessions *memSessionRepo
	orders   *memOrderRepo
	subs     *memSubRepo
	wallets  *memWalletRepo
	gateway  *mockGateway
	cache    *memStatusCache
	fin      *finalizer

	initiator  PaymentInitiator
	reconciler CallbackReconciler
	poller     *pollUC
}

func newFixture(pollInterval time.Duration) *fixture {
	f := &fixture{
		sessions: newMemSessionRepo(),
		orders:   newMemOrderRepo(),
		subs:     newMemSubRepo(),
		wallets:  newMemWalletRepo(),
		gateway:  &mockGateway{},
		cache:    newMemStatusCache(),
	}
	log := newTestLogger()
	f.fin = newFinalizer(f.sessions, f.orders, f.subs, f.wallets, mockTxManager{}, f.cache, log)
	f.initiator = NewPaymentInitiator(f.sessions, f.gateway, log)
	f.reconciler = NewCallbackReconciler(f.sessions, f.fin, log)
	f.poller = NewStatusPoller(f.sessions, f.gateway, f.fin, 3, pollInterval, log)
	return f
}

// seedSession puts a PENDING order session with a tracking id in place.
func (f *fixture) seedSession(id, trackingID string) *model.PaymentSession {
	s := &model.PaymentSession{
		ID:         id,
		SubjectID:  "order-77",
		Purpose:    model.PurposeOrder,
		Phone:      "254712345678",
		Amount:     1500,
		TrackingID: trackingID,
		Status:     model.SessionStatusPending,
		BuyerID:    "buyer-1",
		Snapshot: model.CartSnapshot{Items: []model.CartItem{
			{ProductID: "p1", VendorID: "vendor-a", Quantity: 2, Price: 500},
			{ProductID: "p2", VendorID: "vendor-b", Quantity: 1, Price: 500},
		}},
		CreatedAt: time.Now().Add(-time.Minute),
		UpdatedAt: time.Now().Add(-time.Minute),
	}
	_ = f.sessions.Save(context.Background(), repository.NoTX, s)
	return s
}

func successCallback(trackingID string) *CallbackEnvelope {
	env := &CallbackEnvelope{}
	code := 0
	env.Body.StkCallback.CheckoutRequestID = trackingID
	env.Body.StkCallback.ResultCode = &code
	env.Body.StkCallback.ResultDesc = "The service request is processed successfully."
	env.Body.StkCallback.CallbackMetadata.Item = []struct {
		Name  string `json:"Name"`
		Value any    `json:"Value"`
	}{
		{Name: "Amount", Value: 1500.0},
		{Name: "MpesaReceiptNumber", Value: "QK12ABC34D"},
	}
	return env
}

func failedCallback(trackingID string, code int, desc string) *CallbackEnvelope {
	env := &CallbackEnvelope{}
	env.Body.StkCallback.CheckoutRequestID = trackingID
	env.Body.StkCallback.ResultCode = &code
	env.Body.StkCallback.ResultDesc = desc
	return env
}
