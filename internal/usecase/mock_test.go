//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Backend adapters
// =============================

// ---- Mock CatalogService ----

type MockCatalog struct {
	CourseFunc        func(ctx context.Context, courseID string) (*model.Course, error)
	SubscriptionsFunc func(ctx context.Context, courseID string) ([]model.Subscription, error)
}

var _ adapter.CatalogService = (*MockCatalog)(nil)

func (m *MockCatalog) Course(ctx context.Context, courseID string) (*model.Course, error) {
	if m.CourseFunc != nil {
		return m.CourseFunc(ctx, courseID)
	}
	return &model.Course{ID: courseID, Title: "Course " + courseID, Currency: "INR"}, nil
}

func (m *MockCatalog) Subscriptions(ctx context.Context, courseID string) ([]model.Subscription, error) {
	if m.SubscriptionsFunc != nil {
		return m.SubscriptionsFunc(ctx, courseID)
	}
	return nil, nil
}

// ---- Mock InstallmentService ----

type MockInstallments struct {
	mu        sync.Mutex
	PlanCalls int

	PlansFunc   func(ctx context.Context, courseID string, f adapter.PlanFilter) ([]*model.InstallmentPlan, error)
	HistoryFunc func(ctx context.Context, courseID, userID string) ([]model.PaymentRecord, error)
}

var _ adapter.InstallmentService = (*MockInstallments)(nil)

func (m *MockInstallments) Plans(ctx context.Context, courseID string, f adapter.PlanFilter) ([]*model.InstallmentPlan, error) {
	m.mu.Lock()
	m.PlanCalls++
	m.mu.Unlock()
	if m.PlansFunc != nil {
		return m.PlansFunc(ctx, courseID, f)
	}
	return nil, nil
}

func (m *MockInstallments) History(ctx context.Context, courseID, userID string) ([]model.PaymentRecord, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, courseID, userID)
	}
	return nil, nil
}

// ---- Mock OrderService ----

type MockOrders struct {
	mu          sync.Mutex
	Created     []model.OrderRequest
	Verified    []model.VerifyRequest
	PaidOrdersN int

	PaidOrdersFunc    func(ctx context.Context, courseID, userID string) ([]model.Order, error)
	CreateOrderFunc   func(ctx context.Context, req model.OrderRequest) (*model.OrderHandle, error)
	VerifyPaymentFunc func(ctx context.Context, req model.VerifyRequest) error
}

var _ adapter.OrderService = (*MockOrders)(nil)

func (m *MockOrders) PaidOrders(ctx context.Context, courseID, userID string) ([]model.Order, error) {
	m.mu.Lock()
	m.PaidOrdersN++
	m.mu.Unlock()
	if m.PaidOrdersFunc != nil {
		return m.PaidOrdersFunc(ctx, courseID, userID)
	}
	return nil, nil
}

func (m *MockOrders) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.OrderHandle, error) {
	m.mu.Lock()
	m.Created = append(m.Created, req)
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return &model.OrderHandle{OrderID: "order_" + req.Receipt[:8], Amount: req.Amount, Currency: req.Currency}, nil
}

func (m *MockOrders) VerifyPayment(ctx context.Context, req model.VerifyRequest) error {
	m.mu.Lock()
	m.Verified = append(m.Verified, req)
	m.mu.Unlock()
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, req)
	}
	return nil
}

func (m *MockOrders) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

// ---- Mock ProfileService ----

type MockProfiles struct {
	mu    sync.Mutex
	Calls int

	ProfileFunc func(ctx context.Context, userID string) (*model.UserProfile, error)
}

var _ adapter.ProfileService = (*MockProfiles)(nil)

func (m *MockProfiles) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, userID)
	}
	return &model.UserProfile{ID: userID, Name: "Test User", Email: userID + "@example.com"}, nil
}

func (m *MockProfiles) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// ---- Mock AccessService ----

type MockAccess struct {
	mu    sync.Mutex
	Calls int

	CheckAccessFunc func(ctx context.Context, courseID, userID string, attempt int) (bool, error)
}

var _ adapter.AccessService = (*MockAccess)(nil)

func (m *MockAccess) CheckAccess(ctx context.Context, courseID, userID string) (bool, error) {
	m.mu.Lock()
	m.Calls++
	attempt := m.Calls
	m.mu.Unlock()
	if m.CheckAccessFunc != nil {
		return m.CheckAccessFunc(ctx, courseID, userID, attempt)
	}
	return true, nil
}

// ---- Mock GatewayWidget ----

type MockWidget struct {
	OpenFunc func(ctx context.Context, sessionID string, handle model.OrderHandle) (model.GatewayResult, error)
}

var _ adapter.GatewayWidget = (*MockWidget)(nil)

func (m *MockWidget) Open(ctx context.Context, sessionID string, handle model.OrderHandle) (model.GatewayResult, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, sessionID, handle)
	}
	return model.GatewayResult{
		Status:    model.GatewaySuccess,
		PaymentID: "pay_" + sessionID[:8],
		OrderID:   handle.OrderID,
		Signature: "sig",
	}, nil
}

// ---- Mock ReceiptRenderer / ReceiptMailer ----

type MockRenderer struct {
	mu       sync.Mutex
	Rendered []model.ReceiptFacts

	RenderFunc func(ctx context.Context, facts model.ReceiptFacts) ([]byte, error)
}

var _ adapter.ReceiptRenderer = (*MockRenderer)(nil)

func (m *MockRenderer) ContentType() string { return "application/pdf" }

func (m *MockRenderer) Render(ctx context.Context, facts model.ReceiptFacts) ([]byte, error) {
	m.mu.Lock()
	m.Rendered = append(m.Rendered, facts)
	m.mu.Unlock()
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, facts)
	}
	return []byte("%PDF-1.3 fake"), nil
}

func (m *MockRenderer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rendered)
}

type MockMailer struct {
	mu   sync.Mutex
	Sent []*model.Receipt

	SendFunc func(ctx context.Context, r *model.Receipt) error
}

var _ adapter.ReceiptMailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, r *model.Receipt) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, r)
	return nil
}

// ---- Mock EventPublisher ----

type MockEvents struct {
	mu     sync.Mutex
	Events []model.Event
}

var _ adapter.EventPublisher = (*MockEvents)(nil)

func (m *MockEvents) Publish(ctx context.Context, e model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
}

func (m *MockEvents) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.EventName())
	}
	return out
}

func (m *MockEvents) Has(name string) bool {
	for _, n := range m.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ---- Mock TaskQueue ----

// MockQueue runs tasks inline unless Full or Hold is set.
type MockQueue struct {
	mu      sync.Mutex
	Full    bool
	Hold    bool
	Runs    int
	Errs    []error
	pending []func(ctx context.Context) error
}

var _ adapter.TaskQueue = (*MockQueue)(nil)

func (q *MockQueue) Submit(task func(ctx context.Context) error) error {
	if q.Full {
		return domain.ErrWorkerSaturated
	}
	if q.Hold {
		q.mu.Lock()
		q.pending = append(q.pending, task)
		q.mu.Unlock()
		return nil
	}
	q.run(task)
	return nil
}

func (q *MockQueue) run(task func(ctx context.Context) error) {
	err := task(context.Background())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Runs++
	if err != nil {
		q.Errs = append(q.Errs, err)
	}
}

// Drain runs held tasks.
func (q *MockQueue) Drain() {
	q.mu.Lock()
	tasks := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, task := range tasks {
		q.run(task)
	}
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockHeld
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

func (l *MockLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// =============================
// Repositories
// =============================

// ---- Mock CheckoutSessionRepository ----

type MockSessionRepo struct {
	mu   sync.Mutex
	data map[string]model.CheckoutSession

	SaveFunc func(ctx context.Context, s *model.CheckoutSession) error
}

var _ repository.CheckoutSessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{data: map[string]model.CheckoutSession{}}
}

func (r *MockSessionRepo) Save(ctx context.Context, s *model.CheckoutSession) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.ID] = *s
	return nil
}

func (r *MockSessionRepo) FindByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *MockSessionRepo) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
}

// ---- Mock CheckoutLedgerRepository ----

type MockLedgerRepo struct {
	mu      sync.Mutex
	data    map[string]model.CheckoutSession
	History []model.CheckoutState

	ListStaleFunc func(ctx context.Context, tx repository.Tx, states []model.CheckoutState, olderThan time.Time, limit int) ([]*model.CheckoutSession, error)
}

var _ repository.CheckoutLedgerRepository = (*MockLedgerRepo)(nil)

func NewMockLedgerRepo() *MockLedgerRepo {
	return &MockLedgerRepo{data: map[string]model.CheckoutSession{}}
}

func (r *MockLedgerRepo) Record(ctx context.Context, tx repository.Tx, s *model.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.ID] = *s
	r.History = append(r.History, s.State)
	return nil
}

func (r *MockLedgerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *MockLedgerRepo) ListStale(ctx context.Context, tx repository.Tx, states []model.CheckoutState, olderThan time.Time, limit int) ([]*model.CheckoutSession, error) {
	if r.ListStaleFunc != nil {
		return r.ListStaleFunc(ctx, tx, states, olderThan, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CheckoutSession
	for _, s := range r.data {
		for _, st := range states {
			if s.State == st && s.UpdatedAt.Before(olderThan) {
				cp := s
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Mock ReceiptRepository ----

type MockReceiptRepo struct {
	mu   sync.Mutex
	data map[string]*model.Receipt

	SaveFunc func(ctx context.Context, tx repository.Tx, r *model.Receipt) error
}

var _ repository.ReceiptRepository = (*MockReceiptRepo)(nil)

func NewMockReceiptRepo() *MockReceiptRepo {
	return &MockReceiptRepo{data: map[string]*model.Receipt{}}
}

func (r *MockReceiptRepo) Save(ctx context.Context, tx repository.Tx, rc *model.Receipt) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, rc)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rc
	r.data[rc.ID] = &cp
	return nil
}

func (r *MockReceiptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rc
	return &cp, nil
}

func (r *MockReceiptRepo) ListByUser(ctx context.Context, tx repository.Tx, userID, courseID string) ([]*model.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Receipt
	for _, rc := range r.data {
		if rc.UserID == userID && (courseID == "" || rc.Facts.CourseID == courseID) {
			cp := *rc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockReceiptRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}
