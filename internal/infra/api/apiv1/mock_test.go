//go:build !integration

package apiv1_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/usecase"
)

func newLogger() *zerolog.Logger { l := zerolog.New(io.Discard); return &l }

// ---- resolver ----

type mockResolver struct {
	PlansFunc         func(ctx context.Context, courseID string) ([]*model.InstallmentPlan, error)
	SubscriptionsFunc func(ctx context.Context, courseID string) ([]model.Subscription, error)
}

var _ usecase.PlanResolver = (*mockResolver)(nil)

func (m *mockResolver) Plans(ctx context.Context, courseID string) ([]*model.InstallmentPlan, error) {
	if m.PlansFunc != nil {
		return m.PlansFunc(ctx, courseID)
	}
	return nil, nil
}

func (m *mockResolver) Subscriptions(ctx context.Context, courseID string) ([]model.Subscription, error) {
	if m.SubscriptionsFunc != nil {
		return m.SubscriptionsFunc(ctx, courseID)
	}
	return nil, nil
}

func (m *mockResolver) Resolve(ctx context.Context, courseID, userID, hint string) (*usecase.PlanResolution, error) {
	return nil, domain.ErrNotFound
}

// ---- timeline ----

type mockTimeline struct {
	LoadFunc func(ctx context.Context, courseID, userID, hint string) (*usecase.InstallmentView, error)

	LastUser string
	LastHint string
}

var _ usecase.TimelineUseCase = (*mockTimeline)(nil)

func (m *mockTimeline) Load(ctx context.Context, courseID, userID, hint string) (*usecase.InstallmentView, error) {
	m.LastUser, m.LastHint = userID, hint
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, courseID, userID, hint)
	}
	return &usecase.InstallmentView{Course: &model.Course{ID: courseID, Price: 2500, Currency: "INR"}}, nil
}

// ---- checkout ----

type mockCheckout struct {
	mu       sync.Mutex
	sessions map[string]*model.CheckoutSession

	BeginFunc    func(ctx context.Context, req usecase.CheckoutRequest) (*model.CheckoutSession, error)
	CompleteFunc func(ctx context.Context, id string, res model.GatewayResult) (*model.CheckoutSession, error)

	Begun     []usecase.CheckoutRequest
	Completed []model.GatewayResult
}

var _ usecase.CheckoutUseCase = (*mockCheckout)(nil)

func newMockCheckout(seed ...*model.CheckoutSession) *mockCheckout {
	m := &mockCheckout{sessions: map[string]*model.CheckoutSession{}}
	for _, s := range seed {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockCheckout) Begin(ctx context.Context, req usecase.CheckoutRequest) (*model.CheckoutSession, error) {
	m.mu.Lock()
	m.Begun = append(m.Begun, req)
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, req)
	}
	return &model.CheckoutSession{
		ID: "sess-new", UserID: req.UserID, CourseID: req.CourseID, Amount: req.Amount,
		InstallmentIndex: req.InstallmentIndex, State: model.CheckoutAwaitingGateway, OrderID: "order_new",
	}, nil
}

func (m *mockCheckout) Complete(ctx context.Context, id string, res model.GatewayResult) (*model.CheckoutSession, error) {
	m.mu.Lock()
	m.Completed = append(m.Completed, res)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id, res)
	}
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := *s
	out.State, out.Outcome = model.CheckoutSettled, model.OutcomeSuccess
	return &out, nil
}

func (m *mockCheckout) Get(ctx context.Context, id string) (*model.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *mockCheckout) Cancel(ctx context.Context, id string) (*model.CheckoutSession, error) {
	return m.Get(ctx, id)
}

func (m *mockCheckout) Abandon(ctx context.Context, id string) (*model.CheckoutSession, error) {
	return m.Get(ctx, id)
}

func (m *mockCheckout) Resume(ctx context.Context, id string) (*model.CheckoutSession, error) {
	return m.Get(ctx, id)
}

func (m *mockCheckout) StaleSessions(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
	return nil, nil
}

func (m *mockCheckout) Run(ctx context.Context, req usecase.CheckoutRequest, w adapter.GatewayWidget) (*model.CheckoutSession, error) {
	return m.Begin(ctx, req)
}

// ---- receipts ----

type mockReceipts struct {
	GetFunc        func(ctx context.Context, userID, id string) (*model.Receipt, error)
	RegenerateFunc func(ctx context.Context, userID, courseID string, index int) (*model.Receipt, error)
}

var _ usecase.ReceiptUseCase = (*mockReceipts)(nil)

func (m *mockReceipts) IssueForSession(ctx context.Context, s *model.CheckoutSession) (*model.Receipt, error) {
	return nil, domain.ErrReceiptFailed
}

func (m *mockReceipts) Regenerate(ctx context.Context, userID, courseID string, index int) (*model.Receipt, error) {
	if m.RegenerateFunc != nil {
		return m.RegenerateFunc(ctx, userID, courseID, index)
	}
	return nil, domain.ErrNotPaid
}

func (m *mockReceipts) Get(ctx context.Context, userID, id string) (*model.Receipt, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockReceipts) List(ctx context.Context, userID, courseID string) ([]*model.Receipt, error) {
	return nil, nil
}

// ---- rate limiter ----

type mockLimiter struct {
	mu   sync.Mutex
	hits map[string]int
	Err  error
	Keys []string
}

var _ adapter.RateLimiter = (*mockLimiter)(nil)

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if m.hits == nil {
		m.hits = map[string]int{}
	}
	m.Keys = append(m.Keys, key)
	m.hits[key]++
	return m.hits[key] <= limit, nil
}
