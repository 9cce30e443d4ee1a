//go:build !integration

package sched

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
)

func newTestLogger() *zerolog.Logger { l := zerolog.New(io.Discard); return &l }

type mockCheckout struct {
	StaleFunc  func(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error)
	CancelFunc func(ctx context.Context, id string) (*model.CheckoutSession, error)
	ResumeFunc func(ctx context.Context, id string) (*model.CheckoutSession, error)

	Cancelled []string
	Abandoned []string
	Resumed   []string
}

func (m *mockCheckout) StaleSessions(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
	return m.StaleFunc(ctx, states, olderThan)
}

func (m *mockCheckout) Cancel(ctx context.Context, id string) (*model.CheckoutSession, error) {
	m.Cancelled = append(m.Cancelled, id)
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id)
	}
	return &model.CheckoutSession{ID: id, State: model.CheckoutIdle, Cancelled: true}, nil
}

func (m *mockCheckout) Abandon(ctx context.Context, id string) (*model.CheckoutSession, error) {
	m.Abandoned = append(m.Abandoned, id)
	return &model.CheckoutSession{ID: id, State: model.CheckoutSettled, Outcome: model.OutcomeFailed}, nil
}

func (m *mockCheckout) Resume(ctx context.Context, id string) (*model.CheckoutSession, error) {
	m.Resumed = append(m.Resumed, id)
	if m.ResumeFunc != nil {
		return m.ResumeFunc(ctx, id)
	}
	return &model.CheckoutSession{ID: id, State: model.CheckoutSettled, Outcome: model.OutcomePartial}, nil
}

func sessions(ids ...string) []*model.CheckoutSession {
	out := make([]*model.CheckoutSession, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.CheckoutSession{ID: id})
	}
	return out
}

func TestSessionJanitor_Run(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("cancels awaiting sessions older than ttl", func(t *testing.T) {
		var gotStates []model.CheckoutState
		var gotCutoff time.Time
		m := &mockCheckout{StaleFunc: func(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
			gotStates, gotCutoff = states, olderThan
			return sessions("s1", "s2", "s3"), nil
		}}
		m.CancelFunc = func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			if id == "s2" {
				return nil, domain.ErrInvalidTransition
			}
			return &model.CheckoutSession{ID: id}, nil
		}
		j := NewSessionJanitor(m, 10*time.Minute, newTestLogger())
		j.now = func() time.Time { return fixed }

		n, err := j.Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 2 || len(m.Cancelled) != 3 {
			t.Errorf("expected 2 cancelled of 3 attempts, got %d/%d", n, len(m.Cancelled))
		}
		if len(gotStates) != 2 || gotStates[0] != model.CheckoutCreatingOrder || gotStates[1] != model.CheckoutAwaitingGateway {
			t.Errorf("unexpected states %v", gotStates)
		}
		if !gotCutoff.Equal(fixed.Add(-10 * time.Minute)) {
			t.Errorf("unexpected cutoff %v", gotCutoff)
		}
	})

	t.Run("fails sessions stuck creating an order", func(t *testing.T) {
		m := &mockCheckout{StaleFunc: func(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
			return []*model.CheckoutSession{
				{ID: "c1", State: model.CheckoutCreatingOrder},
				{ID: "a1", State: model.CheckoutAwaitingGateway},
			}, nil
		}}
		n, err := NewSessionJanitor(m, time.Minute, newTestLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 closed, got %d", n)
		}
		if len(m.Abandoned) != 1 || m.Abandoned[0] != "c1" {
			t.Errorf("expected c1 abandoned, got %v", m.Abandoned)
		}
		if len(m.Cancelled) != 1 || m.Cancelled[0] != "a1" {
			t.Errorf("expected a1 cancelled, got %v", m.Cancelled)
		}
	})

	t.Run("listing failure is returned", func(t *testing.T) {
		m := &mockCheckout{StaleFunc: func(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
			return nil, errors.New("db down")
		}}
		if _, err := NewSessionJanitor(m, 0, newTestLogger()).Run(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		m := &mockCheckout{StaleFunc: func(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
			return sessions("s1", "s2"), nil
		}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		n, err := NewSessionJanitor(m, time.Minute, newTestLogger()).Run(ctx)
		if !errors.Is(err, context.Canceled) || n != 0 || len(m.Cancelled) != 0 {
			t.Errorf("expected early stop, got n=%d err=%v cancelled=%v", n, err, m.Cancelled)
		}
	})
}

func TestPaymentReconciler_Run(t *testing.T) {
	var gotStates []model.CheckoutState
	m := &mockCheckout{StaleFunc: func(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
		gotStates = states
		return sessions("v1", "p1"), nil
	}}
	m.ResumeFunc = func(ctx context.Context, id string) (*model.CheckoutSession, error) {
		if id == "p1" {
			return nil, errors.New("ledger unavailable")
		}
		return &model.CheckoutSession{ID: id, State: model.CheckoutSettled, Outcome: model.OutcomeSuccess}, nil
	}

	n, err := NewPaymentReconciler(m, time.Minute, newTestLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 1 || len(m.Resumed) != 2 {
		t.Errorf("expected 1 settled of 2 resumed, got %d/%d", n, len(m.Resumed))
	}
	if len(gotStates) != 2 || gotStates[0] != model.CheckoutVerifyingSignature || gotStates[1] != model.CheckoutPollingAccess {
		t.Errorf("unexpected states %v", gotStates)
	}
	if len(m.Cancelled) != 0 {
		t.Error("reconciler must never cancel")
	}
}
