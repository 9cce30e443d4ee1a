//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/usecase"
)

type receiptTestDeps struct {
	repo     *MockReceiptRepo
	renderer *MockRenderer
	mailer   *MockMailer
	orders   *MockOrders
	profiles *MockProfiles
	events   *MockEvents
}

func newReceiptDeps(t *testing.T) *receiptTestDeps {
	t.Helper()
	paid := now().Add(-24 * time.Hour)
	return &receiptTestDeps{
		repo:     NewMockReceiptRepo(),
		renderer: &MockRenderer{},
		mailer:   &MockMailer{},
		orders: &MockOrders{PaidOrdersFunc: func(ctx context.Context, courseID, userID string) ([]model.Order, error) {
			return []model.Order{{ID: "order_1", PaymentID: "pay_1", Status: "paid", PaidAt: &paid,
				InstallmentDetails: model.InstallmentDetails{InstallmentNumber: 1, IsPaid: true}}}, nil
		}},
		profiles: &MockProfiles{ProfileFunc: func(ctx context.Context, userID string) (*model.UserProfile, error) {
			e := enrolled("3 months", 900, 900, 900)
			e.Installments[0].IsPaid = true
			return &model.UserProfile{ID: userID, Name: "Asha", Email: "asha@example.com", PurchasedCourses: []model.UserEnrollment{*e}}, nil
		}},
		events: &MockEvents{},
	}
}

func (d *receiptTestDeps) build(t *testing.T) usecase.ReceiptUseCase {
	logger := newTestLogger()
	plan := mustPlan(t, "3 months", 1000, 1000, 1000)
	installs := &MockInstallments{PlansFunc: func(ctx context.Context, courseID string, f adapter.PlanFilter) ([]*model.InstallmentPlan, error) {
		return []*model.InstallmentPlan{plan}, nil
	}}
	catalog := &MockCatalog{CourseFunc: func(ctx context.Context, courseID string) (*model.Course, error) {
		return &model.Course{ID: courseID, Title: "Data Structures", Currency: "INR"}, nil
	}}
	resolver := usecase.NewPlanResolver(catalog, installs, d.profiles, logger)
	timeline := usecase.NewTimelineUseCase(resolver, d.orders, installs, nil, nil, logger)
	return usecase.NewReceiptUseCase(d.repo, d.renderer, d.mailer, timeline, d.orders, d.events, logger)
}

func TestReceipt_IssueForSession(t *testing.T) {
	ctx := context.Background()
	settled := now()

	session := &model.CheckoutSession{
		ID: "sess-1", UserID: "user-1", CourseID: "course-1", PlanType: "3 months", InstallmentIndex: intPtr(1),
		Amount: 900, Currency: "INR", State: model.CheckoutSettled, Outcome: model.OutcomeSuccess,
		OrderID: "order_2", PaymentID: "pay_2", SettledAt: &settled,
	}

	t.Run("should render facts from the reconciled timeline", func(t *testing.T) {
		deps := newReceiptDeps(t)
		uc := deps.build(t)

		r, err := uc.IssueForSession(ctx, session)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		f := deps.renderer.Rendered[0]
		if f.CourseTitle != "Data Structures" || f.PayerName != "Asha" || f.PayerEmail != "asha@example.com" {
			t.Errorf("unexpected payer/course facts: %+v", f)
		}
		if f.InstallmentNumber != 2 || f.InstallmentCount != 3 {
			t.Errorf("expected installment 2 of 3, got %d of %d", f.InstallmentNumber, f.InstallmentCount)
		}
		// installments 1 and 2 paid, one locked installment of 900 left
		if f.RemainingAmount != 900 {
			t.Errorf("expected remaining 900, got %d", f.RemainingAmount)
		}
		if f.PaymentID != "pay_2" || !f.PaidAt.Equal(settled) {
			t.Errorf("unexpected payment facts: %+v", f)
		}
		if r.ID == "" || r.ID != f.Number || r.SessionID != "sess-1" {
			t.Errorf("unexpected receipt identity: %+v", r)
		}
		if deps.repo.Count() != 1 || len(deps.mailer.Sent) != 1 {
			t.Errorf("expected stored and mailed receipt, got stored=%d mailed=%d", deps.repo.Count(), len(deps.mailer.Sent))
		}
		if !deps.events.Has(model.EventReceiptIssued) {
			t.Error("expected receipt issued event")
		}
	})

	t.Run("should refuse a session that did not succeed", func(t *testing.T) {
		deps := newReceiptDeps(t)
		partial := *session
		partial.Outcome = model.OutcomePartial
		if _, err := deps.build(t).IssueForSession(ctx, &partial); !errors.Is(err, domain.ErrNotPaid) {
			t.Fatalf("expected ErrNotPaid, got %v", err)
		}
	})

	t.Run("render failure is reported as receipt failure", func(t *testing.T) {
		deps := newReceiptDeps(t)
		deps.renderer.RenderFunc = func(ctx context.Context, facts model.ReceiptFacts) ([]byte, error) {
			return nil, errors.New("boom")
		}
		_, err := deps.build(t).IssueForSession(ctx, session)
		if !errors.Is(err, domain.ErrReceiptFailed) {
			t.Fatalf("expected ErrReceiptFailed, got %v", err)
		}
		if deps.repo.Count() != 0 {
			t.Error("expected nothing stored")
		}
	})

	t.Run("mail failure is cosmetic", func(t *testing.T) {
		deps := newReceiptDeps(t)
		deps.mailer.SendFunc = func(ctx context.Context, r *model.Receipt) error { return errors.New("smtp down") }
		if _, err := deps.build(t).IssueForSession(ctx, session); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestReceipt_Regenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("should regenerate for a paid installment with order reference", func(t *testing.T) {
		deps := newReceiptDeps(t)
		r, err := deps.build(t).Regenerate(ctx, "user-1", "course-1", 0)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if r.Facts.PaymentID != "pay_1" || r.Facts.OrderID != "order_1" || r.Facts.Amount != 900 {
			t.Errorf("unexpected facts: %+v", r.Facts)
		}
	})

	t.Run("should refuse an unpaid installment", func(t *testing.T) {
		deps := newReceiptDeps(t)
		if _, err := deps.build(t).Regenerate(ctx, "user-1", "course-1", 2); !errors.Is(err, domain.ErrNotPaid) {
			t.Fatalf("expected ErrNotPaid, got %v", err)
		}
	})

	t.Run("should report an unknown index as not found", func(t *testing.T) {
		deps := newReceiptDeps(t)
		if _, err := deps.build(t).Regenerate(ctx, "user-1", "course-1", 7); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReceipt_GetScopesByUser(t *testing.T) {
	ctx := context.Background()
	deps := newReceiptDeps(t)
	uc := deps.build(t)

	r, err := uc.Regenerate(ctx, "user-1", "course-1", 0)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if _, err := uc.Get(ctx, "user-1", r.ID); err != nil {
		t.Errorf("expected owner to read the receipt, got %v", err)
	}
	if _, err := uc.Get(ctx, "someone-else", r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
	list, _ := uc.List(ctx, "user-1", "course-1")
	if len(list) != 1 {
		t.Errorf("expected one receipt listed, got %d", len(list))
	}
}
