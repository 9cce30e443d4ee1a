// File: internal/usecase/receipt_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/domain/ports/repository"
	"learnhub-checkout/internal/infra/metrics"
)

// Compile-time checks
var (
	_ ReceiptUseCase = (*receiptUC)(nil)
	_ ReceiptIssuer  = (*receiptUC)(nil)
)

type ReceiptUseCase interface {
	IssueForSession(ctx context.Context, s *model.CheckoutSession) (*model.Receipt, error)
	// Regenerate renders a fresh receipt for an installment already shown as paid.
	Regenerate(ctx context.Context, userID, courseID string, index int) (*model.Receipt, error)
	Get(ctx context.Context, userID, receiptID string) (*model.Receipt, error)
	List(ctx context.Context, userID, courseID string) ([]*model.Receipt, error)
}

type receiptUC struct {
	repo     repository.ReceiptRepository
	renderer adapter.ReceiptRenderer
	mailer   adapter.ReceiptMailer
	timeline TimelineUseCase
	orders   adapter.OrderService
	events   adapter.EventPublisher
	log      *zerolog.Logger
	now      func() time.Time
}

// NewReceiptUseCase builds the receipt generator. mailer may be nil.
func NewReceiptUseCase(repo repository.ReceiptRepository, renderer adapter.ReceiptRenderer, mailer adapter.ReceiptMailer, timeline TimelineUseCase, orders adapter.OrderService, events adapter.EventPublisher, logger *zerolog.Logger) *receiptUC {
	l := logger.With().Str("component", "receipts").Logger()
	return &receiptUC{repo: repo, renderer: renderer, mailer: mailer, timeline: timeline, orders: orders, events: events, log: &l, now: time.Now}
}

func (u *receiptUC) IssueForSession(ctx context.Context, s *model.CheckoutSession) (*model.Receipt, error) {
	if s == nil || s.Outcome != model.OutcomeSuccess {
		return nil, fmt.Errorf("%w: session is not a successful payment", domain.ErrNotPaid)
	}
	view, err := u.timeline.Load(ctx, s.CourseID, s.UserID, s.PlanType)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh timeline: %v", domain.ErrReceiptFailed, err)
	}

	// the backend may lag behind the gateway; count this payment as made
	tl := view.Timeline.Clone()
	markPaid(tl, s.InstallmentIndex, u.now())

	paidAt := u.now()
	if s.SettledAt != nil {
		paidAt = *s.SettledAt
	}
	facts := u.baseFacts(view, tl)
	facts.PaymentID = s.PaymentID
	facts.OrderID = s.OrderID
	facts.Amount = s.Amount
	facts.Currency = s.Currency
	facts.PaidAt = paidAt
	facts.InstallmentNumber = s.InstallmentNumber()
	facts.PlanLabel = planLabel(s.PlanType, s.InstallmentIndex)

	return u.issue(ctx, s.UserID, s.ID, facts)
}

func (u *receiptUC) Regenerate(ctx context.Context, userID, courseID string, index int) (*model.Receipt, error) {
	view, err := u.timeline.Load(ctx, courseID, userID, "")
	if err != nil {
		return nil, err
	}
	entry, ok := view.Timeline.Entry(index)
	if !ok {
		return nil, fmt.Errorf("installment %d: %w", index, domain.ErrNotFound)
	}
	if !entry.IsPaid {
		return nil, fmt.Errorf("installment %d: %w", index, domain.ErrNotPaid)
	}

	facts := u.baseFacts(view, view.Timeline)
	facts.Amount = entry.Amount
	facts.Currency = currencyOf(view.Course)
	facts.InstallmentNumber = entry.Number
	idx := index
	facts.PlanLabel = planLabel(view.Timeline.PlanType, &idx)
	if entry.PaymentDate != nil {
		facts.PaidAt = *entry.PaymentDate
	}

	orders, err := u.orders.PaidOrders(ctx, courseID, userID)
	if err != nil {
		u.log.Warn().Err(err).Str("course_id", courseID).Msg("orders unavailable; receipt without payment reference")
	}
	for _, o := range orders {
		if o.InstallmentDetails.InstallmentNumber == entry.Number && o.Paid() {
			facts.PaymentID = o.PaymentID
			facts.OrderID = o.ID
			if facts.PaidAt.IsZero() && o.PaidAt != nil {
				facts.PaidAt = *o.PaidAt
			}
			break
		}
	}
	if facts.PaidAt.IsZero() {
		facts.PaidAt = u.now()
	}
	return u.issue(ctx, userID, "", facts)
}

func (u *receiptUC) Get(ctx context.Context, userID, receiptID string) (*model.Receipt, error) {
	r, err := u.repo.FindByID(ctx, repository.NoTX, receiptID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (u *receiptUC) List(ctx context.Context, userID, courseID string) ([]*model.Receipt, error) {
	return u.repo.ListByUser(ctx, repository.NoTX, userID, courseID)
}

func (u *receiptUC) baseFacts(view *InstallmentView, tl *model.Timeline) model.ReceiptFacts {
	f := model.ReceiptFacts{
		Number:           newReceiptNumber(u.now()),
		CourseID:         tl.CourseID,
		InstallmentCount: len(tl.Entries),
		RemainingAmount:  tl.RemainingAmount,
	}
	if view.Course != nil {
		f.CourseID = view.Course.ID
		f.CourseTitle = view.Course.Title
	}
	if f.CourseTitle == "" {
		f.CourseTitle = f.CourseID
	}
	if view.Profile != nil {
		f.PayerName = view.Profile.Name
		f.PayerEmail = view.Profile.Email
	}
	return f
}

func (u *receiptUC) issue(ctx context.Context, userID, sessionID string, facts model.ReceiptFacts) (*model.Receipt, error) {
	log := u.log.With().Str("user_id", userID).Str("receipt_number", facts.Number).Logger()

	doc, err := u.renderer.Render(ctx, facts)
	if err != nil {
		metrics.IncReceipt("render", "error")
		log.Error().Err(err).Msg("render receipt")
		return nil, fmt.Errorf("%w: render: %v", domain.ErrReceiptFailed, err)
	}
	metrics.IncReceipt("render", "ok")

	r := &model.Receipt{
		ID:          facts.Number,
		SessionID:   sessionID,
		UserID:      userID,
		Facts:       facts,
		ContentType: u.renderer.ContentType(),
		Document:    doc,
		CreatedAt:   u.now(),
	}
	if err := u.repo.Save(ctx, repository.NoTX, r); err != nil {
		metrics.IncReceipt("store", "error")
		log.Error().Err(err).Msg("store receipt")
		return nil, fmt.Errorf("%w: store: %v", domain.ErrReceiptFailed, err)
	}
	metrics.IncReceipt("store", "ok")

	if u.mailer != nil && facts.PayerEmail != "" {
		if err := u.mailer.Send(ctx, r); err != nil {
			metrics.IncReceipt("mail", "error")
			log.Warn().Err(err).Msg("receipt email not sent")
		} else {
			metrics.IncReceipt("mail", "ok")
		}
	}

	if u.events != nil {
		u.events.Publish(ctx, model.ReceiptIssued{
			ReceiptID: r.ID,
			SessionID: sessionID,
			UserID:    userID,
			CourseID:  facts.CourseID,
			Number:    facts.Number,
			At:        r.CreatedAt,
		})
	}
	log.Info().Str("session_id", sessionID).Msg("receipt issued")
	return r, nil
}

func newReceiptNumber(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.Monotonic(rand.Reader, 0)).String()
}

func planLabel(planType string, index *int) string {
	if index == nil {
		return "Full payment"
	}
	if planType == "" {
		return fmt.Sprintf("Installment %d", *index+1)
	}
	return fmt.Sprintf("%s, installment %d", planType, *index+1)
}

func currencyOf(c *model.Course) string {
	if c == nil || c.Currency == "" {
		return "INR"
	}
	return c.Currency
}
