// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/domain/ports/repository"
	ucport "learnhub-checkout/internal/domain/ports/usecase"
	"learnhub-checkout/internal/infra/logging"
	"learnhub-checkout/internal/infra/metrics"
)

// Compile-time checks
var (
	_ CheckoutUseCase        = (*checkoutUC)(nil)
	_ ucport.CheckoutManager = (*checkoutUC)(nil)
)

const sessionLockTTL = 30 * time.Second

const (
	MsgPaymentFailed    = "payment failed, please retry"
	MsgAccessProcessing = "access is being processed"
	MsgPaymentCancelled = "payment cancelled"
	MsgPaymentComplete  = "payment successful"
)

// CheckoutRequest starts one pay attempt. A nil InstallmentIndex pays the
// full course amount.
type CheckoutRequest struct {
	UserID           string `json:"-" validate:"required"`
	CourseID         string `json:"courseId" validate:"required"`
	PlanType         string `json:"planType"`
	InstallmentIndex *int   `json:"installmentIndex" validate:"omitempty,min=0"`
	Amount           int64  `json:"amount" validate:"gt=0"`
	Currency         string `json:"currency" validate:"omitempty,len=3"`
}

// CheckoutOptions carries gateway display data and timing knobs.
type CheckoutOptions struct {
	KeyID          string
	CompanyName    string
	Currency       string
	LockTTL        time.Duration
	ReconcileDelay time.Duration
}

// ReceiptIssuer renders a receipt for a successfully settled session.
type ReceiptIssuer interface {
	IssueForSession(ctx context.Context, s *model.CheckoutSession) (*model.Receipt, error)
}

type CheckoutUseCase interface {
	ucport.CheckoutManager

	// Begin validates the request, opens a gateway order and parks the
	// session in awaitingGatewayResult.
	Begin(ctx context.Context, req CheckoutRequest) (*model.CheckoutSession, error)
	// Complete consumes the widget result. Once verification starts the
	// session always ends settled, regardless of ctx. Concurrent calls for
	// one session verify at most once.
	Complete(ctx context.Context, sessionID string, res model.GatewayResult) (*model.CheckoutSession, error)
	Get(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	// Run chains Begin, the widget and Complete/Cancel for callers that can block.
	Run(ctx context.Context, req CheckoutRequest, widget adapter.GatewayWidget) (*model.CheckoutSession, error)
}

type checkoutUC struct {
	sessions repository.CheckoutSessionRepository
	ledger   repository.CheckoutLedgerRepository
	orders   adapter.OrderService
	profiles adapter.ProfileService
	poller   AccessPoller
	timeline TimelineUseCase
	views    *ViewStore
	events   adapter.EventPublisher
	locker   adapter.Locker
	jobs     adapter.TaskQueue
	receipts ReceiptIssuer
	opts     CheckoutOptions
	validate *validator.Validate
	log      *zerolog.Logger
	now      func() time.Time
}

func NewCheckoutUseCase(
	sessions repository.CheckoutSessionRepository,
	ledger repository.CheckoutLedgerRepository,
	orders adapter.OrderService,
	profiles adapter.ProfileService,
	poller AccessPoller,
	timeline TimelineUseCase,
	views *ViewStore,
	events adapter.EventPublisher,
	locker adapter.Locker,
	jobs adapter.TaskQueue,
	receipts ReceiptIssuer,
	opts CheckoutOptions,
	logger *zerolog.Logger,
) *checkoutUC {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	l := logger.With().Str("component", "checkout").Logger()
	return &checkoutUC{
		sessions: sessions,
		ledger:   ledger,
		orders:   orders,
		profiles: profiles,
		poller:   poller,
		timeline: timeline,
		views:    views,
		events:   events,
		locker:   locker,
		jobs:     jobs,
		receipts: receipts,
		opts:     opts,
		validate: validator.New(),
		log:      &l,
		now:      time.Now,
	}
}

func (u *checkoutUC) Begin(ctx context.Context, req CheckoutRequest) (*model.CheckoutSession, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.Begin")()

	if err := u.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, describeValidation(err))
	}

	now := u.now()
	s := &model.CheckoutSession{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		CourseID:         req.CourseID,
		PlanType:         req.PlanType,
		InstallmentIndex: req.InstallmentIndex,
		Amount:           req.Amount,
		Currency:         req.Currency,
		State:            model.CheckoutIdle,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if s.Currency == "" {
		s.Currency = u.opts.Currency
	}
	log := u.sessionLogger(s)

	token, err := u.locker.TryLock(ctx, lockKey(s), u.opts.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			log.Info().Msg("checkout already in progress")
			return nil, domain.ErrLockHeld
		}
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	s.LockToken = token
	// the lock outlives the request; releasing it must not depend on ctx
	bg := context.WithoutCancel(ctx)

	if err := u.transition(s, model.CheckoutCreatingOrder); err != nil {
		u.unlock(bg, s)
		return nil, err
	}
	if err := u.persist(ctx, s); err != nil {
		u.unlock(bg, s)
		return nil, err
	}

	var prefill *model.UserProfile
	if p, err := u.profiles.Profile(ctx, s.UserID); err != nil {
		log.Debug().Err(err).Msg("profile unavailable for prefill")
	} else {
		prefill = p
	}

	metrics.IncPayment("initiated")
	handle, err := u.orders.CreateOrder(ctx, model.OrderRequest{
		CourseID:          s.CourseID,
		UserID:            s.UserID,
		Amount:            s.Amount,
		Currency:          s.Currency,
		PlanType:          s.PlanType,
		InstallmentNumber: s.InstallmentNumber(),
		Receipt:           s.ID,
	})
	if err != nil || handle == nil || handle.OrderID == "" {
		if err == nil {
			err = fmt.Errorf("empty order handle: %w", domain.ErrBackend)
		}
		log.Error().Err(err).Msg("create order failed")
		metrics.IncPayment("failed")
		s.FailureReason = err.Error()
		if serr := u.settle(bg, s, model.OutcomeFailed, MsgPaymentFailed); serr != nil {
			return s, serr
		}
		return s, nil
	}

	if handle.KeyID == "" {
		handle.KeyID = u.opts.KeyID
	}
	if handle.Name == "" {
		handle.Name = u.opts.CompanyName
	}
	if handle.Amount == 0 {
		handle.Amount = s.Amount
	}
	if handle.Currency == "" {
		handle.Currency = s.Currency
	}
	if prefill != nil {
		handle.Prefill.Name = prefill.Name
		handle.Prefill.Email = prefill.Email
		handle.Prefill.Contact = prefill.Phone
	}
	s.Handle = handle
	s.OrderID = handle.OrderID

	if err := u.transition(s, model.CheckoutAwaitingGateway); err != nil {
		u.unlock(bg, s)
		return nil, err
	}
	if err := u.persist(bg, s); err != nil {
		u.unlock(bg, s)
		return nil, err
	}
	log.Info().Str("order_id", s.OrderID).Int64("amount", s.Amount).Msg("order created; awaiting gateway")
	return s, nil
}

func (u *checkoutUC) Cancel(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	release, err := u.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.State != model.CheckoutAwaitingGateway {
		return s, fmt.Errorf("cancel from %s: %w", s.State, domain.ErrInvalidTransition)
	}
	if err := u.transition(s, model.CheckoutIdle); err != nil {
		return s, err
	}
	s.Cancelled = true
	s.Message = MsgPaymentCancelled
	bg := context.WithoutCancel(ctx)
	if err := u.persist(bg, s); err != nil {
		return s, err
	}
	u.unlock(bg, s)
	metrics.IncCheckoutOutcome("cancelled")
	u.sessionLogger(s).Info().Msg("checkout cancelled by user")
	return s, nil
}

// Abandon settles a session stuck in creatingOrder as failed. No order
// handle reached the client, so nothing can have been charged.
func (u *checkoutUC) Abandon(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	release, err := u.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.State != model.CheckoutCreatingOrder {
		return s, fmt.Errorf("abandon from %s: %w", s.State, domain.ErrInvalidTransition)
	}
	if s.FailureReason == "" {
		s.FailureReason = "order creation abandoned"
	}
	metrics.IncPayment("failed")
	if err := u.settle(context.WithoutCancel(ctx), s, model.OutcomeFailed, MsgPaymentFailed); err != nil {
		return s, err
	}
	return s, nil
}

func (u *checkoutUC) Complete(ctx context.Context, sessionID string, res model.GatewayResult) (*model.CheckoutSession, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.Complete")()

	if res.Status == model.GatewayDismissed {
		return u.Cancel(ctx, sessionID)
	}
	s, claimed, err := u.claimVerification(ctx, sessionID, res)
	if err != nil || !claimed {
		return s, err
	}

	// A charge may have happened: nothing below may be abandoned halfway.
	ctx = context.WithoutCancel(ctx)
	started := u.now()
	log := u.sessionLogger(s)

	verr := u.orders.VerifyPayment(ctx, model.VerifyRequest{
		OrderID:           s.OrderID,
		PaymentID:         s.PaymentID,
		Signature:         s.Signature,
		CourseID:          s.CourseID,
		UserID:            s.UserID,
		PlanType:          s.PlanType,
		InstallmentNumber: s.InstallmentNumber(),
		Amount:            s.Amount,
	})
	if verr != nil {
		log.Warn().Err(verr).Str("payment_id", s.PaymentID).Msg("verification failed after gateway success")
		s.FailureReason = verr.Error()
		err := u.settlePartial(ctx, s)
		metrics.ObserveCheckoutDuration(string(s.Outcome), u.now().Sub(started).Seconds())
		return s, err
	}
	metrics.IncPayment("verified")
	metrics.AddPaymentRevenue(s.Currency, s.Amount)

	if err := u.transition(s, model.CheckoutPollingAccess); err != nil {
		return s, err
	}
	u.persistBestEffort(ctx, s)

	err = u.pollAndSettle(ctx, s)
	metrics.ObserveCheckoutDuration(string(s.Outcome), u.now().Sub(started).Seconds())
	return s, err
}

// Resume settles a session whose process died after the gateway reported
// success. It never produces a failed outcome.
func (u *checkoutUC) Resume(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	ctx = context.WithoutCancel(ctx)
	s, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch s.State {
	case model.CheckoutVerifyingSignature:
		if err := u.transition(s, model.CheckoutPollingAccess); err != nil {
			return s, err
		}
		u.persistBestEffort(ctx, s)
	case model.CheckoutPollingAccess:
	default:
		return s, fmt.Errorf("resume from %s: %w", s.State, domain.ErrInvalidTransition)
	}
	u.sessionLogger(s).Info().Msg("resuming stale checkout")
	return s, u.pollAndSettle(ctx, s)
}

func (u *checkoutUC) StaleSessions(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error) {
	return u.ledger.ListStale(ctx, repository.NoTX, states, olderThan, 100)
}

func (u *checkoutUC) Get(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	return u.load(ctx, sessionID)
}

func (u *checkoutUC) Run(ctx context.Context, req CheckoutRequest, widget adapter.GatewayWidget) (*model.CheckoutSession, error) {
	s, err := u.Begin(ctx, req)
	if err != nil || s.IsSettled() {
		return s, err
	}
	res, err := widget.Open(ctx, s.ID, *s.Handle)
	if err != nil {
		u.sessionLogger(s).Warn().Err(err).Msg("gateway widget closed without result")
		return u.Cancel(context.WithoutCancel(ctx), s.ID)
	}
	if res.Status == model.GatewayDismissed {
		return u.Cancel(ctx, s.ID)
	}
	return u.Complete(ctx, s.ID, res)
}

// ---------------------------------------------------------------------------
// settlement
// ---------------------------------------------------------------------------

// claimVerification moves the session from awaitingGatewayResult to
// verifyingSignature under the session lock. Only the caller that gets
// claimed=true goes on to verify.
func (u *checkoutUC) claimVerification(ctx context.Context, sessionID string, res model.GatewayResult) (*model.CheckoutSession, bool, error) {
	release, err := u.lockSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	defer release()

	s, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if s.State != model.CheckoutAwaitingGateway && s.PaymentID != "" && s.PaymentID == res.PaymentID {
		// duplicate callback from the widget
		return s, false, nil
	}
	if s.State != model.CheckoutAwaitingGateway {
		return s, false, fmt.Errorf("complete from %s: %w", s.State, domain.ErrInvalidTransition)
	}
	if res.PaymentID == "" || res.OrderID == "" || res.Signature == "" {
		return s, false, fmt.Errorf("%w: gateway result is missing payment id, order id or signature", domain.ErrValidation)
	}
	if res.OrderID != s.OrderID {
		return s, false, domain.ErrGatewayMismatch
	}

	s.PaymentID = res.PaymentID
	s.Signature = res.Signature
	if err := u.transition(s, model.CheckoutVerifyingSignature); err != nil {
		return s, false, err
	}
	if err := u.persist(context.WithoutCancel(ctx), s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (u *checkoutUC) pollAndSettle(ctx context.Context, s *model.CheckoutSession) error {
	out := u.poller.Poll(ctx, s.CourseID, s.UserID)
	s.PollAttempts = out.Attempts
	if out.Result != PollConfirmed {
		if out.Err != nil {
			s.FailureReason = out.Err.Error()
		}
		u.sessionLogger(s).Warn().Str("poll_result", string(out.Result)).Int("attempts", out.Attempts).
			Msg("access not confirmed; settling as partial")
		return u.settlePartial(ctx, s)
	}

	if err := u.settle(ctx, s, model.OutcomeSuccess, MsgPaymentComplete); err != nil {
		return err
	}
	u.afterSuccess(ctx, s)
	return nil
}

func (u *checkoutUC) settlePartial(ctx context.Context, s *model.CheckoutSession) error {
	if err := u.settle(ctx, s, model.OutcomePartial, MsgAccessProcessing); err != nil {
		return err
	}
	u.publish(ctx, model.AccessPending{
		SessionID: s.ID,
		UserID:    s.UserID,
		CourseID:  s.CourseID,
		PaymentID: s.PaymentID,
		Reason:    s.FailureReason,
		At:        u.now(),
	})
	return nil
}

func (u *checkoutUC) settle(ctx context.Context, s *model.CheckoutSession, outcome model.CheckoutOutcome, msg string) error {
	if err := u.transition(s, model.CheckoutSettled); err != nil {
		return err
	}
	at := u.now()
	s.Outcome = outcome
	s.Message = msg
	s.SettledAt = &at
	metrics.IncCheckoutOutcome(string(outcome))
	u.persistBestEffort(ctx, s)
	u.unlock(ctx, s)
	u.sessionLogger(s).Info().Str("outcome", string(outcome)).Msg("checkout settled")
	return nil
}

// afterSuccess updates the view optimistically, schedules the authoritative
// refresh, publishes events and queues the receipt. None of it can change
// the outcome.
func (u *checkoutUC) afterSuccess(ctx context.Context, s *model.CheckoutSession) {
	now := u.now()
	if u.views != nil {
		u.views.ApplyOptimistic(s.UserID, s.CourseID, s.InstallmentIndex, now)
	}
	if u.timeline != nil {
		userID, courseID, planType := s.UserID, s.CourseID, s.PlanType
		time.AfterFunc(u.opts.ReconcileDelay, func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if _, err := u.timeline.Load(rctx, courseID, userID, planType); err != nil {
				u.log.Warn().Err(err).Str("course_id", courseID).Msg("post-payment refresh failed")
			}
		})
	}

	if s.InstallmentNumber() <= 1 {
		u.publish(ctx, model.EnrollmentStarted{UserID: s.UserID, CourseID: s.CourseID, PlanType: s.PlanType, At: now})
	}
	u.publish(ctx, model.EnrollmentCompleted{
		SessionID:         s.ID,
		UserID:            s.UserID,
		CourseID:          s.CourseID,
		InstallmentNumber: s.InstallmentNumber(),
		Amount:            s.Amount,
		Currency:          s.Currency,
		PaymentID:         s.PaymentID,
		At:                now,
	})

	if u.jobs == nil || u.receipts == nil {
		return
	}
	snapshot := *s
	err := u.jobs.Submit(func(jctx context.Context) error {
		r, err := u.receipts.IssueForSession(jctx, &snapshot)
		if err != nil {
			return err
		}
		cur, err := u.load(jctx, snapshot.ID)
		if err != nil {
			return err
		}
		cur.ReceiptID = r.ID
		return u.persist(jctx, cur)
	})
	if err != nil {
		u.sessionLogger(s).Warn().Err(err).Msg("receipt job not queued")
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (u *checkoutUC) transition(s *model.CheckoutSession, to model.CheckoutState) error {
	if !model.CanTransition(s.State, to) {
		return fmt.Errorf("%s -> %s: %w", s.State, to, domain.ErrInvalidTransition)
	}
	metrics.IncCheckoutTransition(string(s.State), string(to))
	s.State = to
	s.UpdatedAt = u.now()
	return nil
}

func (u *checkoutUC) persist(ctx context.Context, s *model.CheckoutSession) error {
	if err := u.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := u.ledger.Record(ctx, repository.NoTX, s); err != nil {
		u.sessionLogger(s).Warn().Err(err).Msg("ledger record failed")
	}
	return nil
}

// persistBestEffort is used past the point of no return.
func (u *checkoutUC) persistBestEffort(ctx context.Context, s *model.CheckoutSession) {
	if err := u.persist(ctx, s); err != nil {
		u.sessionLogger(s).Error().Err(err).Str("state", string(s.State)).Msg("session not persisted")
	}
}

func (u *checkoutUC) load(ctx context.Context, id string) (*model.CheckoutSession, error) {
	if id == "" {
		return nil, fmt.Errorf("session id: %w", domain.ErrInvalidArgument)
	}
	s, err := u.sessions.FindByID(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s, err = u.ledger.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// lockSession serializes state changes on one session across instances.
func (u *checkoutUC) lockSession(ctx context.Context, id string) (release func(), err error) {
	if id == "" {
		return nil, fmt.Errorf("session id: %w", domain.ErrInvalidArgument)
	}
	key := sessionLockKey(id)
	token, err := u.locker.TryLock(ctx, key, sessionLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil, domain.ErrLockHeld
		}
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	return func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			u.log.Debug().Err(err).Str("session_id", id).Msg("session unlock failed; lock will expire")
		}
	}, nil
}

func (u *checkoutUC) unlock(ctx context.Context, s *model.CheckoutSession) {
	if s.LockToken == "" {
		return
	}
	if err := u.locker.Unlock(ctx, lockKey(s), s.LockToken); err != nil {
		u.sessionLogger(s).Debug().Err(err).Msg("unlock failed; lock will expire")
	}
	s.LockToken = ""
}

func (u *checkoutUC) publish(ctx context.Context, e model.Event) {
	if u.events != nil {
		u.events.Publish(ctx, e)
	}
}

func (u *checkoutUC) sessionLogger(s *model.CheckoutSession) *zerolog.Logger {
	l := u.log.With().Str("session_id", s.ID).Str("user_id", s.UserID).Str("course_id", s.CourseID).Logger()
	return &l
}

func lockKey(s *model.CheckoutSession) string {
	return fmt.Sprintf("checkout:lock:%s:%s:%d", s.UserID, s.CourseID, s.InstallmentNumber())
}

func sessionLockKey(id string) string {
	return "checkout:session-lock:" + id
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	return msg
}
