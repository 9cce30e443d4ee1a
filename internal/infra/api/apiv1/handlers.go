package apiv1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/infra/logging"
	"learnhub-checkout/internal/infra/metrics"
	"learnhub-checkout/internal/infra/redis"
	"learnhub-checkout/internal/usecase"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.resolver.Plans(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if plans == nil {
		plans = []*model.InstallmentPlan{}
	}
	writeJSON(w, http.StatusOK, listResponse[*model.InstallmentPlan]{Items: plans})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.resolver.Subscriptions(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	writeJSON(w, http.StatusOK, listResponse[model.Subscription]{Items: subs})
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	ctx := logging.WithCourseID(r.Context(), courseID)
	view, err := s.timeline.Load(ctx, courseID, UserID(ctx), r.URL.Query().Get("planType"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type checkoutBody struct {
	CourseID         string `json:"courseId"`
	PlanType         string `json:"planType"`
	InstallmentIndex *int   `json:"installmentIndex"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)

	var body checkoutBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.CourseID == "" {
		writeError(w, http.StatusBadRequest, "courseId is required")
		return
	}

	if s.limiter != nil && s.rate.Limit > 0 {
		ok, err := s.limiter.Allow(ctx, redis.UserActionKey(userID, "checkout"), s.rate.Limit, s.rate.Window)
		if err != nil {
			// fail open on limiter errors
			l := logging.With(ctx, s.log)
			l.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncRateLimitTriggered()
			s.fail(w, r, domain.ErrRateLimited)
			return
		}
	}

	ctx = logging.WithCourseID(ctx, body.CourseID)
	view, err := s.timeline.Load(ctx, body.CourseID, userID, body.PlanType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := checkoutRequest(userID, body, view)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.checkout.Begin(ctx, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if sess.IsSettled() {
		// order creation failed; the session carries the retry message
		status = http.StatusOK
	}
	s.writeSession(w, r, status, sess)
}

// checkoutRequest fills plan type and amount from the fresh view. A chosen
// installment pays its locked amount; no installment pays what is left, or
// the course price when the learner has no plan.
func checkoutRequest(userID string, body checkoutBody, view *usecase.InstallmentView) (usecase.CheckoutRequest, error) {
	req := usecase.CheckoutRequest{
		UserID:           userID,
		CourseID:         body.CourseID,
		PlanType:         body.PlanType,
		InstallmentIndex: body.InstallmentIndex,
		Amount:           body.Amount,
		Currency:         body.Currency,
	}
	if view.Plan != nil && req.PlanType == "" {
		req.PlanType = view.Plan.PlanType
	}
	if req.Currency == "" && view.Course != nil {
		req.Currency = view.Course.Currency
	}

	tl := view.Timeline
	if tl.FullyPaid() {
		return req, domain.ErrFullyPaid
	}
	if body.InstallmentIndex != nil {
		if tl == nil {
			return req, fmt.Errorf("%w: course has no installment plan", domain.ErrValidation)
		}
		entry, ok := tl.Entry(*body.InstallmentIndex)
		if !ok {
			return req, fmt.Errorf("%w: unknown installment %d", domain.ErrValidation, *body.InstallmentIndex)
		}
		if entry.IsPaid {
			return req, fmt.Errorf("%w: installment %d is already paid", domain.ErrValidation, entry.Number)
		}
		return priced(req, entry.Amount)
	}
	switch {
	case tl != nil && len(tl.Entries) > 0:
		return priced(req, tl.RemainingAmount)
	case view.Course != nil && view.Course.Price > 0:
		return priced(req, view.Course.Price)
	}
	return req, nil
}

// priced pins the charge to the server-side amount. A client amount is only
// accepted when it matches.
func priced(req usecase.CheckoutRequest, amount int64) (usecase.CheckoutRequest, error) {
	if req.Amount != 0 && req.Amount != amount {
		return req, fmt.Errorf("%w: amount %d does not match amount due %d", domain.ErrValidation, req.Amount, amount)
	}
	req.Amount = amount
	return req, nil
}

func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request) (*model.CheckoutSession, bool) {
	sess, err := s.checkout.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	if sess.UserID != UserID(r.Context()) {
		s.fail(w, r, domain.ErrNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	s.writeSession(w, r, http.StatusOK, sess)
}

func (s *Server) handleGatewayResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	var res model.GatewayResult
	if err := decodeJSON(w, r, &res); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if res.Status != model.GatewaySuccess && res.Status != model.GatewayDismissed {
		writeError(w, http.StatusBadRequest, "status must be success or dismissed")
		return
	}

	ctx := logging.WithSessID(r.Context(), sess.ID)
	out, err := s.checkout.Complete(ctx, sess.ID, res)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, out)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	list, err := s.receipts.List(r.Context(), UserID(r.Context()), r.URL.Query().Get("courseId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*model.Receipt{}
	}
	writeJSON(w, http.StatusOK, listResponse[*model.Receipt]{Items: list})
}

func (s *Server) handleDownloadReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := s.receipts.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "receiptID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ct := rc.ContentType
	if ct == "" {
		ct = "application/pdf"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rc.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(rc.Document)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rc.Document)
}

func (s *Server) handleRegenerateReceipt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}
	courseID := chi.URLParam(r, "courseID")
	ctx := logging.WithCourseID(r.Context(), courseID)
	rc, err := s.receipts.Regenerate(ctx, UserID(ctx), courseID, index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rc)
}
