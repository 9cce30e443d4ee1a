// File: internal/usecase/timeline.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"
	"golang.org/x/sync/errgroup"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/logging"
)

// BuildTimeline merges a plan template, the user's enrollment, the order
// ledger and the legacy payment history into one schedule.
//
// Enrolled users get one entry per locked installment with the locked
// amount; everyone else gets the plan template. Paid status is decided by the
// order record when one exists for the installment, then by the enrollment
// flag, then by legacy history.
func BuildTimeline(plan *model.InstallmentPlan, enrollment *model.UserEnrollment, orders []model.Order, history []model.PaymentRecord, now time.Time) *model.Timeline {
	t := &model.Timeline{Enrolled: enrollment.IsEnrolled()}
	if plan != nil {
		t.CourseID = plan.CourseID
		t.PlanType = plan.PlanType
	}
	if t.Enrolled {
		t.CourseID = enrollment.CourseID
		t.PlanType = enrollment.PlanType
	}

	byOrder := indexOrders(orders)
	byHistory := make(map[int]model.PaymentRecord, len(history))
	for _, h := range history {
		if prev, ok := byHistory[h.InstallmentNumber]; ok && prev.IsPaid {
			continue
		}
		byHistory[h.InstallmentNumber] = h
	}

	anchor := now
	if t.Enrolled && enrollment.EnrolledAt != nil {
		anchor = *enrollment.EnrolledAt
	}
	due := newDueCalculator(plan, anchor)

	for i, row := range scheduleRows(plan, enrollment) {
		e := model.TimelineEntry{
			Index:      i,
			Number:     row.number,
			Amount:     row.amount,
			PaidSource: model.PaidByNone,
		}

		locked, hasLocked := enrollment.Locked(row.number)
		order, hasOrder := byOrder[row.number]
		hist, hasHist := byHistory[row.number]

		switch {
		case hasOrder:
			e.IsPaid = order.Paid()
			e.PaidSource = model.PaidByOrder
		case hasLocked:
			e.IsPaid = locked.IsPaid
			e.PaidSource = model.PaidByEnrollment
		case hasHist:
			e.IsPaid = hist.IsPaid
			e.PaidSource = model.PaidByHistory
		}

		if e.IsPaid {
			switch {
			case hasLocked && locked.PaidDate != nil:
				e.PaymentDate = locked.PaidDate
			case hasOrder && order.PaidAt != nil:
				e.PaymentDate = order.PaidAt
			case hasHist && hist.PaidDate != nil:
				e.PaymentDate = hist.PaidDate
			}
		}

		switch {
		case hasLocked && locked.DueDate != nil:
			e.DueDate = locked.DueDate
		default:
			e.DueDate = due.forNumber(row.number)
		}

		t.Entries = append(t.Entries, e)
	}

	t.Recompute()
	return t
}

type scheduleRow struct {
	number int
	amount int64
}

func scheduleRows(plan *model.InstallmentPlan, enrollment *model.UserEnrollment) []scheduleRow {
	var rows []scheduleRow
	if enrollment.IsEnrolled() {
		for _, in := range enrollment.Installments {
			rows = append(rows, scheduleRow{number: in.InstallmentNumber, amount: in.Amount})
		}
	} else if plan != nil {
		for _, in := range plan.Installments {
			rows = append(rows, scheduleRow{number: in.Number, amount: in.Amount})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].number < rows[j].number })
	return rows
}

// indexOrders keys orders by installment number; a paid order beats unpaid
// attempts for the same installment.
func indexOrders(orders []model.Order) map[int]model.Order {
	out := make(map[int]model.Order, len(orders))
	for _, o := range orders {
		n := o.InstallmentDetails.InstallmentNumber
		if prev, ok := out[n]; ok && prev.Paid() {
			continue
		}
		out[n] = o
	}
	return out
}

type dueCalculator struct {
	template map[int]model.Installment
	anchor   time.Time
	rule     *rrule.RRule
}

func newDueCalculator(plan *model.InstallmentPlan, anchor time.Time) *dueCalculator {
	d := &dueCalculator{template: map[int]model.Installment{}, anchor: anchor}
	if plan == nil {
		return d
	}
	for _, in := range plan.Installments {
		d.template[in.Number] = in
	}
	if plan.Recurrence != "" {
		if r, err := rrule.StrToRRule(plan.Recurrence); err == nil {
			r.DTStart(anchor)
			d.rule = r
		}
	}
	return d
}

// forNumber resolves a due date from the template's fixed date, then its
// offset from the anchor, then the plan recurrence.
func (d *dueCalculator) forNumber(number int) *time.Time {
	if in, ok := d.template[number]; ok {
		if in.DueDate != nil {
			return in.DueDate
		}
		if in.DueOffsetDays > 0 {
			t := d.anchor.AddDate(0, 0, in.DueOffsetDays)
			return &t
		}
	}
	if d.rule == nil || number < 1 {
		return nil
	}
	next := d.rule.Iterator()
	for i := 1; ; i++ {
		v, ok := next()
		if !ok {
			return nil
		}
		if i == number {
			return &v
		}
	}
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// Compile-time check
var _ TimelineUseCase = (*timelineUC)(nil)

// InstallmentView is what the installments screen is rendered from.
type InstallmentView struct {
	Course    *model.Course            `json:"course"`
	Plans     []*model.InstallmentPlan `json:"plans"`
	Plan      *model.InstallmentPlan   `json:"plan"`
	Source    ResolutionSource         `json:"resolvedBy"`
	Timeline  *model.Timeline          `json:"timeline"`
	State     ViewState                `json:"viewState"`
	Profile   *model.UserProfile       `json:"-"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

type TimelineUseCase interface {
	// Load resolves the plan and builds the timeline from fresh backend data.
	// A payment settled moments ago that the backend does not show yet is
	// kept visible and the view is tagged ViewOptimisticPending.
	Load(ctx context.Context, courseID, userID, planTypeHint string) (*InstallmentView, error)
}

type timelineUC struct {
	resolver PlanResolver
	orders   adapter.OrderService
	history  adapter.InstallmentService
	views    *ViewStore
	events   adapter.EventPublisher
	log      *zerolog.Logger
	now      func() time.Time
}

func NewTimelineUseCase(resolver PlanResolver, orders adapter.OrderService, history adapter.InstallmentService, views *ViewStore, events adapter.EventPublisher, logger *zerolog.Logger) *timelineUC {
	l := logger.With().Str("component", "timeline").Logger()
	return &timelineUC{resolver: resolver, orders: orders, history: history, views: views, events: events, log: &l, now: time.Now}
}

func (u *timelineUC) Load(ctx context.Context, courseID, userID, planTypeHint string) (*InstallmentView, error) {
	defer logging.TraceDuration(u.log, "TimelineUC.Load")()

	var (
		res     *PlanResolution
		orders  []model.Order
		history []model.PaymentRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := u.resolver.Resolve(gctx, courseID, userID, planTypeHint)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if userID != "" {
		g.Go(func() error {
			o, err := u.orders.PaidOrders(gctx, courseID, userID)
			if err != nil {
				return fmt.Errorf("load orders: %w", err)
			}
			orders = o
			return nil
		})
		g.Go(func() error {
			h, err := u.history.History(gctx, courseID, userID)
			if err != nil {
				// legacy endpoint; the order ledger and enrollment are enough without it
				u.log.Warn().Err(err).Str("course_id", courseID).Msg("payment history unavailable")
				return nil
			}
			history = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := u.now()
	tl := BuildTimeline(res.Plan, res.Enrollment, orders, history, now)
	tl.CourseID = courseID
	tl.UserID = userID

	view := &InstallmentView{
		Course:    res.Course,
		Plans:     res.Plans,
		Plan:      res.Plan,
		Source:    res.Source,
		Timeline:  tl,
		State:     ViewConfirmed,
		Profile:   res.Profile,
		FetchedAt: now,
	}
	if userID != "" && u.views != nil {
		shown, state, changed := u.views.Merge(userID, courseID, tl, now)
		view.Timeline, view.State = shown, state
		if state == ViewOptimisticPending {
			u.log.Debug().Str("course_id", courseID).Msg("backend behind a recent payment; serving optimistic view")
		}
		if changed && u.events != nil {
			u.events.Publish(ctx, model.ProfileUpdated{UserID: userID, CourseID: courseID, At: now})
		}
	}
	return view, nil
}
