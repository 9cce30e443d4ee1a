// File: internal/usecase/plan_resolver.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/logging"
)

// Compile-time check
var _ PlanResolver = (*planResolver)(nil)

// ResolutionSource tells which rule picked the plan.
type ResolutionSource string

const (
	ResolvedByHint        ResolutionSource = "hint"
	ResolvedByEnrollment  ResolutionSource = "enrollment"
	ResolvedByFirstAmount ResolutionSource = "first_amount"
	ResolvedByFallback    ResolutionSource = "fallback"
	ResolvedNone          ResolutionSource = "none"
)

// PlanResolution is the outcome of a resolve. Plan is nil when the course has
// no plans and the user is not enrolled.
type PlanResolution struct {
	Course     *model.Course
	Plans      []*model.InstallmentPlan
	Plan       *model.InstallmentPlan
	Source     ResolutionSource
	Profile    *model.UserProfile
	Enrollment *model.UserEnrollment
}

type PlanResolver interface {
	// Plans lists the configured plans of a course.
	Plans(ctx context.Context, courseID string) ([]*model.InstallmentPlan, error)
	// Subscriptions lists the validity options sold for a course.
	Subscriptions(ctx context.Context, courseID string) ([]model.Subscription, error)
	// Resolve picks the single plan that applies to userID (may be empty) on courseID.
	Resolve(ctx context.Context, courseID, userID, planTypeHint string) (*PlanResolution, error)
}

type planResolver struct {
	catalog  adapter.CatalogService
	plans    adapter.InstallmentService
	profiles adapter.ProfileService
	log      *zerolog.Logger
}

func NewPlanResolver(catalog adapter.CatalogService, plans adapter.InstallmentService, profiles adapter.ProfileService, logger *zerolog.Logger) *planResolver {
	l := logger.With().Str("component", "plan_resolver").Logger()
	return &planResolver{catalog: catalog, plans: plans, profiles: profiles, log: &l}
}

func (r *planResolver) Plans(ctx context.Context, courseID string) ([]*model.InstallmentPlan, error) {
	if courseID == "" {
		return nil, fmt.Errorf("course id: %w", domain.ErrInvalidArgument)
	}
	plans, err := r.plans.Plans(ctx, courseID, adapter.PlanFilter{})
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (r *planResolver) Subscriptions(ctx context.Context, courseID string) ([]model.Subscription, error) {
	if courseID == "" {
		return nil, fmt.Errorf("course id: %w", domain.ErrInvalidArgument)
	}
	subs, err := r.catalog.Subscriptions(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *planResolver) Resolve(ctx context.Context, courseID, userID, planTypeHint string) (*PlanResolution, error) {
	defer logging.TraceDuration(r.log, "PlanResolver.Resolve")()
	if courseID == "" {
		return nil, fmt.Errorf("course id: %w", domain.ErrInvalidArgument)
	}

	course, err := r.catalog.Course(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", courseID, err)
	}
	if course.IsZero() {
		return nil, fmt.Errorf("course %s: %w", courseID, domain.ErrNotFound)
	}

	res := &PlanResolution{Course: course}
	if userID != "" {
		profile, err := r.profiles.Profile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		res.Profile = profile
		res.Enrollment = profile.Enrollment(courseID)
	}

	plans, err := r.Plans(ctx, courseID)
	if err != nil {
		return nil, err
	}
	res.Plans = plans

	plan, src, err := ResolvePlan(plans, res.Enrollment, planTypeHint)
	if err != nil {
		r.log.Error().Err(err).
			Str("course_id", courseID).
			Str("user_id", userID).
			Str("enrolled_plan", res.Enrollment.PlanType).
			Msg("enrolled plan has no match in configured plans")
		return nil, err
	}
	if planTypeHint != "" && src != ResolvedByHint {
		r.log.Warn().Str("course_id", courseID).Str("hint", planTypeHint).Str("source", string(src)).
			Msg("plan type hint did not match; resolved by next rule")
	}
	res.Plan = plan
	res.Source = src
	return res, nil
}

// ResolvePlan applies the resolution rules, first match wins:
//  1. an explicit plan type hint matching a configured plan
//  2. the plan type of the user's enrollment, when it has locked installments
//  3. for enrolled users only, a plan whose first installment amount equals the locked one
//  4. for users without enrollment evidence, the first configured plan
//
// An enrolled user that matches nothing gets ErrPlanUnavailable.
func ResolvePlan(plans []*model.InstallmentPlan, enrollment *model.UserEnrollment, hint string) (*model.InstallmentPlan, ResolutionSource, error) {
	if hint != "" {
		if p := findPlan(plans, hint); p != nil {
			return p, ResolvedByHint, nil
		}
	}

	if enrollment.IsEnrolled() {
		if p := findPlan(plans, enrollment.PlanType); p != nil {
			return p, ResolvedByEnrollment, nil
		}
		if first, ok := enrollment.Locked(firstLockedNumber(enrollment)); ok {
			for _, p := range plans {
				if p != nil && p.FirstAmount() == first.Amount {
					return p, ResolvedByFirstAmount, nil
				}
			}
		}
		return nil, ResolvedNone, fmt.Errorf("plan %q: %w", enrollment.PlanType, domain.ErrPlanUnavailable)
	}

	for _, p := range plans {
		if p != nil {
			return p, ResolvedByFallback, nil
		}
	}
	return nil, ResolvedNone, nil
}

func findPlan(plans []*model.InstallmentPlan, planType string) *model.InstallmentPlan {
	for _, p := range plans {
		if p.Matches(planType) {
			return p
		}
	}
	return nil
}

// firstLockedNumber is the smallest installment number on the enrollment.
func firstLockedNumber(e *model.UserEnrollment) int {
	n := 0
	for _, in := range e.Installments {
		if n == 0 || in.InstallmentNumber < n {
			n = in.InstallmentNumber
		}
	}
	return n
}
