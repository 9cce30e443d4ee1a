package model

import (
	"strings"
	"time"

	"learnhub-checkout/internal/domain"
)

// Installment is one template entry of an admin-configured plan.
type Installment struct {
	Number        int        `json:"installmentNumber"`
	Amount        int64      `json:"amount"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	DueOffsetDays int        `json:"dueOffsetDays,omitempty"`
}

// InstallmentPlan is a payment schedule configured for one course.
// Recurrence is an optional RRULE used when template entries carry no due information.
type InstallmentPlan struct {
	ID           string        `json:"id"`
	CourseID     string        `json:"courseId"`
	PlanType     string        `json:"planType"`
	Installments []Installment `json:"installments"`
	TotalAmount  int64         `json:"totalAmount"`
	Recurrence   string        `json:"recurrence,omitempty"`
}

func (p *InstallmentPlan) IsZero() bool { return p == nil || p.PlanType == "" }

// FirstAmount returns the amount of the first template installment, or 0.
func (p *InstallmentPlan) FirstAmount() int64 {
	if p == nil || len(p.Installments) == 0 {
		return 0
	}
	return p.Installments[0].Amount
}

// Matches compares plan types the way the backend stores them ("3 months" == "3 Months ").
func (p *InstallmentPlan) Matches(planType string) bool {
	if p == nil {
		return false
	}
	return NormalizePlanType(p.PlanType) == NormalizePlanType(planType) && NormalizePlanType(planType) != ""
}

func NormalizePlanType(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NewInstallmentPlan validates and constructs a plan; numbers are assigned from position.
func NewInstallmentPlan(id, courseID, planType string, amounts []int64) (*InstallmentPlan, error) {
	if courseID == "" || strings.TrimSpace(planType) == "" || len(amounts) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	p := &InstallmentPlan{ID: id, CourseID: courseID, PlanType: planType}
	for i, a := range amounts {
		if a <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		p.Installments = append(p.Installments, Installment{Number: i + 1, Amount: a})
		p.TotalAmount += a
	}
	return p, nil
}
