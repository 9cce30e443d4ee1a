package model

import "time"

// EnrolledInstallment is the per-user copy of a plan installment, with the
// amount locked at enrollment time.
type EnrolledInstallment struct {
	InstallmentNumber int        `json:"installmentNumber"`
	Amount            int64      `json:"amount"`
	IsPaid            bool       `json:"isPaid"`
	PaidDate          *time.Time `json:"paidDate,omitempty"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
}

// UserEnrollment associates a course on the user's profile with a chosen plan.
type UserEnrollment struct {
	CourseID     string                `json:"courseId"`
	PlanType     string                `json:"planType"`
	EnrolledAt   *time.Time            `json:"enrolledAt,omitempty"`
	Installments []EnrolledInstallment `json:"installments"`
}

// IsEnrolled reports whether there is evidence of at least one locked installment.
// A bare purchasedCourses entry does not count.
func (e *UserEnrollment) IsEnrolled() bool {
	return e != nil && len(e.Installments) > 0
}

// Locked returns the enrolled installment with the given 1-based number.
func (e *UserEnrollment) Locked(number int) (EnrolledInstallment, bool) {
	if e == nil {
		return EnrolledInstallment{}, false
	}
	for _, in := range e.Installments {
		if in.InstallmentNumber == number {
			return in, true
		}
	}
	return EnrolledInstallment{}, false
}

// UserProfile is the subset of the profile service payload this service reads.
type UserProfile struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	PurchasedCourses []UserEnrollment `json:"purchasedCourses"`
}

func (u *UserProfile) IsZero() bool { return u == nil || u.ID == "" }

// Enrollment returns the purchasedCourses entry for courseID, if any.
func (u *UserProfile) Enrollment(courseID string) *UserEnrollment {
	if u == nil {
		return nil
	}
	for i := range u.PurchasedCourses {
		if u.PurchasedCourses[i].CourseID == courseID {
			return &u.PurchasedCourses[i]
		}
	}
	return nil
}

// PaymentRecord is a legacy per-user payment history entry served by the
// installment timeline endpoint.
type PaymentRecord struct {
	InstallmentNumber int        `json:"installmentNumber"`
	Amount            int64      `json:"amount"`
	IsPaid            bool       `json:"isPaid"`
	PaidDate          *time.Time `json:"paidDate,omitempty"`
}
