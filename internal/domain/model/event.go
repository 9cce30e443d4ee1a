package model

import "time"

// Event is a typed in-process notification. Name is stable and used as the
// subscription key.
type Event interface {
	EventName() string
}

const (
	EventProfileUpdated      = "profile.updated"
	EventEnrollmentStarted   = "enrollment.started"
	EventEnrollmentCompleted = "enrollment.completed"
	EventAccessPending       = "access.pending"
	EventReceiptIssued       = "receipt.issued"
)

// ProfileUpdated is published after a refreshed profile changed the view.
type ProfileUpdated struct {
	UserID   string
	CourseID string
	At       time.Time
}

// EnrollmentStarted is published when the first installment of a course was paid.
type EnrollmentStarted struct {
	UserID   string
	CourseID string
	PlanType string
	At       time.Time
}

// EnrollmentCompleted is published for every checkout settled as success.
type EnrollmentCompleted struct {
	SessionID         string
	UserID            string
	CourseID          string
	InstallmentNumber int
	Amount            int64
	Currency          string
	PaymentID         string
	At                time.Time
}

// AccessPending is published when payment went through but access is not confirmed yet.
type AccessPending struct {
	SessionID string
	UserID    string
	CourseID  string
	PaymentID string
	Reason    string
	At        time.Time
}

// ReceiptIssued is published after a receipt was rendered and stored.
type ReceiptIssued struct {
	ReceiptID string
	SessionID string
	UserID    string
	CourseID  string
	Number    string
	At        time.Time
}

func (ProfileUpdated) EventName() string      { return EventProfileUpdated }
func (EnrollmentStarted) EventName() string   { return EventEnrollmentStarted }
func (EnrollmentCompleted) EventName() string { return EventEnrollmentCompleted }
func (AccessPending) EventName() string       { return EventAccessPending }
func (ReceiptIssued) EventName() string       { return EventReceiptIssued }
