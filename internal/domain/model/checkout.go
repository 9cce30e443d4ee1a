package model

import "time"

type CheckoutState string

const (
	CheckoutIdle               CheckoutState = "idle"
	CheckoutCreatingOrder      CheckoutState = "creatingOrder"
	CheckoutAwaitingGateway    CheckoutState = "awaitingGatewayResult"
	CheckoutVerifyingSignature CheckoutState = "verifyingSignature"
	CheckoutPollingAccess      CheckoutState = "pollingAccess"
	CheckoutSettled            CheckoutState = "settled"
)

type CheckoutOutcome string

const (
	OutcomeNone    CheckoutOutcome = ""
	OutcomeSuccess CheckoutOutcome = "success"
	OutcomePartial CheckoutOutcome = "partial"
	OutcomeFailed  CheckoutOutcome = "failed"
)

// checkoutTransitions lists the legal next states for each state.
var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutIdle:               {CheckoutCreatingOrder},
	CheckoutCreatingOrder:      {CheckoutAwaitingGateway, CheckoutSettled},
	CheckoutAwaitingGateway:    {CheckoutVerifyingSignature, CheckoutIdle, CheckoutSettled},
	CheckoutVerifyingSignature: {CheckoutPollingAccess, CheckoutSettled},
	CheckoutPollingAccess:      {CheckoutSettled},
}

// CanTransition reports whether from -> to is a legal checkout step.
func CanTransition(from, to CheckoutState) bool {
	for _, s := range checkoutTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckoutSession is one pay attempt for one installment (or the full amount
// when InstallmentIndex is nil).
type CheckoutSession struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	CourseID         string          `json:"courseId"`
	PlanType         string          `json:"planType,omitempty"`
	InstallmentIndex *int            `json:"installmentIndex"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	State            CheckoutState   `json:"state"`
	Outcome          CheckoutOutcome `json:"outcome,omitempty"`
	Handle           *OrderHandle    `json:"order,omitempty"`
	OrderID          string          `json:"orderId,omitempty"`
	PaymentID        string          `json:"paymentId,omitempty"`
	Signature        string          `json:"-"`
	Message          string          `json:"message,omitempty"`
	FailureReason    string          `json:"-"` // internal detail; clients get Message
	Cancelled        bool            `json:"cancelled,omitempty"`
	PollAttempts     int             `json:"pollAttempts,omitempty"`
	ReceiptID        string          `json:"receiptId,omitempty"`
	LockToken        string          `json:"-"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	SettledAt        *time.Time      `json:"settledAt,omitempty"`
}

// InstallmentNumber is the 1-based installment number, 0 for full payment.
func (s *CheckoutSession) InstallmentNumber() int {
	if s == nil || s.InstallmentIndex == nil {
		return 0
	}
	return *s.InstallmentIndex + 1
}

func (s *CheckoutSession) IsSettled() bool {
	return s != nil && s.State == CheckoutSettled
}

// IsTerminal covers settled attempts and attempts cancelled back to idle.
func (s *CheckoutSession) IsTerminal() bool {
	return s.IsSettled() || (s != nil && s.State == CheckoutIdle && s.Cancelled)
}
