package model

import "time"

// PaidSource names which record decided an installment's paid status, in
// precedence order.
type PaidSource string

const (
	PaidByOrder      PaidSource = "order"
	PaidByEnrollment PaidSource = "enrollment"
	PaidByHistory    PaidSource = "history"
	PaidByNone       PaidSource = "none"
)

// TimelineEntry is one reconciled installment.
type TimelineEntry struct {
	Index       int        `json:"index"`
	Number      int        `json:"installmentNumber"`
	Amount      int64      `json:"amount"`
	IsPaid      bool       `json:"isPaid"`
	PaidSource  PaidSource `json:"paidSource"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
}

// Timeline is the derived per-user schedule. It is rebuilt on every view.
type Timeline struct {
	CourseID        string          `json:"courseId"`
	UserID          string          `json:"userId,omitempty"`
	PlanType        string          `json:"planType"`
	Enrolled        bool            `json:"enrolled"`
	Entries         []TimelineEntry `json:"installments"`
	Next            *int            `json:"nextInstallment"`
	TotalAmount     int64           `json:"totalAmount"`
	PaidAmount      int64           `json:"paidAmount"`
	RemainingAmount int64           `json:"remainingAmount"`
}

// FullyPaid is the terminal state with no payable action.
func (t *Timeline) FullyPaid() bool {
	return t != nil && len(t.Entries) > 0 && t.Next == nil
}

// NextEntry returns the first unpaid entry.
func (t *Timeline) NextEntry() (TimelineEntry, bool) {
	if t == nil || t.Next == nil {
		return TimelineEntry{}, false
	}
	return t.Entries[*t.Next], true
}

// Entry returns the entry at a 0-based index.
func (t *Timeline) Entry(index int) (TimelineEntry, bool) {
	if t == nil || index < 0 || index >= len(t.Entries) {
		return TimelineEntry{}, false
	}
	return t.Entries[index], true
}

// Recompute refreshes Next and the totals from the entries.
func (t *Timeline) Recompute() {
	t.Next = nil
	t.TotalAmount, t.PaidAmount = 0, 0
	for i := range t.Entries {
		e := t.Entries[i]
		t.TotalAmount += e.Amount
		if e.IsPaid {
			t.PaidAmount += e.Amount
			continue
		}
		if t.Next == nil {
			idx := i
			t.Next = &idx
		}
	}
	t.RemainingAmount = t.TotalAmount - t.PaidAmount
}

// Clone returns a deep copy safe to mutate.
func (t *Timeline) Clone() *Timeline {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Entries = append([]TimelineEntry(nil), t.Entries...)
	if t.Next != nil {
		n := *t.Next
		cp.Next = &n
	}
	return &cp
}
