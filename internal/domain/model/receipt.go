package model

import "time"

// ReceiptFacts are the reconciled payment facts a receipt is rendered from.
type ReceiptFacts struct {
	Number            string    `json:"number"`
	PaymentID         string    `json:"paymentId"`
	OrderID           string    `json:"orderId"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	PaidAt            time.Time `json:"paidAt"`
	PayerName         string    `json:"payerName"`
	PayerEmail        string    `json:"payerEmail"`
	CourseID          string    `json:"courseId"`
	CourseTitle       string    `json:"courseTitle"`
	PlanLabel         string    `json:"planLabel"`
	InstallmentNumber int       `json:"installmentNumber"`
	InstallmentCount  int       `json:"installmentCount"`
	RemainingAmount   int64     `json:"remainingAmount"`
}

// Receipt is a stored, downloadable payment confirmation.
type Receipt struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId,omitempty"`
	UserID      string       `json:"userId"`
	Facts       ReceiptFacts `json:"facts"`
	ContentType string       `json:"contentType"`
	Document    []byte       `json:"-"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (r *Receipt) FileName() string {
	return "receipt-" + r.Facts.Number + ".pdf"
}
