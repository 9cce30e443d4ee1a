package model

import "time"

const OrderStatusPaid = "paid"

// InstallmentDetails is the installment part of an order record.
type InstallmentDetails struct {
	InstallmentNumber int  `json:"installmentNumber"`
	IsPaid            bool `json:"isPaid"`
}

// Order is a payment-gateway transaction record from the ledger service.
type Order struct {
	ID                 string             `json:"id"`
	CourseID           string             `json:"courseId"`
	UserID             string             `json:"userId"`
	Status             string             `json:"status"`
	Amount             int64              `json:"amount"`
	PaymentID          string             `json:"paymentId,omitempty"`
	PaidAt             *time.Time         `json:"paidAt,omitempty"`
	InstallmentDetails InstallmentDetails `json:"installmentDetails"`
}

// Paid is true only when both the order status and its installment flag agree.
func (o *Order) Paid() bool {
	return o != nil && o.Status == OrderStatusPaid && o.InstallmentDetails.IsPaid
}

// OrderRequest asks the ledger service to open a gateway order.
// InstallmentNumber 0 means full payment.
type OrderRequest struct {
	CourseID          string `json:"courseId"`
	UserID            string `json:"userId"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	PlanType          string `json:"planType,omitempty"`
	InstallmentNumber int    `json:"installmentNumber,omitempty"`
	Receipt           string `json:"receipt"`
}

// OrderHandle is what the browser widget needs to open the gateway checkout.
type OrderHandle struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
	Name     string `json:"name,omitempty"`
	Prefill  struct {
		Name    string `json:"name,omitempty"`
		Email   string `json:"email,omitempty"`
		Contact string `json:"contact,omitempty"`
	} `json:"prefill"`
}

type GatewayStatus string

const (
	GatewaySuccess   GatewayStatus = "success"
	GatewayDismissed GatewayStatus = "dismissed"
)

// GatewayResult is the widget callback payload.
type GatewayResult struct {
	Status    GatewayStatus `json:"status"`
	PaymentID string        `json:"razorpay_payment_id"`
	OrderID   string        `json:"razorpay_order_id"`
	Signature string        `json:"razorpay_signature"`
}

// VerifyRequest asks the ledger service to check the gateway signature and
// record the payment against the installment.
type VerifyRequest struct {
	OrderID           string `json:"razorpay_order_id"`
	PaymentID         string `json:"razorpay_payment_id"`
	Signature         string `json:"razorpay_signature"`
	CourseID          string `json:"courseId"`
	UserID            string `json:"userId"`
	PlanType          string `json:"planType,omitempty"`
	InstallmentNumber int    `json:"installmentNumber,omitempty"`
	Amount            int64  `json:"amount"`
}
