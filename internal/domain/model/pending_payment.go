package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingPayment is a scheduled payout to a buyer invoice after the hold
// invoice was settled but the first payment attempt failed.
type PendingPayment struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	Amount         int64     `json:"amount"`
	PaymentRequest string    `json:"payment_request"`
	Description    string    `json:"description"`
	Hash           string    `json:"hash"`
	Attempts       int       `json:"attempts"`
	Paid           bool      `json:"paid"`
	InvoiceExpired bool      `json:"invoice_expired"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewPendingPayment(order *Order, userID, paymentRequest string) *PendingPayment {
	return &PendingPayment{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		UserID:         userID,
		Amount:         order.Amount,
		PaymentRequest: paymentRequest,
		Description:    order.Description,
		Hash:           order.Hash,
		CreatedAt:      time.Now(),
	}
}
