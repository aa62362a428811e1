package adapter

import (
	"context"
	"fmt"
	"time"

	"telegram-p2p-trading/internal/domain"
)

// Invoice is the decoded subset of a BOLT11 payment request.
type Invoice struct {
	Request     string
	Network     string
	Amount      int64 // satoshis; 0 means "any amount"
	Hash        string
	Description string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// InvoiceError is a user-correctable validation failure. Key is the locale
// template explaining it.
type InvoiceError struct {
	Key    string
	Reason string
}

func (e *InvoiceError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrInvalidInvoice, e.Reason)
}

func (e *InvoiceError) Unwrap() error { return domain.ErrInvalidInvoice }

type InvoiceValidator interface {
	Validate(ctx context.Context, request string) (*Invoice, error)
}

// HoldInvoice is an invoice the seller pays into escrow.
type HoldInvoice struct {
	Request string
	Hash    string
	Secret  string
}

// LightningNode is the narrow view of the payment network the wizards need.
type LightningNode interface {
	CreateHoldInvoice(ctx context.Context, amount int64, description string) (*HoldInvoice, error)
	// IsPaymentInFlight reports whether a payment to request is still being routed.
	IsPaymentInFlight(ctx context.Context, request string) (bool, error)
}
