package repository

import (
	"context"

	"telegram-p2p-trading/internal/domain/model"
)

// -----------------------------
// Pending payments
// -----------------------------

type PendingPaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PendingPayment) error
	// FindUnpaidByOrder returns an unpaid, unexpired pending payment of the order
	// with fewer than maxAttempts attempts, or domain.ErrNotFound.
	FindUnpaidByOrder(ctx context.Context, tx Tx, orderID string, maxAttempts int) (*model.PendingPayment, error)
}
