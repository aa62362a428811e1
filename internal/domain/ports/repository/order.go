package repository

import (
	"context"
	"time"

	"telegram-p2p-trading/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	// FindByID always reads the stored row; callers re-fetch right before
	// accepting input that depends on the order status.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	// ListWaitingInvoiceOlderThan returns orders stuck in WAITING_BUYER_INVOICE
	// whose taken_at is before the given instant.
	ListWaitingInvoiceOlderThan(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Order, error)
	// UpdateStatusIf switches status only when the stored status equals from.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, from, to model.OrderStatus) (bool, error)
}
