package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
)

var _ repository.PendingPaymentRepository = (*pendingPaymentRepo)(nil)

type pendingPaymentRepo struct{ pool *pgxpool.Pool }

func NewPendingPaymentRepo(pool *pgxpool.Pool) *pendingPaymentRepo {
	return &pendingPaymentRepo{pool: pool}
}

func (r *pendingPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PendingPayment) error {
	const q = `
INSERT INTO pending_payments (
  id, order_id, user_id, amount, payment_request, description, hash, attempts, paid, invoice_expired, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  payment_request=$5, attempts=$8, paid=$9, invoice_expired=$10;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.OrderID, p.UserID, p.Amount, p.PaymentRequest, p.Description, p.Hash, p.Attempts, p.Paid, p.InvoiceExpired, p.CreatedAt)
	return err
}

func (r *pendingPaymentRepo) FindUnpaidByOrder(ctx context.Context, tx repository.Tx, orderID string, maxAttempts int) (*model.PendingPayment, error) {
	const q = `
SELECT id, order_id, user_id, amount, payment_request, description, hash, attempts, paid, invoice_expired, created_at
  FROM pending_payments
 WHERE order_id=$1 AND paid=false AND invoice_expired=false AND attempts < $2
 ORDER BY created_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID, maxAttempts)
	if err != nil {
		return nil, err
	}
	p := &model.PendingPayment{}
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.PaymentRequest, &p.Description, &p.Hash, &p.Attempts, &p.Paid, &p.InvoiceExpired, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
