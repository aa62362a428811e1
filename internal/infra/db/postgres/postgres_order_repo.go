package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

// SecretCipher protects the hold invoice preimage at rest.
// *security.SecretBox satisfies it.
type SecretCipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type OrderRepoOption func(*orderRepo)

// WithSecretCipher encrypts the secret column. Rows written without a cipher
// cannot be read with one.
func WithSecretCipher(c SecretCipher) OrderRepoOption {
	return func(r *orderRepo) { r.cipher = c }
}

type orderRepo struct {
	pool   *pgxpool.Pool
	cipher SecretCipher
}

func NewOrderRepo(pool *pgxpool.Pool, opts ...OrderRepoOption) *orderRepo {
	r := &orderRepo{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const orderColumns = `id, creator_id, COALESCE(seller_id,''), COALESCE(buyer_id,''), COALESCE(community_id,''),
  type, status, amount, fiat_code, fiat_amount, min_amount, max_amount, description,
  buyer_invoice, hash, secret, pending_hold_invoice_update, taken_at, invoice_held_at, created_at, updated_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  id, creator_id, seller_id, buyer_id, community_id, type, status, amount, fiat_code, fiat_amount,
  min_amount, max_amount, description, buyer_invoice, hash, secret, pending_hold_invoice_update,
  taken_at, invoice_held_at, created_at, updated_at
) VALUES (
  $1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
) ON CONFLICT (id) DO UPDATE SET
  seller_id=NULLIF($3,''), buyer_id=NULLIF($4,''), community_id=NULLIF($5,''), status=$7, amount=$8,
  fiat_amount=$10, buyer_invoice=$14, hash=$15, secret=$16, pending_hold_invoice_update=$17,
  taken_at=$18, invoice_held_at=$19, updated_at=$21;`

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	secret := o.Secret
	if r.cipher != nil {
		sealed, err := r.cipher.Seal(secret)
		if err != nil {
			return fmt.Errorf("seal order secret: %w", err)
		}
		secret = sealed
	}
	o.Touch()
	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.CreatorID, o.SellerID, o.BuyerID, o.CommunityID, o.Type, o.Status, o.Amount, o.FiatCode, o.FiatAmount,
		o.MinAmount, o.MaxAmount, o.Description, o.BuyerInvoice, o.Hash, secret, o.PendingHoldInvoiceUpdate,
		o.TakenAt, o.InvoiceHeldAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := forUpdate(`SELECT `+orderColumns+` FROM orders WHERE id=$1`, tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	o, err := r.scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func (r *orderRepo) ListWaitingInvoiceOlderThan(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT `+orderColumns+`
  FROM orders
 WHERE status=$1 AND taken_at IS NOT NULL AND taken_at < $2
 ORDER BY taken_at
 LIMIT $3;`, model.OrderStatusWaitingBuyerInvoice, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := r.scan(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *orderRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE orders SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2;`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// scan reads one row and opens the sealed secret.
func (r *orderRepo) scan(row pgx.Row) (*model.Order, error) {
	o, err := scanOrder(row)
	if err != nil || r.cipher == nil {
		return o, err
	}
	if o.Secret, err = r.cipher.Open(o.Secret); err != nil {
		return nil, fmt.Errorf("open order secret %s: %w", o.ID, err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.CreatorID, &o.SellerID, &o.BuyerID, &o.CommunityID,
		&o.Type, &o.Status, &o.Amount, &o.FiatCode, &o.FiatAmount, &o.MinAmount, &o.MaxAmount, &o.Description,
		&o.BuyerInvoice, &o.Hash, &o.Secret, &o.PendingHoldInvoiceUpdate, &o.TakenAt, &o.InvoiceHeldAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}
