package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/adapter"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/infra/logging"
	"telegram-p2p-trading/internal/wizard"

	"github.com/rs/zerolog"
)

// OrderActions are the trade steps the wizards fire on completion.
type OrderActions interface {
	// WaitPayment records the buyer invoice and moves the order towards escrow.
	WaitPayment(ctx context.Context, o *model.Order, buyer, seller *model.User, invoice string) error
	// RequestInvoice asks the buyer of o for an invoice through the add-invoice wizard.
	RequestInvoice(ctx context.Context, o *model.Order) error
	// ShowHoldInvoice creates the escrow invoice and sends it to the seller.
	ShowHoldInvoice(ctx context.Context, o *model.Order) error
}

type OrderUseCase interface {
	OrderActions
	// ExpireStale expires orders that waited longer than window for a buyer invoice.
	ExpireStale(ctx context.Context, window time.Duration, limit int) (int, error)
	FindOrder(ctx context.Context, id string) (*model.Order, error)
}

var _ OrderUseCase = (*orderUC)(nil)

type orderUC struct {
	orders repository.OrderRepository
	users  repository.UserRepository
	node   adapter.LightningNode
	sender adapter.Sender
	engine *wizard.Engine
	log    *zerolog.Logger
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	users repository.UserRepository,
	node adapter.LightningNode,
	sender adapter.Sender,
	engine *wizard.Engine,
	logger *zerolog.Logger,
) *orderUC {
	return &orderUC{
		orders: orders,
		users:  users,
		node:   node,
		sender: sender,
		engine: engine,
		log:    logger,
	}
}

func (u *orderUC) WaitPayment(ctx context.Context, o *model.Order, buyer, seller *model.User, invoice string) error {
	defer logging.TraceDuration(u.log, "OrderUC.WaitPayment")()

	o.BuyerInvoice = invoice
	o.Touch()
	if o.InvoiceHeldAt != nil {
		// The seller already locked the funds; the trade can start.
		o.Status = model.OrderStatusActive
		if err := u.orders.Save(ctx, repository.NoTX, o); err != nil {
			return fmt.Errorf("save order %s: %w", o.ID, err)
		}
		u.notify(ctx, buyer, "order_active", o.ID)
		u.notify(ctx, seller, "order_active", o.ID)
		return nil
	}

	if err := u.attachHoldInvoice(ctx, o, seller); err != nil {
		return err
	}
	u.notify(ctx, buyer, "waiting_seller_payment", o.ID)
	return nil
}

func (u *orderUC) RequestInvoice(ctx context.Context, o *model.Order) error {
	defer logging.TraceDuration(u.log, "OrderUC.RequestInvoice")()

	buyer, err := u.users.FindByID(ctx, repository.NoTX, o.BuyerID)
	if err != nil {
		return fmt.Errorf("find buyer of %s: %w", o.ID, err)
	}
	if buyer == nil {
		return fmt.Errorf("find buyer of %s: %w", o.ID, domain.ErrNotFound)
	}
	var seller *model.User
	if o.SellerID != "" {
		if seller, err = u.users.FindByID(ctx, repository.NoTX, o.SellerID); err != nil {
			return fmt.Errorf("find seller of %s: %w", o.ID, err)
		}
	}
	st := &AddInvoiceState{OrderID: o.ID, Order: o, Buyer: buyer, Seller: seller}
	trig := wizard.Trigger{Source: wizard.TriggerHandoff, Ref: o.ID}
	if _, err := u.engine.Enter(ctx, trig, AddInvoiceWizardID, buyer.TelegramID, st); err != nil {
		return fmt.Errorf("request invoice for %s: %w", o.ID, err)
	}
	return nil
}

func (u *orderUC) ShowHoldInvoice(ctx context.Context, o *model.Order) error {
	defer logging.TraceDuration(u.log, "OrderUC.ShowHoldInvoice")()

	seller, err := u.users.FindByID(ctx, repository.NoTX, o.SellerID)
	if err != nil {
		return fmt.Errorf("find seller of %s: %w", o.ID, err)
	}
	if seller == nil {
		return fmt.Errorf("find seller of %s: %w", o.ID, domain.ErrNotFound)
	}
	return u.attachHoldInvoice(ctx, o, seller)
}

// attachHoldInvoice creates the escrow invoice for o, stores its hash and
// secret and asks the seller to pay it.
func (u *orderUC) attachHoldInvoice(ctx context.Context, o *model.Order, seller *model.User) error {
	hold, err := u.node.CreateHoldInvoice(ctx, o.Amount, o.Description)
	if err != nil {
		return fmt.Errorf("create hold invoice for %s: %w", o.ID, err)
	}
	o.Hash = hold.Hash
	o.Secret = hold.Secret
	o.Status = model.OrderStatusWaitingPayment
	o.Touch()
	if err := u.orders.Save(ctx, repository.NoTX, o); err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	u.notify(ctx, seller, "pay_hold_invoice", o.ID, o.Amount, hold.Request)
	return nil
}

func (u *orderUC) ExpireStale(ctx context.Context, window time.Duration, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "OrderUC.ExpireStale")()

	stale, err := u.orders.ListWaitingInvoiceOlderThan(ctx, repository.NoTX, time.Now().Add(-window), limit)
	if err != nil {
		return 0, fmt.Errorf("list stale orders: %w", err)
	}
	expired := 0
	for _, o := range stale {
		ok, err := u.orders.UpdateStatusIf(ctx, repository.NoTX, o.ID, model.OrderStatusWaitingBuyerInvoice, model.OrderStatusExpired)
		if err != nil {
			u.log.Error().Err(err).Str("order_id", o.ID).Msg("failed to expire order")
			continue
		}
		if !ok {
			continue
		}
		expired++
		if buyer, err := u.users.FindByID(ctx, repository.NoTX, o.BuyerID); err == nil {
			u.notify(ctx, buyer, "order_expired", o.ID)
		}
	}
	return expired, nil
}

func (u *orderUC) FindOrder(ctx context.Context, id string) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.FindOrder")()
	o, err := u.orders.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (u *orderUC) notify(ctx context.Context, to *model.User, key string, args ...any) {
	if to == nil {
		return
	}
	if err := u.sender.Send(ctx, to.TelegramID, key, args...); err != nil {
		u.log.Warn().Err(err).Str("key", key).Int64("tg_id", to.TelegramID).Msg("failed to notify")
	}
}
