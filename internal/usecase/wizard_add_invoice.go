package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/wizard"

	"github.com/jackc/pgx/v4"
)

// AddInvoiceState is shared by both invoice wizards. Order is the snapshot the
// prompts were built from; steps re-read the order before accepting input.
type AddInvoiceState struct {
	OrderID string       `json:"order_id"`
	Order   *model.Order `json:"order,omitempty"`
	Buyer   *model.User  `json:"buyer,omitempty"`
	Seller  *model.User  `json:"seller,omitempty"`
}

func (w *wizardUC) addInvoiceDefinition() wizard.Definition {
	return wizard.Definition{
		ID:       AddInvoiceWizardID,
		NewState: func() any { return &AddInvoiceState{} },
		Exit:     w.addInvoiceExit,
		Steps: []wizard.Step{{
			Name:   "invoice",
			Enter:  w.enterAddInvoice,
			Handle: w.handleAddInvoice,
		}},
	}
}

// loadParties fills the order, buyer and seller of st and checks that the
// session belongs to the buyer.
func (w *wizardUC) loadParties(ctx context.Context, t wizard.Turn, st *AddInvoiceState) error {
	if st.Order == nil {
		o, err := w.order(ctx, st.OrderID)
		if err != nil {
			return err
		}
		st.Order = o
	}
	st.OrderID = st.Order.ID
	if st.Buyer == nil {
		b, err := w.deps.Users.FindByID(ctx, repository.NoTX, st.Order.BuyerID)
		if err != nil {
			return fmt.Errorf("find buyer of %s: %w", st.OrderID, err)
		}
		st.Buyer = b
	}
	if st.Buyer == nil || st.Buyer.TelegramID != t.UserID {
		return fmt.Errorf("order %s: caller is not the buyer: %w", st.OrderID, domain.ErrUnauthorized)
	}
	if st.Seller == nil && st.Order.SellerID != "" {
		s, err := w.deps.Users.FindByID(ctx, repository.NoTX, st.Order.SellerID)
		if err != nil {
			return fmt.Errorf("find seller of %s: %w", st.OrderID, err)
		}
		st.Seller = s
	}
	return nil
}

func (w *wizardUC) enterAddInvoice(ctx context.Context, t wizard.Turn, s any) (any, error) {
	st, err := state[AddInvoiceState](s)
	if err != nil {
		return nil, err
	}
	if err := w.loadParties(ctx, t, st); err != nil {
		return nil, err
	}
	o := st.Order
	switch o.Status {
	case model.OrderStatusExpired:
		return nil, wizard.Refuse(domain.ErrInvalidArgument, "order_expired", o.ID)
	case model.OrderStatusCanceled, model.OrderStatusSuccess:
		return nil, wizard.Refuse(domain.ErrInvalidArgument, "cant_add_invoice", o.ID)
	}

	if err := w.deps.Sender.Send(ctx, t.UserID, "invoice_request", o.Amount, w.currencySymbol(o.FiatCode), o.FiatAmount); err != nil {
		return nil, err
	}
	minutes := int(w.settings.HoldInvoiceExpiration / time.Minute)
	if err := w.deps.Sender.Send(ctx, t.UserID, "invoice_expiration_window", minutes); err != nil {
		return nil, err
	}

	o.Status = model.OrderStatusWaitingBuyerInvoice
	if o.TakenAt == nil {
		now := time.Now()
		o.TakenAt = &now
	}
	o.Touch()
	if err := w.deps.Orders.Save(ctx, repository.NoTX, o); err != nil {
		return nil, fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return st, nil
}

func (w *wizardUC) handleAddInvoice(ctx context.Context, t wizard.Turn, s any) (wizard.Result, error) {
	st, err := state[AddInvoiceState](s)
	if err != nil {
		return wizard.Result{}, err
	}
	inv, warn, err := w.validateInvoice(ctx, t.Text)
	if err != nil {
		return wizard.Result{}, err
	}
	if warn != nil {
		return wizard.Repeat(warn), nil
	}

	o, err := w.order(ctx, st.OrderID)
	if err != nil {
		return wizard.Result{}, err
	}
	if o.Status == model.OrderStatusExpired {
		return wizard.Terminate(wizard.Say("order_expired", o.ID)), nil
	}
	if !o.AcceptsBuyerInvoice() {
		return wizard.Terminate(wizard.Say("cant_add_invoice", o.ID)), nil
	}
	if inv.Amount != 0 && inv.Amount != o.Amount {
		return wizard.Repeat(wizard.Say("invoice_amount_mismatch", o.Amount)), nil
	}

	if err := w.deps.Actions.WaitPayment(ctx, o, st.Buyer, st.Seller, inv.Request); err != nil {
		return wizard.Result{}, err
	}
	return wizard.Terminate(nil), nil
}

// addInvoiceExit tells the buyer how to come back while the order still
// waits for an invoice.
func (w *wizardUC) addInvoiceExit(ctx context.Context, t wizard.Turn, s any) *wizard.Notice {
	st, err := state[AddInvoiceState](s)
	if err != nil {
		return nil
	}
	o, err := w.order(ctx, st.OrderID)
	if err != nil {
		w.log.Warn().Err(err).Str("order_id", st.OrderID).Msg("exit: order lookup failed")
		return nil
	}
	if !o.AcceptsBuyerInvoice() {
		return nil
	}
	return wizard.Say("wizard_add_invoice_exit", o.ID, o.Amount)
}

func (w *wizardUC) addInvoicePHIDefinition() wizard.Definition {
	return wizard.Definition{
		ID:       AddInvoicePHIWizardID,
		NewState: func() any { return &AddInvoiceState{} },
		Steps: []wizard.Step{{
			Name:   "replacement_invoice",
			Enter:  w.enterAddInvoicePHI,
			Handle: w.handleAddInvoicePHI,
		}},
	}
}

func (w *wizardUC) enterAddInvoicePHI(ctx context.Context, t wizard.Turn, s any) (any, error) {
	st, err := state[AddInvoiceState](s)
	if err != nil {
		return nil, err
	}
	if err := w.loadParties(ctx, t, st); err != nil {
		return nil, err
	}
	if st.Order.Status != model.OrderStatusPaidHoldInvoice {
		return nil, wizard.Refuse(domain.ErrInvalidArgument, "cant_add_invoice", st.Order.ID)
	}
	if err := w.deps.Sender.Send(ctx, t.UserID, "send_me_lninvoice", st.Order.Amount); err != nil {
		return nil, err
	}
	return st, nil
}

func (w *wizardUC) handleAddInvoicePHI(ctx context.Context, t wizard.Turn, s any) (wizard.Result, error) {
	st, err := state[AddInvoiceState](s)
	if err != nil {
		return wizard.Result{}, err
	}
	inv, warn, err := w.validateInvoice(ctx, t.Text)
	if err != nil {
		return wizard.Result{}, err
	}
	if warn != nil {
		return wizard.Repeat(warn), nil
	}

	o, err := w.order(ctx, st.OrderID)
	if err != nil {
		return wizard.Result{}, err
	}
	switch o.Status {
	case model.OrderStatusPaidHoldInvoice:
	case model.OrderStatusExpired:
		return wizard.Terminate(wizard.Say("order_expired", o.ID)), nil
	default:
		return wizard.Terminate(wizard.Say("cant_add_invoice", o.ID)), nil
	}
	if inv.Amount != 0 && inv.Amount != o.Amount {
		return wizard.Repeat(wizard.Say("invoice_amount_mismatch", o.Amount)), nil
	}

	busy, err := w.payoutScheduled(ctx, o)
	if err != nil {
		return wizard.Result{}, err
	}
	if busy || o.PendingHoldInvoiceUpdate {
		return wizard.Terminate(wizard.Say("invoice_already_updated")), nil
	}

	err = w.deps.Tx.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		o.PendingHoldInvoiceUpdate = true
		o.BuyerInvoice = inv.Request
		o.Touch()
		if err := w.deps.Orders.Save(ctx, tx, o); err != nil {
			return fmt.Errorf("save order %s: %w", o.ID, err)
		}
		pp := model.NewPendingPayment(o, st.Buyer.ID, inv.Request)
		if err := w.deps.Pending.Save(ctx, tx, pp); err != nil {
			return fmt.Errorf("save pending payment of %s: %w", o.ID, err)
		}
		return nil
	})
	if err != nil {
		return wizard.Result{}, err
	}
	w.log.Info().Str("order_id", o.ID).Int64("tg_id", t.UserID).Msg("buyer invoice replaced, payout scheduled")
	return wizard.Terminate(wizard.Say("invoice_updated_payment_will_be_sent")), nil
}

// payoutScheduled reports whether a payout of o is already queued or routing.
func (w *wizardUC) payoutScheduled(ctx context.Context, o *model.Order) (bool, error) {
	pp, err := w.deps.Pending.FindUnpaidByOrder(ctx, repository.NoTX, o.ID, w.settings.PaymentAttempts)
	switch {
	case err == nil && pp != nil:
		return true, nil
	case err != nil && !isNotFound(err):
		return false, fmt.Errorf("find pending payment of %s: %w", o.ID, err)
	}
	if o.BuyerInvoice == "" {
		return false, nil
	}
	inFlight, err := w.deps.Node.IsPaymentInFlight(ctx, o.BuyerInvoice)
	if err != nil {
		return false, fmt.Errorf("payment in flight for %s: %w", o.ID, err)
	}
	return inFlight, nil
}
