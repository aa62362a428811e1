package usecase

import (
	"context"
	"fmt"
	"strconv"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/wizard"
)

// FiatAmountState tracks a taker choosing the fiat amount of a range order.
type FiatAmountState struct {
	OrderID string       `json:"order_id"`
	Order   *model.Order `json:"order,omitempty"`
	Caller  *model.User  `json:"caller,omitempty"`
}

func (w *wizardUC) fiatAmountDefinition() wizard.Definition {
	return wizard.Definition{
		ID:       FiatAmountWizardID,
		NewState: func() any { return &FiatAmountState{} },
		Steps: []wizard.Step{{
			Name:   "fiat_amount",
			Enter:  w.enterFiatAmount,
			Handle: w.handleFiatAmount,
		}},
	}
}

func (w *wizardUC) enterFiatAmount(ctx context.Context, t wizard.Turn, s any) (any, error) {
	st, err := state[FiatAmountState](s)
	if err != nil {
		return nil, err
	}
	if st.Order == nil {
		if st.Order, err = w.order(ctx, st.OrderID); err != nil {
			return nil, err
		}
	}
	st.OrderID = st.Order.ID
	if st.Caller == nil {
		if st.Caller, err = w.caller(ctx, t.UserID); err != nil {
			return nil, err
		}
	}
	o := st.Order
	if !o.IsRange() {
		return nil, fmt.Errorf("order %s has a fixed amount: %w", o.ID, domain.ErrInvalidArgument)
	}

	key := "fiat_amount_prompt_sell"
	if o.Type == model.OrderTypeBuy {
		key = "fiat_amount_prompt_buy"
	}
	if err := w.deps.Sender.Send(ctx, t.UserID, key, w.currencyPlural(o.FiatCode), o.MinAmount, o.MaxAmount); err != nil {
		return nil, err
	}
	return st, nil
}

func (w *wizardUC) handleFiatAmount(ctx context.Context, t wizard.Turn, s any) (wizard.Result, error) {
	st, err := state[FiatAmountState](s)
	if err != nil {
		return wizard.Result{}, err
	}
	warn := wizard.Say("fiat_amount_out_of_range", st.Order.MinAmount, st.Order.MaxAmount)
	amount, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil || !st.Order.InRange(amount) {
		return wizard.Repeat(warn), nil
	}

	o, err := w.order(ctx, st.OrderID)
	if err != nil {
		return wizard.Result{}, err
	}
	o.FiatAmount = amount
	o.Touch()
	if err := w.deps.Orders.Save(ctx, repository.NoTX, o); err != nil {
		return wizard.Result{}, fmt.Errorf("save order %s: %w", o.ID, err)
	}
	if err := w.deps.Sender.Send(ctx, t.UserID, "fiat_amount_chosen", w.currencySymbol(o.FiatCode), amount); err != nil {
		w.log.Warn().Err(err).Str("order_id", o.ID).Msg("failed to confirm fiat amount")
	}

	if o.Type == model.OrderTypeSell {
		err = w.deps.Actions.RequestInvoice(ctx, o)
	} else {
		err = w.deps.Actions.ShowHoldInvoice(ctx, o)
	}
	if err != nil {
		return wizard.Result{}, err
	}
	return wizard.Terminate(nil), nil
}
