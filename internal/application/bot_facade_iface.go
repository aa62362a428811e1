package application

import (
	"context"

	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/usecase"
	"telegram-p2p-trading/internal/wizard"
)

// Small views of the use cases so tests can pass light-weight fakes.

type UserUseCaseIface interface {
	RegisterOrFetch(ctx context.Context, tgID int64, username string) (*model.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
}

type WizardUseCaseIface interface {
	StartAddInvoice(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error
	StartAddInvoicePHI(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error
	StartFiatAmount(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error
	StartCommunity(ctx context.Context, trig wizard.Trigger, tgID int64) error
	StartCommunityUpdate(ctx context.Context, trig wizard.Trigger, tgID int64, field usecase.CommunityField, communityID string) error
}

// SessionDriver feeds replies to open wizards. *wizard.Engine satisfies it.
type SessionDriver interface {
	Handle(ctx context.Context, userID int64, msg wizard.Message) (wizard.Outcome, error)
	Abort(ctx context.Context, userID int64) error
}

var (
	_ UserUseCaseIface   = (usecase.UserUseCase)(nil)
	_ WizardUseCaseIface = (usecase.WizardUseCase)(nil)
	_ SessionDriver      = (*wizard.Engine)(nil)
)
