package application

import (
	"context"
	"errors"
	"fmt"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/usecase"
	"telegram-p2p-trading/internal/wizard"

	"github.com/rs/zerolog"
)

// Reply is a localized answer: a locale key plus its arguments. A nil *Reply
// means nothing has to be sent, usually because a wizard already answered.
type Reply struct {
	Key  string
	Args []any
}

func say(key string, args ...any) *Reply { return &Reply{Key: key, Args: args} }

// Caller is the Telegram user behind an update.
type Caller struct {
	TgID     int64
	Username string
}

// BotFacade composes use cases into the bot's commands. The Telegram adapter
// only parses updates and renders replies.
type BotFacade struct {
	Users    UserUseCaseIface
	Wizards  WizardUseCaseIface
	Sessions SessionDriver
	log      *zerolog.Logger
}

func NewBotFacade(users UserUseCaseIface, wizards WizardUseCaseIface, sessions SessionDriver, logger *zerolog.Logger) *BotFacade {
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		Users:    users,
		Wizards:  wizards,
		Sessions: sessions,
		log:      &l,
	}
}

// HandleStart registers or fetches the user and greets them. created reports
// whether this was the first /start.
func (b *BotFacade) HandleStart(ctx context.Context, c Caller) (reply *Reply, created bool, err error) {
	existing, err := b.Users.GetByTelegramID(ctx, c.TgID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if _, err := b.Users.RegisterOrFetch(ctx, c.TgID, c.Username); err != nil {
		return nil, false, fmt.Errorf("register/fetch user: %w", err)
	}
	name := c.Username
	if name == "" {
		name = fmt.Sprintf("%d", c.TgID)
	}
	return say("start_welcome", name), existing == nil, nil
}

func (b *BotFacade) HandleHelp() *Reply { return say("help") }

func (b *BotFacade) HandleCommunity(ctx context.Context, trig wizard.Trigger, c Caller) (*Reply, error) {
	return b.startWizard(ctx, c, func() error {
		return b.Wizards.StartCommunity(ctx, trig, c.TgID)
	})
}

func (b *BotFacade) HandleCommunityUpdate(ctx context.Context, trig wizard.Trigger, c Caller, field usecase.CommunityField, communityID string) (*Reply, error) {
	return b.startWizard(ctx, c, func() error {
		return b.Wizards.StartCommunityUpdate(ctx, trig, c.TgID, field, communityID)
	})
}

func (b *BotFacade) HandleFiatAmount(ctx context.Context, trig wizard.Trigger, c Caller, orderID string) (*Reply, error) {
	return b.startWizard(ctx, c, func() error {
		return b.Wizards.StartFiatAmount(ctx, trig, c.TgID, orderID)
	})
}

func (b *BotFacade) HandleAddInvoice(ctx context.Context, trig wizard.Trigger, c Caller, orderID string) (*Reply, error) {
	return b.startWizard(ctx, c, func() error {
		return b.Wizards.StartAddInvoice(ctx, trig, c.TgID, orderID)
	})
}

// HandleUpdateInvoice replaces the invoice of an order whose payout failed.
func (b *BotFacade) HandleUpdateInvoice(ctx context.Context, trig wizard.Trigger, c Caller, orderID string) (*Reply, error) {
	return b.startWizard(ctx, c, func() error {
		return b.Wizards.StartAddInvoicePHI(ctx, trig, c.TgID, orderID)
	})
}

// HandleCancel leaves the current wizard.
func (b *BotFacade) HandleCancel(ctx context.Context, c Caller) (*Reply, error) {
	err := b.Sessions.Abort(ctx, c.TgID)
	switch {
	case err == nil:
		return say(wizard.NoticeExit), nil
	case errors.Is(err, wizard.ErrNoSession):
		return say("no_active_wizard"), nil
	default:
		return nil, fmt.Errorf("abort session: %w", err)
	}
}

// HandleMessage forwards a non-command message to the user's wizard. Messages
// outside any wizard are ignored.
func (b *BotFacade) HandleMessage(ctx context.Context, c Caller, msg wizard.Message) (*Reply, error) {
	outcome, err := b.Sessions.Handle(ctx, c.TgID, msg)
	if errors.Is(err, wizard.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.log.Debug().Int64("tg_id", c.TgID).Str("outcome", string(outcome)).Msg("wizard reply handled")
	return nil, nil
}

// startWizard makes sure the caller is registered before opening a wizard.
// Step failures were already reported to the user by the engine.
func (b *BotFacade) startWizard(ctx context.Context, c Caller, start func() error) (*Reply, error) {
	if _, err := b.Users.RegisterOrFetch(ctx, c.TgID, c.Username); err != nil {
		return nil, fmt.Errorf("register/fetch user: %w", err)
	}
	err := start()
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, wizard.ErrNoActiveTrigger), errors.Is(err, wizard.ErrUnknownWizard):
		return nil, err
	default:
		b.log.Debug().Err(err).Int64("tg_id", c.TgID).Msg("wizard did not start")
		return nil, nil
	}
}
