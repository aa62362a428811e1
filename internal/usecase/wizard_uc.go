package usecase

import (
	"context"
	"errors"
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

const (
	AddInvoiceWizardID    = "ADD_INVOICE_WIZARD"
	AddInvoicePHIWizardID = "ADD_INVOICE_PHI_WIZARD"
	CommunityWizardID     = "COMMUNITY_WIZARD"
	FiatAmountWizardID    = "ADD_FIAT_AMOUNT_WIZARD"
)

// CommunityField names a community attribute an update wizard edits.
type CommunityField string

const (
	FieldName           CommunityField = "NAME"
	FieldGroup          CommunityField = "GROUP"
	FieldCurrencies     CommunityField = "CURRENCIES"
	FieldChannels       CommunityField = "CHANNELS"
	FieldSolvers        CommunityField = "SOLVERS"
	FieldDisputeChannel CommunityField = "DISPUTE_CHANNEL"
)

var CommunityFields = []CommunityField{
	FieldName, FieldGroup, FieldCurrencies, FieldChannels, FieldSolvers, FieldDisputeChannel,
}

// UpdateWizardID returns the id of the wizard editing f, e.g.
// UPDATE_NAME_COMMUNITY_WIZARD.
func UpdateWizardID(f CommunityField) string {
	return fmt.Sprintf("UPDATE_%s_COMMUNITY_WIZARD", f)
}

// WizardDeps are the collaborators the wizard steps consume.
type WizardDeps struct {
	Users       repository.UserRepository
	Orders      repository.OrderRepository
	Pending     repository.PendingPaymentRepository
	Communities CommunityUseCase
	Tx          repository.TransactionManager
	Invoices    adapter.InvoiceValidator
	Admins      adapter.ChatAdminChecker
	Node        adapter.LightningNode
	Currencies  adapter.CurrencyCatalog
	Sender      adapter.Sender
	Actions     OrderActions
}

type WizardSettings struct {
	// HoldInvoiceExpiration is the window the buyer has to send an invoice.
	HoldInvoiceExpiration time.Duration
	// PaymentAttempts bounds payout retries of a pending payment.
	PaymentAttempts int
}

// WizardUseCase opens wizards. Each call returns once the first prompt was sent.
type WizardUseCase interface {
	StartAddInvoice(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error
	StartAddInvoicePHI(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error
	StartFiatAmount(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error
	StartCommunity(ctx context.Context, trig wizard.Trigger, tgID int64) error
	StartCommunityUpdate(ctx context.Context, trig wizard.Trigger, tgID int64, field CommunityField, communityID string) error
}

var _ WizardUseCase = (*wizardUC)(nil)

type wizardUC struct {
	deps     WizardDeps
	settings WizardSettings
	engine   *wizard.Engine
	log      *zerolog.Logger
}

// NewWizardUseCase registers every wizard definition on the engine's registry.
func NewWizardUseCase(deps WizardDeps, settings WizardSettings, engine *wizard.Engine, logger *zerolog.Logger) (*wizardUC, error) {
	if settings.PaymentAttempts <= 0 {
		settings.PaymentAttempts = 3
	}
	uc := &wizardUC{deps: deps, settings: settings, engine: engine, log: logger}
	for _, def := range uc.definitions() {
		if err := engine.Registry().Register(def); err != nil {
			return nil, err
		}
	}
	return uc, nil
}

// definitions returns all wizards this use case drives.
func (w *wizardUC) definitions() []wizard.Definition {
	defs := []wizard.Definition{
		w.addInvoiceDefinition(),
		w.addInvoicePHIDefinition(),
		w.communityDefinition(),
		w.fiatAmountDefinition(),
	}
	for _, f := range CommunityFields {
		defs = append(defs, w.communityUpdateDefinition(f))
	}
	return defs
}

func (w *wizardUC) StartAddInvoice(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error {
	defer logging.TraceDuration(w.log, "WizardUC.StartAddInvoice")()
	_, err := w.engine.Enter(ctx, trig, AddInvoiceWizardID, tgID, &AddInvoiceState{OrderID: orderID})
	return err
}

func (w *wizardUC) StartAddInvoicePHI(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error {
	defer logging.TraceDuration(w.log, "WizardUC.StartAddInvoicePHI")()
	_, err := w.engine.Enter(ctx, trig, AddInvoicePHIWizardID, tgID, &AddInvoiceState{OrderID: orderID})
	return err
}

func (w *wizardUC) StartFiatAmount(ctx context.Context, trig wizard.Trigger, tgID int64, orderID string) error {
	defer logging.TraceDuration(w.log, "WizardUC.StartFiatAmount")()
	_, err := w.engine.Enter(ctx, trig, FiatAmountWizardID, tgID, &FiatAmountState{OrderID: orderID})
	return err
}

func (w *wizardUC) StartCommunity(ctx context.Context, trig wizard.Trigger, tgID int64) error {
	defer logging.TraceDuration(w.log, "WizardUC.StartCommunity")()
	_, err := w.engine.Enter(ctx, trig, CommunityWizardID, tgID, &CommunityState{})
	return err
}

func (w *wizardUC) StartCommunityUpdate(ctx context.Context, trig wizard.Trigger, tgID int64, field CommunityField, communityID string) error {
	defer logging.TraceDuration(w.log, "WizardUC.StartCommunityUpdate")()
	_, err := w.engine.Enter(ctx, trig, UpdateWizardID(field), tgID, &CommunityUpdateState{CommunityID: communityID})
	return err
}

// caller resolves the Telegram user driving a session.
func (w *wizardUC) caller(ctx context.Context, tgID int64) (*model.User, error) {
	u, err := w.deps.Users.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return nil, fmt.Errorf("find caller %d: %w", tgID, err)
	}
	if u == nil {
		return nil, fmt.Errorf("find caller %d: %w", tgID, domain.ErrNotFound)
	}
	return u, nil
}

func (w *wizardUC) order(ctx context.Context, id string) (*model.Order, error) {
	o, err := w.deps.Orders.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	if o == nil {
		return nil, fmt.Errorf("find order %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

// currencySymbol prefers the native symbol, falling back to the ISO code.
func (w *wizardUC) currencySymbol(code string) string {
	if c, ok := w.deps.Currencies.Lookup(code); ok && c.SymbolNative != "" {
		return c.SymbolNative
	}
	return code
}

func (w *wizardUC) currencyPlural(code string) string {
	if c, ok := w.deps.Currencies.Lookup(code); ok && c.NamePlural != "" {
		return c.NamePlural
	}
	return code
}

// validateInvoice splits user-correctable invoice problems from validator
// failures. A non-nil notice means the reply should be repeated.
func (w *wizardUC) validateInvoice(ctx context.Context, text string) (*adapter.Invoice, *wizard.Notice, error) {
	inv, err := w.deps.Invoices.Validate(ctx, text)
	if err == nil {
		return inv, nil, nil
	}
	var invErr *adapter.InvoiceError
	if errors.As(err, &invErr) {
		return nil, wizard.Say(invErr.Key), nil
	}
	return nil, nil, fmt.Errorf("validate invoice: %w", err)
}

func state[T any](s any) (*T, error) {
	st, ok := s.(*T)
	if !ok || st == nil {
		return nil, fmt.Errorf("%w: unexpected wizard state %T", domain.ErrInvalidArgument, s)
	}
	return st, nil
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
