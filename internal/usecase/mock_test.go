//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/adapter"
	"telegram-p2p-trading/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Users ----

type MockUserRepo struct {
	mu   sync.Mutex
	byID map[string]*model.User
	byTG map[int64]*model.User

	SaveFunc             func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByTelegramIDFunc func(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error)
	FindByUsernameFunc   func(ctx context.Context, tx repository.Tx, username string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{byID: map[string]*model.User{}, byTG: map[int64]*model.User{}}
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	r.byID[cp.ID] = &cp
	r.byTG[cp.TelegramID] = &cp
	return nil
}

func (r *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if r.FindByTelegramIDFunc != nil {
		return r.FindByTelegramIDFunc(ctx, tx, tgID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byTG[tgID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	if r.FindByUsernameFunc != nil {
		return r.FindByUsernameFunc(ctx, tx, username)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Username, model.NormalizeUsername(username)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// seed stores a user and returns it.
func (r *MockUserRepo) seed(tgID int64, username string) *model.User {
	u, _ := model.NewUser("", tgID, username)
	_ = r.Save(context.Background(), nil, u)
	return u
}

// ---- Orders ----

type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order
	Saves  int

	SaveFunc     func(ctx context.Context, tx repository.Tx, o *model.Order) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Order, error)
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{orders: map[string]*model.Order{}}
}

func (r *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, o)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	r.Saves++
	return nil
}

func (r *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockOrderRepo) ListWaitingInvoiceOlderThan(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.Status == model.OrderStatusWaitingBuyerInvoice && o.TakenAt != nil && o.TakenAt.Before(before) {
			cp := *o
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MockOrderRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

// put stores o without counting it as a save.
func (r *MockOrderRepo) put(o *model.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
}

func (r *MockOrderRepo) get(id string) *model.Order {
	o, _ := r.FindByID(context.Background(), nil, id)
	return o
}

// ---- Communities ----

type MockCommunityRepo struct {
	mu    sync.Mutex
	items map[string]*model.Community
	Saves int

	ExistsByNameFunc func(ctx context.Context, tx repository.Tx, name string) (bool, error)
}

var _ repository.CommunityRepository = (*MockCommunityRepo)(nil)

func NewMockCommunityRepo() *MockCommunityRepo {
	return &MockCommunityRepo{items: map[string]*model.Community{}}
}

func (r *MockCommunityRepo) Save(ctx context.Context, tx repository.Tx, c *model.Community) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.ID] = &cp
	r.Saves++
	return nil
}

func (r *MockCommunityRepo) FindByIDAndOwner(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.CreatorID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockCommunityRepo) ExistsByName(ctx context.Context, tx repository.Tx, name string) (bool, error) {
	if r.ExistsByNameFunc != nil {
		return r.ExistsByNameFunc(ctx, tx, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockCommunityRepo) all() []*model.Community {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Community, 0, len(r.items))
	for _, c := range r.items {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

func (r *MockCommunityRepo) put(c *model.Community) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.ID] = &cp
}

// ---- Pending payments ----

type MockPendingPaymentRepo struct {
	mu    sync.Mutex
	items []*model.PendingPayment

	FindUnpaidByOrderFunc func(ctx context.Context, tx repository.Tx, orderID string, maxAttempts int) (*model.PendingPayment, error)
}

var _ repository.PendingPaymentRepository = (*MockPendingPaymentRepo)(nil)

func NewMockPendingPaymentRepo() *MockPendingPaymentRepo { return &MockPendingPaymentRepo{} }

func (r *MockPendingPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items = append(r.items, &cp)
	return nil
}

func (r *MockPendingPaymentRepo) FindUnpaidByOrder(ctx context.Context, tx repository.Tx, orderID string, maxAttempts int) (*model.PendingPayment, error) {
	if r.FindUnpaidByOrderFunc != nil {
		return r.FindUnpaidByOrderFunc(ctx, tx, orderID, maxAttempts)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.OrderID == orderID && !p.Paid && !p.InvoiceExpired && p.Attempts < maxAttempts {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPendingPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// ---- Transactions ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

type SentMessage struct {
	TelegramID int64
	Key        string
	Args       []any
}

type MockSender struct {
	mu   sync.Mutex
	Sent []SentMessage

	SendFunc func(ctx context.Context, telegramID int64, key string, args ...any) error
}

var _ adapter.Sender = (*MockSender)(nil)

func (m *MockSender) Send(ctx context.Context, telegramID int64, key string, args ...any) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentMessage{TelegramID: telegramID, Key: key, Args: args})
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, telegramID, key, args...)
	}
	return nil
}

func (m *MockSender) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Sent))
	for _, s := range m.Sent {
		out = append(out, s.Key)
	}
	return out
}

func (m *MockSender) last() SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMessage{}
	}
	return m.Sent[len(m.Sent)-1]
}

func (m *MockSender) reset() {
	m.mu.Lock()
	m.Sent = nil
	m.mu.Unlock()
}

// MockInvoiceValidator accepts the requests registered in Valid.
type MockInvoiceValidator struct {
	Valid        map[string]*adapter.Invoice
	ValidateFunc func(ctx context.Context, request string) (*adapter.Invoice, error)
}

var _ adapter.InvoiceValidator = (*MockInvoiceValidator)(nil)

func (m *MockInvoiceValidator) Validate(ctx context.Context, request string) (*adapter.Invoice, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, request)
	}
	if inv, ok := m.Valid[request]; ok {
		cp := *inv
		cp.Request = request
		return &cp, nil
	}
	return nil, &adapter.InvoiceError{Key: "invoice_invalid", Reason: "unknown test invoice"}
}

// MockAdminChecker answers from Admins; unknown chats are not administered.
type MockAdminChecker struct {
	mu     sync.Mutex
	Admins map[string]bool
	Err    error
	Calls  []string
}

var _ adapter.ChatAdminChecker = (*MockAdminChecker)(nil)

func (m *MockAdminChecker) IsChatAdmin(ctx context.Context, chatRef string, telegramID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, chatRef)
	if m.Err != nil {
		return false, m.Err
	}
	return m.Admins[chatRef], nil
}

type MockLightningNode struct {
	InFlight              bool
	InFlightErr           error
	CreateHoldInvoiceFunc func(ctx context.Context, amount int64, description string) (*adapter.HoldInvoice, error)
}

var _ adapter.LightningNode = (*MockLightningNode)(nil)

func (m *MockLightningNode) CreateHoldInvoice(ctx context.Context, amount int64, description string) (*adapter.HoldInvoice, error) {
	if m.CreateHoldInvoiceFunc != nil {
		return m.CreateHoldInvoiceFunc(ctx, amount, description)
	}
	return &adapter.HoldInvoice{Request: "lnbcrt-hold", Hash: "hash-1", Secret: "secret-1"}, nil
}

func (m *MockLightningNode) IsPaymentInFlight(ctx context.Context, request string) (bool, error) {
	return m.InFlight, m.InFlightErr
}

type MockCurrencyCatalog struct{}

var _ adapter.CurrencyCatalog = MockCurrencyCatalog{}

func (MockCurrencyCatalog) Lookup(code string) (adapter.Currency, bool) {
	switch strings.ToUpper(code) {
	case "USD":
		return adapter.Currency{Code: "USD", Symbol: "$", SymbolNative: "$", Name: "US Dollar", NamePlural: "US dollars"}, true
	case "EUR":
		return adapter.Currency{Code: "EUR", Symbol: "€", SymbolNative: "€", Name: "Euro", NamePlural: "euros"}, true
	case "VES":
		return adapter.Currency{Code: "VES", Symbol: "Bs.", SymbolNative: "Bs.", Name: "Venezuelan Bolívar", NamePlural: "Venezuelan bolívars"}, true
	}
	return adapter.Currency{}, false
}

// =============================
// Order actions
// =============================

type MockOrderActions struct {
	mu              sync.Mutex
	WaitPayments    []string
	RequestInvoices []string
	HoldInvoices    []string

	WaitPaymentFunc func(ctx context.Context, o *model.Order, buyer, seller *model.User, invoice string) error
}

func (m *MockOrderActions) WaitPayment(ctx context.Context, o *model.Order, buyer, seller *model.User, invoice string) error {
	m.mu.Lock()
	m.WaitPayments = append(m.WaitPayments, o.ID)
	m.mu.Unlock()
	if m.WaitPaymentFunc != nil {
		return m.WaitPaymentFunc(ctx, o, buyer, seller, invoice)
	}
	return nil
}

func (m *MockOrderActions) RequestInvoice(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestInvoices = append(m.RequestInvoices, o.ID)
	return nil
}

func (m *MockOrderActions) ShowHoldInvoice(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HoldInvoices = append(m.HoldInvoices, o.ID)
	return nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
