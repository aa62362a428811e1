//go:build !integration

package web

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/wizard"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type mockSessions struct {
	sessions map[int64]*wizard.Session
	err      error
	aborted  []int64
}

func (m *mockSessions) Session(ctx context.Context, userID int64) (*wizard.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[userID]
	if !ok {
		return nil, wizard.ErrNoSession
	}
	return s, nil
}

func (m *mockSessions) Abort(ctx context.Context, userID int64) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sessions[userID]; !ok {
		return wizard.ErrNoSession
	}
	delete(m.sessions, userID)
	m.aborted = append(m.aborted, userID)
	return nil
}

type mockOrders struct{ orders map[string]*model.Order }

func (m *mockOrders) FindOrder(ctx context.Context, id string) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func newTestServer() (*Server, *mockSessions, *AuthManager) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions := &mockSessions{sessions: map[int64]*wizard.Session{
		42: {ID: "01HX", UserID: 42, WizardID: "COMMUNITY_WIZARD", StepIndex: 2, State: map[string]any{"name": "x"}, CreatedAt: at, UpdatedAt: at},
	}}
	orders := &mockOrders{orders: map[string]*model.Order{
		"o-1": {ID: "o-1", Status: model.OrderStatusWaitingPayment, Amount: 1000, Secret: "preimage", Hash: "hash"},
	}}
	auth := NewAuthManager("test-admin-jwt-secret-please-change", time.Minute)
	return NewServer(sessions, orders, auth, 0, newTestLogger()), sessions, auth
}
