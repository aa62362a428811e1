//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
)

func TestPendingPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPendingPaymentRepo(testPool)
	orders := NewOrderRepo(testPool)
	ctx := context.Background()

	t.Run("should only find payments below the attempt limit", func(t *testing.T) {
		cleanup(t)
		buyer := seedUser(t, 2, "buyer")
		o := &model.Order{ID: "o1", CreatorID: buyer.ID, BuyerID: buyer.ID, Type: model.OrderTypeBuy, Status: model.OrderStatusPaidHoldInvoice, Amount: 1000, FiatCode: "USD"}
		if err := orders.Save(ctx, nil, o); err != nil {
			t.Fatalf("save order: %v", err)
		}

		p := model.NewPendingPayment(o, buyer.ID, "lnbc1...")
		p.Attempts = 2
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.FindUnpaidByOrder(ctx, nil, "o1", 3)
		if err != nil {
			t.Fatalf("FindUnpaidByOrder failed: %v", err)
		}
		if got.ID != p.ID || got.Amount != 1000 {
			t.Errorf("unexpected payment: %+v", got)
		}

		if _, err := repo.FindUnpaidByOrder(ctx, nil, "o1", 2); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound once attempts are exhausted, got %v", err)
		}

		p.Paid = true
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if _, err := repo.FindUnpaidByOrder(ctx, nil, "o1", 3); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for a paid payment, got %v", err)
		}
	})
}
