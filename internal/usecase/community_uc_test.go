//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/usecase"
)

func TestCommunityUseCase_Create(t *testing.T) {
	ctx := context.Background()
	complete := func() *model.Community {
		c := model.NewCommunityDraft("owner-1")
		c.Name = "MyComm"
		c.Currencies = []string{"USD"}
		c.Group = "@g"
		c.OrderChannels = model.ChannelsFor([]string{"@c"})
		c.DisputeChannel = "@d"
		return c
	}

	t.Run("should save complete communities", func(t *testing.T) {
		repo := NewMockCommunityRepo()
		uc := usecase.NewCommunityUseCase(repo, newTestLogger())
		c := complete()
		if err := uc.Create(ctx, c); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if repo.Saves != 1 || c.CreatedAt.IsZero() {
			t.Errorf("expected one save with a creation time")
		}
	})

	t.Run("should refuse drafts", func(t *testing.T) {
		repo := NewMockCommunityRepo()
		uc := usecase.NewCommunityUseCase(repo, newTestLogger())
		c := complete()
		c.DisputeChannel = ""
		if err := uc.Create(ctx, c); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if repo.Saves != 0 {
			t.Errorf("draft was saved")
		}
	})

	t.Run("should refuse taken names", func(t *testing.T) {
		repo := NewMockCommunityRepo()
		repo.ExistsByNameFunc = func(context.Context, repository.Tx, string) (bool, error) { return true, nil }
		uc := usecase.NewCommunityUseCase(repo, newTestLogger())
		if err := uc.Create(ctx, complete()); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestCommunityUseCase_GetOwned(t *testing.T) {
	ctx := context.Background()
	repo := NewMockCommunityRepo()
	repo.put(&model.Community{ID: "c-1", Name: "MyComm", CreatorID: "owner-1"})
	uc := usecase.NewCommunityUseCase(repo, newTestLogger())

	if _, err := uc.GetOwned(ctx, "c-1", "owner-1"); err != nil {
		t.Fatalf("GetOwned() failed: %v", err)
	}
	if _, err := uc.GetOwned(ctx, "c-1", "intruder"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a foreign community, got %v", err)
	}
	if _, err := uc.GetOwned(ctx, "missing", "owner-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing community, got %v", err)
	}
}
