package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ CommunityUseCase = (*communityUC)(nil)

// CommunityUseCase persists communities built by the community wizards.
type CommunityUseCase interface {
	Create(ctx context.Context, c *model.Community) error
	Update(ctx context.Context, c *model.Community) error
	// GetOwned returns domain.ErrNotFound for missing and foreign communities alike.
	GetOwned(ctx context.Context, id, ownerID string) (*model.Community, error)
	NameTaken(ctx context.Context, name string) (bool, error)
}

type communityUC struct {
	repo repository.CommunityRepository
	log  *zerolog.Logger
}

func NewCommunityUseCase(repo repository.CommunityRepository, logger *zerolog.Logger) *communityUC {
	return &communityUC{repo: repo, log: logger}
}

func (u *communityUC) Create(ctx context.Context, c *model.Community) error {
	defer logging.TraceDuration(u.log, "CommunityUC.Create")()
	if !c.Complete() || !model.ValidCommunityName(c.Name) {
		return fmt.Errorf("community %q is incomplete: %w", c.Name, domain.ErrInvalidArgument)
	}
	taken, err := u.NameTaken(ctx, c.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("community %q: %w", c.Name, domain.ErrAlreadyExists)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if err := u.repo.Save(ctx, repository.NoTX, c); err != nil {
		return fmt.Errorf("save community %s: %w", c.ID, err)
	}
	u.log.Info().Str("community_id", c.ID).Str("name", c.Name).Str("creator_id", c.CreatorID).Msg("community created")
	return nil
}

func (u *communityUC) Update(ctx context.Context, c *model.Community) error {
	defer logging.TraceDuration(u.log, "CommunityUC.Update")()
	if err := u.repo.Save(ctx, repository.NoTX, c); err != nil {
		return fmt.Errorf("save community %s: %w", c.ID, err)
	}
	return nil
}

func (u *communityUC) GetOwned(ctx context.Context, id, ownerID string) (*model.Community, error) {
	defer logging.TraceDuration(u.log, "CommunityUC.GetOwned")()
	c, err := u.repo.FindByIDAndOwner(ctx, repository.NoTX, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("community %s: %w", id, err)
	}
	if !c.OwnedBy(ownerID) {
		return nil, fmt.Errorf("community %s: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

func (u *communityUC) NameTaken(ctx context.Context, name string) (bool, error) {
	ok, err := u.repo.ExistsByName(ctx, repository.NoTX, strings.TrimSpace(name))
	if err != nil {
		return false, fmt.Errorf("community name lookup: %w", err)
	}
	return ok, nil
}
