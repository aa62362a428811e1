package repository

import (
	"context"

	"telegram-p2p-trading/internal/domain/model"
)

// -----------------------------
// Communities
// -----------------------------

type CommunityRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Community) error
	// FindByIDAndOwner returns domain.ErrNotFound both when the community does
	// not exist and when ownerID is not its creator.
	FindByIDAndOwner(ctx context.Context, tx Tx, id, ownerID string) (*model.Community, error)
	ExistsByName(ctx context.Context, tx Tx, name string) (bool, error)
}
