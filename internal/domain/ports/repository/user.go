package repository

import (
	"context"

	"telegram-p2p-trading/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// FindByUsername matches case-insensitively and without the leading @.
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
}
