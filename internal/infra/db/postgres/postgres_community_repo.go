package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
)

var _ repository.CommunityRepository = (*communityRepo)(nil)

type communityRepo struct{ pool *pgxpool.Pool }

func NewCommunityRepo(pool *pgxpool.Pool) *communityRepo {
	return &communityRepo{pool: pool}
}

// uniqueViolation is the SQLSTATE Postgres reports for a duplicate key.
const uniqueViolation = "23505"

func (r *communityRepo) Save(ctx context.Context, tx repository.Tx, c *model.Community) error {
	const q = `
INSERT INTO communities (
  id, name, currencies, group_ref, order_channels, solvers, dispute_channel, creator_id, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  name=$2, currencies=$3, group_ref=$4, order_channels=$5, solvers=$6, dispute_channel=$7;`

	channels, err := json.Marshal(c.OrderChannels)
	if err != nil {
		return err
	}
	solvers, err := json.Marshal(c.Solvers)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q, c.ID, c.Name, c.Currencies, c.Group, channels, solvers, c.DisputeChannel, c.CreatorID, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *communityRepo) FindByIDAndOwner(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.Community, error) {
	q := forUpdate(`
SELECT id, name, currencies, group_ref, order_channels, solvers, dispute_channel, creator_id, created_at
  FROM communities WHERE id=$1 AND creator_id=$2`, tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, id, ownerID)
	if err != nil {
		return nil, err
	}

	var (
		c                 model.Community
		channels, solvers []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Currencies, &c.Group, &channels, &solvers, &c.DisputeChannel, &c.CreatorID, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(channels, &c.OrderChannels); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(solvers, &c.Solvers); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}

func (r *communityRepo) ExistsByName(ctx context.Context, tx repository.Tx, name string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT EXISTS (SELECT 1 FROM communities WHERE lower(name)=lower($1));`, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
