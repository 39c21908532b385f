package postgres

import (
	"context"
	"errors"
	"fmt"

	"channel-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChannelRepo implements ports.ChannelRepository.
type ChannelRepo struct {
	pool Pool
}

// NewChannelRepo creates a new ChannelRepo.
func NewChannelRepo(pool Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

// Create inserts a listing together with its gift bundle in one transaction.
func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `INSERT INTO channels (id, name, link, price, owner_id, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(ctx, query,
		ch.ID, ch.Name, ch.Link, ch.Price, ch.OwnerID, ch.Category, ch.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}

	itemQuery := `INSERT INTO channel_gifts (channel_id, gift_id, quantity) VALUES ($1, $2, $3)`
	for _, item := range ch.Gifts {
		if _, err := tx.Exec(ctx, itemQuery, ch.ID, item.GiftID, item.Quantity); err != nil {
			return fmt.Errorf("insert channel gift: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID fetches a listing with its bundle joined against the gift catalog.
func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	query := `SELECT id, name, link, price, owner_id, category, created_at
		FROM channels WHERE id = $1`

	ch := &domain.Channel{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ch.ID, &ch.Name, &ch.Link, &ch.Price, &ch.OwnerID, &ch.Category, &ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel by id: %w", err)
	}

	gifts, err := r.loadBundle(ctx, id)
	if err != nil {
		return nil, err
	}
	ch.Gifts = gifts
	return ch, nil
}

// List returns all listings, newest first, without bundles.
func (r *ChannelRepo) List(ctx context.Context) ([]domain.Channel, error) {
	query := `SELECT id, name, link, price, owner_id, category, created_at
		FROM channels ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		ch := domain.Channel{}
		if err := rows.Scan(
			&ch.ID, &ch.Name, &ch.Link, &ch.Price, &ch.OwnerID, &ch.Category, &ch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// Delete removes a listing. Returns false when nothing was deleted; the
// bundle rows go with it via ON DELETE CASCADE.
func (r *ChannelRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ChannelRepo) loadBundle(ctx context.Context, channelID uuid.UUID) ([]domain.BundleItem, error) {
	query := `SELECT cg.gift_id, g.name, g.icon_url, cg.quantity
		FROM channel_gifts cg
		JOIN gifts g ON g.id = cg.gift_id
		WHERE cg.channel_id = $1`

	rows, err := r.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel bundle: %w", err)
	}
	defer rows.Close()

	var items []domain.BundleItem
	for rows.Next() {
		item := domain.BundleItem{}
		if err := rows.Scan(&item.GiftID, &item.GiftName, &item.IconURL, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan bundle item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
