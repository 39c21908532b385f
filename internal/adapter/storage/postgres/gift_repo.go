package postgres

import (
	"context"
	"errors"
	"fmt"

	"channel-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GiftRepo implements ports.GiftRepository over the gift catalog table.
type GiftRepo struct {
	pool Pool
}

func NewGiftRepo(pool Pool) *GiftRepo {
	return &GiftRepo{pool: pool}
}

func (r *GiftRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Gift, error) {
	query := `SELECT id, name, icon_url FROM gifts WHERE id = $1`

	g := &domain.Gift{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.IconURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get gift by id: %w", err)
	}
	return g, nil
}

func (r *GiftRepo) List(ctx context.Context) ([]domain.Gift, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, icon_url FROM gifts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list gifts: %w", err)
	}
	defer rows.Close()

	var gifts []domain.Gift
	for rows.Next() {
		g := domain.Gift{}
		if err := rows.Scan(&g.ID, &g.Name, &g.IconURL); err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}
