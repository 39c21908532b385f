package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PurchaseRepo implements ports.PurchaseRepository.
type PurchaseRepo struct {
	pool Pool
}

// NewPurchaseRepo creates a new PurchaseRepo.
func NewPurchaseRepo(pool Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const purchaseColumns = `id, buyer_id, seller_id, channel_id, gift_id, price, status,
		buyer_confirmed, seller_confirmed, buyer_debited, seller_credited,
		buyer_notified_at, confirm_expires_at, created_at`

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	p := &domain.Purchase{}
	err := row.Scan(
		&p.ID, &p.BuyerID, &p.SellerID, &p.ChannelID, &p.GiftID, &p.Price, &p.Status,
		&p.BuyerConfirmed, &p.SellerConfirmed, &p.BuyerDebited, &p.SellerCredited,
		&p.BuyerNotifiedAt, &p.ConfirmExpires, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a purchase row within a transaction.
func (r *PurchaseRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Purchase) error {
	query := `INSERT INTO purchases (id, buyer_id, seller_id, channel_id, gift_id, price, status,
			buyer_confirmed, seller_confirmed, buyer_debited, seller_credited,
			buyer_notified_at, confirm_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.BuyerID, p.SellerID, p.ChannelID, p.GiftID, p.Price, p.Status,
		p.BuyerConfirmed, p.SellerConfirmed, p.BuyerDebited, p.SellerCredited,
		p.BuyerNotifiedAt, p.ConfirmExpires, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// GetByID fetches a purchase by id.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	p, err := scanPurchase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase by id: %w", err)
	}
	return p, nil
}

// GetByIDForUpdate fetches a purchase with pessimistic locking so concurrent
// confirm calls for the same purchase serialize.
// This MUST be called within a transaction.
func (r *PurchaseRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1 FOR UPDATE`

	p, err := scanPurchase(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase for update: %w", err)
	}
	return p, nil
}

// Update persists confirmation flags, derived status and the credit flag
// within a transaction.
func (r *PurchaseRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Purchase) error {
	query := `UPDATE purchases SET status = $1, buyer_confirmed = $2, seller_confirmed = $3,
			seller_credited = $4
		WHERE id = $5`

	tag, err := tx.Exec(ctx, query,
		p.Status, p.BuyerConfirmed, p.SellerConfirmed, p.SellerCredited, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase not found: %s", p.ID)
	}
	return nil
}

// ListByChannel returns all purchases referencing a channel listing.
func (r *PurchaseRepo) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE channel_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, channelID)
}

// ListBySeller returns all purchases where the given user is the seller.
func (r *PurchaseRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE seller_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, sellerID)
}

// ListUnarmed returns purchases past the arming delay whose confirmation
// window is still closed. The sweep re-reads survivors of a crashed process,
// so no notification is ever lost to a restart.
func (r *PurchaseRepo) ListUnarmed(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases
		WHERE buyer_notified_at IS NULL AND created_at <= $1
		ORDER BY created_at
		LIMIT $2`
	return r.list(ctx, query, createdBefore, limit)
}

// Arm opens the confirmation window. The WHERE clause makes the update
// conditional, so concurrent sweeps arm a purchase at most once.
func (r *PurchaseRepo) Arm(ctx context.Context, id uuid.UUID, notifiedAt, expiresAt time.Time) (bool, error) {
	query := `UPDATE purchases SET buyer_notified_at = $1, confirm_expires_at = $2
		WHERE id = $3 AND buyer_notified_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, notifiedAt, expiresAt, id)
	if err != nil {
		return false, fmt.Errorf("arm purchase: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetStats aggregates purchase counts per status and the settled volume.
func (r *PurchaseRepo) GetStats(ctx context.Context) (*ports.SettlementStats, error) {
	query := `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending_confirmation'),
			COUNT(*) FILTER (WHERE status = 'pending_transfer'),
			COUNT(*) FILTER (WHERE status = 'transfer_in_progress'),
			COUNT(*) FILTER (WHERE status = 'transfer_completed'),
			COALESCE(SUM(price) FILTER (WHERE status = 'transfer_completed'), 0)
		FROM purchases`

	stats := &ports.SettlementStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.PendingConfirmation, &stats.PendingTransfer,
		&stats.TransferInProgress, &stats.TransferCompleted, &stats.SettledVolume,
	)
	if err != nil {
		return nil, fmt.Errorf("get settlement stats: %w", err)
	}
	return stats, nil
}

func (r *PurchaseRepo) list(ctx context.Context, query string, args ...any) ([]domain.Purchase, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		p := domain.Purchase{}
		if err := rows.Scan(
			&p.ID, &p.BuyerID, &p.SellerID, &p.ChannelID, &p.GiftID, &p.Price, &p.Status,
			&p.BuyerConfirmed, &p.SellerConfirmed, &p.BuyerDebited, &p.SellerCredited,
			&p.BuyerNotifiedAt, &p.ConfirmExpires, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
