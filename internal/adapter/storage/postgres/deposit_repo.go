package postgres

import (
	"context"
	"errors"
	"fmt"

	"channel-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DepositRepo implements ports.DepositRepository. The idempotency log
// lives next to the deposits so both rows commit in the same transaction.
type DepositRepo struct {
	pool Pool
}

func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

func (r *DepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	query := `INSERT INTO deposits (id, user_id, amount, reference, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, query, d.ID, d.UserID, d.Amount, d.Reference, d.CreatedAt); err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

func (r *DepositRepo) CreateLog(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	query := `INSERT INTO idempotency_logs (key, deposit_id, response_json, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, query, log.Key, log.DepositID, log.ResponseJSON, log.CreatedAt); err != nil {
		return fmt.Errorf("insert idempotency log: %w", err)
	}
	return nil
}

func (r *DepositRepo) GetLog(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	query := `SELECT key, deposit_id, response_json, created_at
		FROM idempotency_logs WHERE key = $1`

	log := &domain.IdempotencyLog{}
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&log.Key, &log.DepositID, &log.ResponseJSON, &log.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency log: %w", err)
	}
	return log, nil
}

// SumAmountByUsers totals deposits across a set of users. Used for
// referral summaries; an empty set sums to zero without hitting the DB.
func (r *DepositRepo) SumAmountByUsers(ctx context.Context, userIDs []uuid.UUID) (decimal.Decimal, error) {
	if len(userIDs) == 0 {
		return decimal.Zero, nil
	}

	query := `SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE user_id = ANY($1)`

	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, userIDs).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum deposits: %w", err)
	}
	return total, nil
}
