package ports

import (
	"context"
	"time"

	"channel-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for users. It doubles as the
// ledger capability: every balance change goes through ApplyDelta as an
// atomic signed-delta update, never an absolute overwrite.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetByIDForUpdate locks the user row. MUST be called within a transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error)
	ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta decimal.Decimal) error
	ListReferrals(ctx context.Context, referrerID uuid.UUID) ([]domain.User, error)
}

// ChannelRepository defines persistence operations for channel listings.
type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	List(ctx context.Context) ([]domain.Channel, error)
	// Delete reports false when no listing with the given id existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// GiftRepository serves the static collectible catalog.
type GiftRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Gift, error)
	List(ctx context.Context) ([]domain.Gift, error)
}

// PurchaseRepository defines persistence operations for settlement records.
// Methods accepting pgx.Tx run inside transaction blocks so confirm calls for
// the same purchase serialize on the row lock.
type PurchaseRepository interface {
	Create(ctx context.Context, tx pgx.Tx, purchase *domain.Purchase) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error)
	Update(ctx context.Context, tx pgx.Tx, purchase *domain.Purchase) error
	ListByChannel(ctx context.Context, channelID uuid.UUID) ([]domain.Purchase, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Purchase, error)
	// ListUnarmed returns purchases whose confirmation window has not been
	// opened yet and that were created before the cutoff.
	ListUnarmed(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Purchase, error)
	// Arm opens the confirmation window with a single conditional update.
	// Returns false if the purchase was already armed (or does not exist).
	Arm(ctx context.Context, id uuid.UUID, notifiedAt, expiresAt time.Time) (bool, error)
	GetStats(ctx context.Context) (*SettlementStats, error)
}

// SettlementStats aggregates purchase counts and settled volume.
type SettlementStats struct {
	Total               int64
	PendingConfirmation int64
	PendingTransfer     int64
	TransferInProgress  int64
	TransferCompleted   int64
	SettledVolume       decimal.Decimal
}

// DepositRepository persists deposits and their durable idempotency log.
type DepositRepository interface {
	Create(ctx context.Context, tx pgx.Tx, deposit *domain.Deposit) error
	CreateLog(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	GetLog(ctx context.Context, key string) (*domain.IdempotencyLog, error)
	// SumAmountByUsers returns the total deposited by the given users,
	// used for referral earnings summaries.
	SumAmountByUsers(ctx context.Context, userIDs []uuid.UUID) (decimal.Decimal, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
