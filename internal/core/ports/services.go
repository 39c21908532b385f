package ports

import (
	"context"
	"time"

	"channel-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Settlement (core) ---

// PurchaseService owns the purchase settlement lifecycle.
type PurchaseService interface {
	Initiate(ctx context.Context, in InitiatePurchaseInput) (*domain.Purchase, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID) ([]domain.Purchase, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Purchase, error)
	ConfirmBuyer(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	ConfirmSeller(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
}

// InitiatePurchaseInput holds validated input for purchase creation. Price is
// the client's view of the listing price; the settlement snapshot is always
// taken from the listing itself.
type InitiatePurchaseInput struct {
	BuyerID   uuid.UUID
	SellerID  *uuid.UUID
	ChannelID uuid.UUID
	GiftID    uuid.UUID
	Price     decimal.Decimal
}

// --- Listings ---

// ChannelService manages channel listings and the gift catalog.
type ChannelService interface {
	Create(ctx context.Context, in CreateChannelInput) (*domain.Channel, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	List(ctx context.Context) ([]domain.Channel, error)
	Delete(ctx context.Context, id uuid.UUID, actor *domain.User) error
	ListGifts(ctx context.Context) ([]domain.Gift, error)
}

// CreateChannelInput holds validated input for listing creation.
type CreateChannelInput struct {
	Name     string
	Link     string
	Price    decimal.Decimal
	OwnerID  *uuid.UUID
	Category domain.ChannelCategory
	Gifts    []domain.BundleItem
}

// --- Users & ledger ---

// UserService manages users and the non-settlement balance flows
// (deposits, admin adjustments, referral accounting).
type UserService interface {
	Register(ctx context.Context, in RegisterUserInput) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Deposit(ctx context.Context, in DepositInput) (*domain.Deposit, error)
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (*domain.User, error)
	ReferralSummary(ctx context.Context, userID uuid.UUID) (*ReferralSummary, error)
}

// RegisterUserInput holds validated input for user registration.
type RegisterUserInput struct {
	TelegramID int64
	Username   string
	ReferrerID *uuid.UUID
}

// DepositInput holds validated input for an external top-up. Reference is the
// on-chain transaction id and doubles as the idempotency key.
type DepositInput struct {
	UserID    uuid.UUID
	Reference string
	Amount    decimal.Decimal
}

// ReferralSummary aggregates a user's referral earnings.
type ReferralSummary struct {
	Referrals   int             `json:"referrals"`
	TotalEarned decimal.Decimal `json:"total_earned"`
}

// --- Auth ---

// AuthService authenticates Mini App users and admins.
type AuthService interface {
	LoginTelegram(ctx context.Context, initData string) (*AuthResult, error)
	LoginAdmin(ctx context.Context, username, password string) (string, time.Time, error)
}

// AuthResult is the outcome of a successful Mini App login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// TokenService handles JWT session token operations.
type TokenService interface {
	Generate(userID uuid.UUID, isAdmin bool) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// HashService handles admin password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// --- Reporting & audit ---

// StatsService exposes settlement aggregates for the admin dashboard.
type StatsService interface {
	GetSettlementStats(ctx context.Context) (*SettlementStats, error)
}

// AuditService records sensitive API actions.
type AuditService interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// --- External collaborators ---

// NotificationSink delivers "confirmation window opened" messages to the
// parties of a purchase. Delivery failures never block settlement.
type NotificationSink interface {
	NotifyPurchaseArmed(ctx context.Context, purchase *domain.Purchase, buyer, seller *domain.User) error
}

// ChannelVerifier checks channel admin status through the Bot API.
type ChannelVerifier interface {
	IsChannelAdmin(ctx context.Context, channelLink string, telegramID int64) (bool, error)
}

// --- Redis-backed stores ---

// IdempotencyCache is the fast-path deposit idempotency check.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ReplayStore tracks one-time tokens (Telegram init-data hashes) to prevent
// login replays.
type ReplayStore interface {
	// CheckAndSet returns true if the token is new within scope.
	CheckAndSet(ctx context.Context, scope string, token string, ttl time.Duration) (bool, error)
}
