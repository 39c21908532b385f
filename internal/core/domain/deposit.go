package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deposit is an immutable record of an external TON top-up credited to a
// user's balance. The reference is the on-chain transaction identifier the
// wallet layer reports; it doubles as the idempotency key.
type Deposit struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"` // TON
	CreatedAt time.Time       `json:"created_at"`
}

// IdempotencyLog is the durable record of an already-processed deposit,
// keyed so that retried wallet callbacks return the original response.
type IdempotencyLog struct {
	Key          string    `json:"key"`
	DepositID    uuid.UUID `json:"deposit_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildDepositIdempotencyKey builds the idempotency key for a deposit.
func BuildDepositIdempotencyKey(userID uuid.UUID, reference string) string {
	return fmt.Sprintf("deposit:%s:%s", userID.String(), reference)
}

// ReferralBonusRate is the share of each deposit credited to the
// depositor's referrer.
var ReferralBonusRate = decimal.NewFromFloat(0.05)
