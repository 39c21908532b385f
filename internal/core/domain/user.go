package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a balance holder identified by a Telegram account. The balance is
// created at zero and afterwards mutated only through signed-delta updates;
// it is never overwritten with an absolute value.
type User struct {
	ID           uuid.UUID       `json:"id"`
	TelegramID   int64           `json:"telegram_id"`
	Username     string          `json:"username"`
	Balance      decimal.Decimal `json:"balance"` // TON
	IsAdmin      bool            `json:"is_admin"`
	PasswordHash *string         `json:"-"` // set for admin accounts only
	ReferrerID   *uuid.UUID      `json:"referrer_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CanAfford reports whether the balance covers the given price.
func (u *User) CanAfford(price decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(price)
}
