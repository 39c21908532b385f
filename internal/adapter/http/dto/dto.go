package dto

import (
	"channel-market/internal/core/domain"

	"github.com/shopspring/decimal"
)

// TelegramLoginRequest is the request body for Mini App login.
type TelegramLoginRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// AdminLoginRequest is the request body for the admin panel login.
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string       `json:"token"`
	Expiry int64        `json:"expiry"` // Unix timestamp
	User   *domain.User `json:"user,omitempty"`
}

// RegisterUserRequest is the request body for user registration.
type RegisterUserRequest struct {
	TelegramID int64   `json:"telegram_id" binding:"required"`
	Username   string  `json:"username" binding:"required,min=1,max=64,safe_id"`
	ReferrerID *string `json:"referrer_id,omitempty" binding:"omitempty,uuid"`
}

// DepositRequest is the request body for crediting an external top-up.
// Reference is the on-chain transaction id and doubles as the idempotency key.
type DepositRequest struct {
	Reference string          `json:"reference" binding:"required,max=128,safe_id"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// BalanceAdjustRequest is the request body for an admin balance adjustment.
// Delta may be negative; the result must not take the balance below zero.
type BalanceAdjustRequest struct {
	Delta decimal.Decimal `json:"delta" binding:"required"`
}

// CreateChannelRequest is the request body for creating a listing.
type CreateChannelRequest struct {
	Name     string              `json:"name" binding:"required,min=1,max=128"`
	Link     string              `json:"link" binding:"required,channel_link"`
	Price    decimal.Decimal     `json:"price" binding:"required"`
	OwnerID  *string             `json:"owner_id,omitempty" binding:"omitempty,uuid"`
	Category string              `json:"category" binding:"required"`
	Gifts    []BundleItemRequest `json:"gifts" binding:"required,dive"`
}

// BundleItemRequest is one (gift type, quantity) pair of a listing bundle.
type BundleItemRequest struct {
	GiftID   string `json:"gift_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CreatePurchaseRequest is the request body for initiating a purchase.
// Price is advisory; settlement always uses the listing price.
type CreatePurchaseRequest struct {
	BuyerID   string          `json:"buyerId" binding:"required,uuid"`
	SellerID  *string         `json:"sellerId,omitempty" binding:"omitempty,uuid"`
	ChannelID string          `json:"channelId" binding:"required,uuid"`
	GiftID    string          `json:"giftId" binding:"required,uuid"`
	Price     decimal.Decimal `json:"price" binding:"required"`
}

// SettlementStatsResponse is the response for the admin settlement dashboard.
type SettlementStatsResponse struct {
	Total               int64           `json:"total"`
	PendingConfirmation int64           `json:"pending_confirmation"`
	PendingTransfer     int64           `json:"pending_transfer"`
	TransferInProgress  int64           `json:"transfer_in_progress"`
	TransferCompleted   int64           `json:"transfer_completed"`
	SettledVolume       decimal.Decimal `json:"settled_volume"`
}
