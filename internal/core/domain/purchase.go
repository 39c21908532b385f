package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus summarises how far a settlement has progressed. It is a
// projection of the two confirmation flags, never an independent source of
// truth; DeriveStatus is the single place the mapping lives.
type PurchaseStatus string

const (
	PurchaseStatusPendingConfirmation PurchaseStatus = "pending_confirmation"
	PurchaseStatusPendingTransfer     PurchaseStatus = "pending_transfer"
	PurchaseStatusTransferInProgress  PurchaseStatus = "transfer_in_progress"
	PurchaseStatusTransferCompleted   PurchaseStatus = "transfer_completed"
)

// DeriveStatus maps the confirmation flags to a status. Both confirm paths
// use it, so confirming in either order converges on the same terminal state.
func DeriveStatus(buyerConfirmed, sellerConfirmed bool) PurchaseStatus {
	switch {
	case buyerConfirmed && sellerConfirmed:
		return PurchaseStatusTransferCompleted
	case buyerConfirmed:
		return PurchaseStatusPendingTransfer
	case sellerConfirmed:
		return PurchaseStatusTransferInProgress
	default:
		return PurchaseStatusPendingConfirmation
	}
}

// Purchase is a settlement record coordinating the off-band channel transfer
// against the in-app balance movement. Rows are permanent audit records;
// there is no deletion path.
type Purchase struct {
	ID              uuid.UUID       `json:"id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	SellerID        *uuid.UUID      `json:"seller_id,omitempty"` // nil for unowned listings
	ChannelID       uuid.UUID       `json:"channel_id"`
	GiftID          uuid.UUID       `json:"gift_id"`
	Price           decimal.Decimal `json:"price"` // TON, snapshotted at creation
	Status          PurchaseStatus  `json:"status"`
	BuyerConfirmed  bool            `json:"buyer_confirmed"`
	SellerConfirmed bool            `json:"seller_confirmed"`
	BuyerDebited    bool            `json:"buyer_debited"`
	SellerCredited  bool            `json:"seller_credited"`
	BuyerNotifiedAt *time.Time      `json:"buyer_notified_at,omitempty"`
	ConfirmExpires  *time.Time      `json:"confirm_expires_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsSettled reports whether both parties confirmed and the record is frozen.
func (p *Purchase) IsSettled() bool {
	return p.Status == PurchaseStatusTransferCompleted
}

// IsArmed reports whether the confirmation window has been opened.
func (p *Purchase) IsArmed() bool {
	return p.BuyerNotifiedAt != nil
}
