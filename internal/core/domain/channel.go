package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChannelCategory distinguishes plain channel listings from guarantor deals.
type ChannelCategory string

const (
	ChannelCategoryChannel   ChannelCategory = "channel"
	ChannelCategoryGuarantor ChannelCategory = "guarantor"
)

// Channel is a listing: a Telegram channel offered for sale as a bundle of
// gift collectibles at a TON price.
type Channel struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Link      string          `json:"link"`
	Price     decimal.Decimal `json:"price"` // TON
	OwnerID   *uuid.UUID      `json:"owner_id,omitempty"`
	Category  ChannelCategory `json:"category"`
	Gifts     []BundleItem    `json:"gifts"`
	CreatedAt time.Time       `json:"created_at"`
}

// BundleItem is one (gift type, quantity) pair inside a listing.
type BundleItem struct {
	GiftID   uuid.UUID `json:"gift_id"`
	GiftName string    `json:"gift_name,omitempty"` // joined display data
	IconURL  string    `json:"icon_url,omitempty"`
	Quantity int       `json:"quantity"`
}

// Validate checks the listing invariants: positive price, non-empty bundle.
func (ch *Channel) Validate() error {
	if !ch.Price.IsPositive() {
		return ErrInvalidListingPrice
	}
	if len(ch.Gifts) == 0 {
		return ErrEmptyBundle
	}
	for _, item := range ch.Gifts {
		if item.Quantity <= 0 {
			return ErrEmptyBundle
		}
	}
	return nil
}

// HasGift reports whether the gift type is part of the listing bundle.
func (ch *Channel) HasGift(giftID uuid.UUID) bool {
	for _, item := range ch.Gifts {
		if item.GiftID == giftID {
			return true
		}
	}
	return false
}

// Gift is a collectible type from the static catalog.
type Gift struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IconURL string    `json:"icon_url"`
}
