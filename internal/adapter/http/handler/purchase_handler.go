package handler

import (
	"context"

	"channel-market/internal/adapter/http/dto"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"
	"channel-market/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseHandler handles purchase settlement endpoints.
type PurchaseHandler struct {
	purchaseSvc ports.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(purchaseSvc ports.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseSvc: purchaseSvc}
}

// Initiate handles POST /api/v1/purchases.
func (h *PurchaseHandler) Initiate(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	buyerID, err := uuid.Parse(req.BuyerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid buyerId"))
		return
	}
	channelID, err := uuid.Parse(req.ChannelID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid channelId"))
		return
	}
	giftID, err := uuid.Parse(req.GiftID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid giftId"))
		return
	}
	var sellerID *uuid.UUID
	if req.SellerID != nil {
		id, err := uuid.Parse(*req.SellerID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid sellerId"))
			return
		}
		sellerID = &id
	}

	purchase, err := h.purchaseSvc.Initiate(c.Request.Context(), ports.InitiatePurchaseInput{
		BuyerID:   buyerID,
		SellerID:  sellerID,
		ChannelID: channelID,
		GiftID:    giftID,
		Price:     req.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, purchase)
}

// GetByID handles GET /api/v1/purchases/:id.
func (h *PurchaseHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid purchase id"))
		return
	}

	purchase, err := h.purchaseSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, purchase)
}

// ListByChannel handles GET /api/v1/purchases/channel/:channelId.
func (h *PurchaseHandler) ListByChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channelId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid channel id"))
		return
	}

	purchases, err := h.purchaseSvc.ListByChannel(c.Request.Context(), channelID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, purchases)
}

// ListBySeller handles GET /api/v1/purchases/seller/:sellerId.
func (h *PurchaseHandler) ListBySeller(c *gin.Context) {
	sellerID, err := uuid.Parse(c.Param("sellerId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid seller id"))
		return
	}

	purchases, err := h.purchaseSvc.ListBySeller(c.Request.Context(), sellerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, purchases)
}

// ConfirmBuyer handles POST /api/v1/purchases/:id/confirm-buyer.
func (h *PurchaseHandler) ConfirmBuyer(c *gin.Context) {
	h.confirm(c, h.purchaseSvc.ConfirmBuyer)
}

// ConfirmSeller handles POST /api/v1/purchases/:id/confirm-seller.
func (h *PurchaseHandler) ConfirmSeller(c *gin.Context) {
	h.confirm(c, h.purchaseSvc.ConfirmSeller)
}

func (h *PurchaseHandler) confirm(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid purchase id"))
		return
	}

	purchase, err := fn(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, purchase)
}
