package handler

import (
	"channel-market/internal/adapter/http/dto"
	"channel-market/internal/adapter/http/middleware"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"
	"channel-market/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChannelHandler handles channel listing and gift catalog endpoints.
type ChannelHandler struct {
	channelSvc ports.ChannelService
	userSvc    ports.UserService
}

// NewChannelHandler creates a new ChannelHandler.
func NewChannelHandler(channelSvc ports.ChannelService, userSvc ports.UserService) *ChannelHandler {
	return &ChannelHandler{channelSvc: channelSvc, userSvc: userSvc}
}

// Create handles POST /api/v1/channels.
func (h *ChannelHandler) Create(c *gin.Context) {
	var req dto.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	gifts := make([]domain.BundleItem, 0, len(req.Gifts))
	for _, item := range req.Gifts {
		giftID, err := uuid.Parse(item.GiftID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid gift_id"))
			return
		}
		gifts = append(gifts, domain.BundleItem{GiftID: giftID, Quantity: item.Quantity})
	}

	var ownerID *uuid.UUID
	if req.OwnerID != nil {
		id, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid owner_id"))
			return
		}
		ownerID = &id
	}

	channel, err := h.channelSvc.Create(c.Request.Context(), ports.CreateChannelInput{
		Name:     req.Name,
		Link:     req.Link,
		Price:    req.Price,
		OwnerID:  ownerID,
		Category: domain.ChannelCategory(req.Category),
		Gifts:    gifts,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, channel)
}

// GetByID handles GET /api/v1/channels/:id.
func (h *ChannelHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid channel id"))
		return
	}

	channel, err := h.channelSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, channel)
}

// List handles GET /api/v1/channels.
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.channelSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, channels)
}

// Delete handles DELETE /api/v1/channels/:id.
func (h *ChannelHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid channel id"))
		return
	}

	actor, err := h.currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.channelSvc.Delete(c.Request.Context(), id, actor); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}

// ListGifts handles GET /api/v1/gifts.
func (h *ChannelHandler) ListGifts(c *gin.Context) {
	gifts, err := h.channelSvc.ListGifts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gifts)
}

func (h *ChannelHandler) currentUser(c *gin.Context) (*domain.User, error) {
	uid, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}
	userID, ok := uid.(uuid.UUID)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}
	user, err := h.userSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	return user, nil
}
