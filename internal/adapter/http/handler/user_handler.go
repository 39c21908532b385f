package handler

import (
	"channel-market/internal/adapter/http/dto"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"
	"channel-market/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles user and balance endpoints.
type UserHandler struct {
	userSvc ports.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc ports.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Register handles POST /api/v1/users.
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	var referrerID *uuid.UUID
	if req.ReferrerID != nil {
		id, err := uuid.Parse(*req.ReferrerID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid referrer_id"))
			return
		}
		referrerID = &id
	}

	user, err := h.userSvc.Register(c.Request.Context(), ports.RegisterUserInput{
		TelegramID: req.TelegramID,
		Username:   req.Username,
		ReferrerID: referrerID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// GetByID handles GET /api/v1/users/:id.
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid user id"))
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, user)
}

// Deposit handles POST /api/v1/users/:id/deposit.
func (h *UserHandler) Deposit(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid user id"))
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	deposit, err := h.userSvc.Deposit(c.Request.Context(), ports.DepositInput{
		UserID:    userID,
		Reference: req.Reference,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, deposit)
}

// ReferralSummary handles GET /api/v1/users/:id/referrals.
func (h *UserHandler) ReferralSummary(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid user id"))
		return
	}

	summary, err := h.userSvc.ReferralSummary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, summary)
}
