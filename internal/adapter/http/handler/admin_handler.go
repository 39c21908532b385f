package handler

import (
	"channel-market/internal/adapter/http/dto"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"
	"channel-market/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles admin panel endpoints.
type AdminHandler struct {
	userSvc  ports.UserService
	statsSvc ports.StatsService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(userSvc ports.UserService, statsSvc ports.StatsService) *AdminHandler {
	return &AdminHandler{userSvc: userSvc, statsSvc: statsSvc}
}

// AdjustBalance handles POST /api/v1/admin/users/:id/balance.
func (h *AdminHandler) AdjustBalance(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid user id"))
		return
	}

	var req dto.BalanceAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	user, err := h.userSvc.AdjustBalance(c.Request.Context(), userID, req.Delta)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, user)
}

// GetStats handles GET /api/v1/admin/stats.
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.statsSvc.GetSettlementStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SettlementStatsResponse{
		Total:               stats.Total,
		PendingConfirmation: stats.PendingConfirmation,
		PendingTransfer:     stats.PendingTransfer,
		TransferInProgress:  stats.TransferInProgress,
		TransferCompleted:   stats.TransferCompleted,
		SettledVolume:       stats.SettledVolume,
	})
}
