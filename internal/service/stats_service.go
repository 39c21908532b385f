package service

import (
	"context"
	"fmt"

	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"

	"github.com/rs/zerolog"
)

// StatsServiceImpl implements ports.StatsService.
type StatsServiceImpl struct {
	purchaseRepo ports.PurchaseRepository
	log          zerolog.Logger
}

// NewStatsService creates a new StatsServiceImpl.
func NewStatsService(purchaseRepo ports.PurchaseRepository, log zerolog.Logger) *StatsServiceImpl {
	return &StatsServiceImpl{purchaseRepo: purchaseRepo, log: log}
}

// GetSettlementStats returns counts per settlement state plus settled volume.
func (s *StatsServiceImpl) GetSettlementStats(ctx context.Context) (*ports.SettlementStats, error) {
	stats, err := s.purchaseRepo.GetStats(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("settlement stats: %w", err))
	}
	return stats, nil
}
