package service

import (
	"context"
	"time"

	"channel-market/internal/clock"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"

	"github.com/rs/zerolog"
)

const sweepBatchSize = 100

// SweeperService opens confirmation windows for purchases that have aged
// past the arming delay. The schedule lives in the purchases table itself,
// so a process restart picks up exactly where the previous one stopped; no
// in-memory timer is ever the only record of a pending notification.
type SweeperService struct {
	purchaseRepo ports.PurchaseRepository
	userRepo     ports.UserRepository
	notifier     ports.NotificationSink
	clk          clock.Clock
	armingDelay  time.Duration
	window       time.Duration
	interval     time.Duration
	log          zerolog.Logger
}

// NewSweeperService creates a new SweeperService.
func NewSweeperService(
	purchaseRepo ports.PurchaseRepository,
	userRepo ports.UserRepository,
	notifier ports.NotificationSink,
	clk clock.Clock,
	armingDelay, window, interval time.Duration,
	log zerolog.Logger,
) *SweeperService {
	return &SweeperService{
		purchaseRepo: purchaseRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		clk:          clk,
		armingDelay:  armingDelay,
		window:       window,
		interval:     interval,
		log:          log,
	}
}

// Run polls until the context is cancelled. An immediate first sweep covers
// purchases that aged past the delay while the process was down.
func (s *SweeperService) Run(ctx context.Context) {
	s.log.Info().
		Dur("arming_delay", s.armingDelay).
		Dur("confirm_window", s.window).
		Dur("interval", s.interval).
		Msg("Arming sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if n, err := s.Sweep(ctx); err != nil {
			s.log.Error().Err(err).Msg("Arming sweep failed")
		} else if n > 0 {
			s.log.Info().Int("armed", n).Msg("Arming sweep completed")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("Arming sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep arms one batch of eligible purchases and returns how many were
// armed. The conditional UPDATE in Arm makes concurrent sweeps safe: the
// loser of the race sees zero rows affected and skips the notification.
func (s *SweeperService) Sweep(ctx context.Context) (int, error) {
	now := s.clk.Now()
	cutoff := now.Add(-s.armingDelay)

	pending, err := s.purchaseRepo.ListUnarmed(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	armed := 0
	for i := range pending {
		purchase := &pending[i]

		ok, err := s.purchaseRepo.Arm(ctx, purchase.ID, now, now.Add(s.window))
		if err != nil {
			s.log.Error().Err(err).
				Str("purchase_id", purchase.ID.String()).
				Msg("Arming purchase failed")
			continue
		}
		if !ok {
			continue
		}
		armed++

		notifiedAt := now
		expires := now.Add(s.window)
		purchase.BuyerNotifiedAt = &notifiedAt
		purchase.ConfirmExpires = &expires

		s.notify(ctx, purchase)
	}
	return armed, nil
}

// notify delivers the "window opened" messages best-effort. The purchase is
// already armed; delivery failures are logged and never undo that.
func (s *SweeperService) notify(ctx context.Context, purchase *domain.Purchase) {
	if s.notifier == nil {
		return
	}

	buyer, err := s.userRepo.GetByID(ctx, purchase.BuyerID)
	if err != nil || buyer == nil {
		s.log.Warn().Err(err).
			Str("purchase_id", purchase.ID.String()).
			Msg("Buyer lookup for notification failed")
		return
	}

	var seller *domain.User
	if purchase.SellerID != nil {
		seller, err = s.userRepo.GetByID(ctx, *purchase.SellerID)
		if err != nil {
			s.log.Warn().Err(err).
				Str("purchase_id", purchase.ID.String()).
				Msg("Seller lookup for notification failed")
		}
	}

	if err := s.notifier.NotifyPurchaseArmed(ctx, purchase, buyer, seller); err != nil {
		s.log.Warn().Err(err).
			Str("purchase_id", purchase.ID.String()).
			Msg("Purchase armed notification failed")
	}
}
