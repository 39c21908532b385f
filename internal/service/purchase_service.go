package service

import (
	"context"
	"fmt"

	"channel-market/internal/clock"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PurchaseServiceImpl implements ports.PurchaseService. All state changes go
// through database transactions with row-level locks, so two confirm calls
// for the same purchase always serialize.
type PurchaseServiceImpl struct {
	purchaseRepo ports.PurchaseRepository
	userRepo     ports.UserRepository
	channelRepo  ports.ChannelRepository
	transactor   ports.DBTransactor
	clk          clock.Clock
	log          zerolog.Logger
}

// NewPurchaseService creates a new PurchaseServiceImpl.
func NewPurchaseService(
	purchaseRepo ports.PurchaseRepository,
	userRepo ports.UserRepository,
	channelRepo ports.ChannelRepository,
	transactor ports.DBTransactor,
	clk clock.Clock,
	log zerolog.Logger,
) *PurchaseServiceImpl {
	return &PurchaseServiceImpl{
		purchaseRepo: purchaseRepo,
		userRepo:     userRepo,
		channelRepo:  channelRepo,
		transactor:   transactor,
		clk:          clk,
		log:          log,
	}
}

// Initiate creates a purchase and debits the buyer in one transaction.
// Either both happen or neither does; a failed debit leaves no purchase row.
func (s *PurchaseServiceImpl) Initiate(ctx context.Context, in ports.InitiatePurchaseInput) (*domain.Purchase, error) {
	if !in.Price.IsPositive() {
		return nil, apperror.ErrInvalidPrice()
	}

	channel, err := s.channelRepo.GetByID(ctx, in.ChannelID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load channel: %w", err))
	}
	if channel == nil {
		return nil, apperror.ErrNotFound("channel")
	}
	if !channel.HasGift(in.GiftID) {
		return nil, apperror.Validation("gift is not part of the channel bundle")
	}

	// The listing price is the settlement amount. The client-submitted
	// price is advisory only.
	price := channel.Price

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	buyer, err := s.userRepo.GetByIDForUpdate(ctx, dbTx, in.BuyerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock buyer: %w", err))
	}
	if buyer == nil {
		return nil, apperror.ErrNotFound("buyer")
	}
	if !buyer.CanAfford(price) {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := s.clk.Now()
	purchase := &domain.Purchase{
		ID:           uuid.New(),
		BuyerID:      in.BuyerID,
		SellerID:     in.SellerID,
		ChannelID:    in.ChannelID,
		GiftID:       in.GiftID,
		Price:        price,
		Status:       domain.PurchaseStatusPendingConfirmation,
		BuyerDebited: true,
		CreatedAt:    now,
	}

	if err := s.userRepo.ApplyDelta(ctx, dbTx, in.BuyerID, price.Neg()); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit buyer: %w", err))
	}
	if err := s.purchaseRepo.Create(ctx, dbTx, purchase); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create purchase: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("buyer_id", in.BuyerID.String()).
		Str("price", price.String()).
		Msg("Purchase initiated, buyer debited")

	return purchase, nil
}

// GetByID returns a purchase by id.
func (s *PurchaseServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get purchase: %w", err))
	}
	if purchase == nil {
		return nil, apperror.ErrNotFound("purchase")
	}
	return purchase, nil
}

// ListByChannel returns purchases that reference a channel listing.
func (s *PurchaseServiceImpl) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]domain.Purchase, error) {
	purchases, err := s.purchaseRepo.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list purchases by channel: %w", err))
	}
	return purchases, nil
}

// ListBySeller returns purchases where the given user is the seller.
func (s *PurchaseServiceImpl) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Purchase, error) {
	purchases, err := s.purchaseRepo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list purchases by seller: %w", err))
	}
	return purchases, nil
}

// ConfirmBuyer records the buyer's confirmation.
func (s *PurchaseServiceImpl) ConfirmBuyer(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	return s.confirm(ctx, id, func(p *domain.Purchase) bool {
		if p.BuyerConfirmed {
			return false
		}
		p.BuyerConfirmed = true
		return true
	})
}

// ConfirmSeller records the seller's confirmation.
func (s *PurchaseServiceImpl) ConfirmSeller(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	return s.confirm(ctx, id, func(p *domain.Purchase) bool {
		if p.SellerConfirmed {
			return false
		}
		p.SellerConfirmed = true
		return true
	})
}

// confirm applies a confirmation flag under the purchase row lock, derives
// the new status and credits the seller exactly once when both parties have
// confirmed. Re-confirming is a no-op returning current state. A failed
// seller credit rolls everything back, so a purchase never reaches
// transfer_completed without the credit.
func (s *PurchaseServiceImpl) confirm(ctx context.Context, id uuid.UUID, apply func(*domain.Purchase) bool) (*domain.Purchase, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	purchase, err := s.purchaseRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock purchase: %w", err))
	}
	if purchase == nil {
		return nil, apperror.ErrNotFound("purchase")
	}

	if !apply(purchase) {
		// Already confirmed by this party.
		return purchase, nil
	}

	purchase.Status = domain.DeriveStatus(purchase.BuyerConfirmed, purchase.SellerConfirmed)

	if purchase.Status == domain.PurchaseStatusTransferCompleted &&
		purchase.SellerID != nil && !purchase.SellerCredited {
		if err := s.userRepo.ApplyDelta(ctx, dbTx, *purchase.SellerID, purchase.Price); err != nil {
			s.log.Error().Err(err).
				Str("purchase_id", purchase.ID.String()).
				Str("seller_id", purchase.SellerID.String()).
				Msg("Seller credit failed, rolling back confirmation")
			return nil, apperror.ErrCreditFailed(fmt.Errorf("credit seller: %w", err))
		}
		purchase.SellerCredited = true
	}

	if err := s.purchaseRepo.Update(ctx, dbTx, purchase); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update purchase: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("status", string(purchase.Status)).
		Bool("seller_credited", purchase.SellerCredited).
		Msg("Purchase confirmation recorded")

	return purchase, nil
}
