package service

import (
	"context"
	"errors"
	"fmt"

	"channel-market/internal/clock"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChannelServiceImpl implements ports.ChannelService.
type ChannelServiceImpl struct {
	channelRepo ports.ChannelRepository
	giftRepo    ports.GiftRepository
	userRepo    ports.UserRepository
	verifier    ports.ChannelVerifier
	clk         clock.Clock
	log         zerolog.Logger
}

// NewChannelService creates a new ChannelServiceImpl. The verifier may be
// nil, in which case ownership verification is skipped.
func NewChannelService(
	channelRepo ports.ChannelRepository,
	giftRepo ports.GiftRepository,
	userRepo ports.UserRepository,
	verifier ports.ChannelVerifier,
	clk clock.Clock,
	log zerolog.Logger,
) *ChannelServiceImpl {
	return &ChannelServiceImpl{
		channelRepo: channelRepo,
		giftRepo:    giftRepo,
		userRepo:    userRepo,
		verifier:    verifier,
		clk:         clk,
		log:         log,
	}
}

// Create validates and persists a new listing with its gift bundle.
func (s *ChannelServiceImpl) Create(ctx context.Context, in ports.CreateChannelInput) (*domain.Channel, error) {
	channel := &domain.Channel{
		ID:        uuid.New(),
		Name:      in.Name,
		Link:      in.Link,
		Price:     in.Price,
		OwnerID:   in.OwnerID,
		Category:  in.Category,
		Gifts:     in.Gifts,
		CreatedAt: s.clk.Now(),
	}

	if err := channel.Validate(); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidListingPrice):
			return nil, apperror.ErrInvalidPrice()
		case errors.Is(err, domain.ErrEmptyBundle):
			return nil, apperror.ErrEmptyBundle()
		default:
			return nil, apperror.Validation(err.Error())
		}
	}

	// Every bundle item must reference a catalog gift.
	for _, item := range channel.Gifts {
		gift, err := s.giftRepo.GetByID(ctx, item.GiftID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load gift: %w", err))
		}
		if gift == nil {
			return nil, apperror.Validation(fmt.Sprintf("unknown gift: %s", item.GiftID))
		}
	}

	s.verifyOwnership(ctx, channel)

	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create channel: %w", err))
	}

	s.log.Info().
		Str("channel_id", channel.ID.String()).
		Str("price", channel.Price.String()).
		Int("bundle_items", len(channel.Gifts)).
		Msg("Listing created")

	return channel, nil
}

// verifyOwnership checks channel admin status through the Bot API. The check
// is advisory: API failures are logged, never block listing creation.
func (s *ChannelServiceImpl) verifyOwnership(ctx context.Context, channel *domain.Channel) {
	if s.verifier == nil || channel.OwnerID == nil || channel.Link == "" {
		return
	}

	owner, err := s.userRepo.GetByID(ctx, *channel.OwnerID)
	if err != nil || owner == nil {
		s.log.Warn().Err(err).
			Str("channel_id", channel.ID.String()).
			Msg("Owner lookup for verification failed")
		return
	}

	isAdmin, err := s.verifier.IsChannelAdmin(ctx, channel.Link, owner.TelegramID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("link", channel.Link).
			Msg("Channel admin verification failed")
		return
	}
	if !isAdmin {
		s.log.Warn().
			Str("link", channel.Link).
			Int64("telegram_id", owner.TelegramID).
			Msg("Listing owner is not a channel admin")
	}
}

// GetByID returns a listing with its bundle.
func (s *ChannelServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	channel, err := s.channelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get channel: %w", err))
	}
	if channel == nil {
		return nil, apperror.ErrNotFound("channel")
	}
	return channel, nil
}

// List returns all listings.
func (s *ChannelServiceImpl) List(ctx context.Context) ([]domain.Channel, error) {
	channels, err := s.channelRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list channels: %w", err))
	}
	return channels, nil
}

// Delete removes a listing. Only the owner or an admin may delete it.
func (s *ChannelServiceImpl) Delete(ctx context.Context, id uuid.UUID, actor *domain.User) error {
	channel, err := s.channelRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get channel: %w", err))
	}
	if channel == nil {
		return apperror.ErrNotFound("channel")
	}

	if actor != nil && !actor.IsAdmin {
		if channel.OwnerID == nil || *channel.OwnerID != actor.ID {
			return apperror.ErrForbidden()
		}
	}

	deleted, err := s.channelRepo.Delete(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("delete channel: %w", err))
	}
	if !deleted {
		return apperror.ErrNotFound("channel")
	}

	s.log.Info().Str("channel_id", id.String()).Msg("Listing deleted")
	return nil
}

// ListGifts returns the collectible catalog.
func (s *ChannelServiceImpl) ListGifts(ctx context.Context) ([]domain.Gift, error) {
	gifts, err := s.giftRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list gifts: %w", err))
	}
	return gifts, nil
}
