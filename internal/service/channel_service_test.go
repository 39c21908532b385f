package service

import (
	"context"
	"testing"
	"time"

	"channel-market/internal/clock"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type channelTestDeps struct {
	svc         *ChannelServiceImpl
	channelRepo *mocks.MockChannelRepository
	giftRepo    *mocks.MockGiftRepository
	userRepo    *mocks.MockUserRepository
	verifier    *mocks.MockChannelVerifier
	ctrl        *gomock.Controller
}

func setupChannelService(t *testing.T) *channelTestDeps {
	ctrl := gomock.NewController(t)
	d := &channelTestDeps{
		channelRepo: mocks.NewMockChannelRepository(ctrl),
		giftRepo:    mocks.NewMockGiftRepository(ctrl),
		userRepo:    mocks.NewMockUserRepository(ctrl),
		verifier:    mocks.NewMockChannelVerifier(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewChannelService(
		d.channelRepo, d.giftRepo, d.userRepo, d.verifier,
		clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		zerolog.Nop(),
	)
	return d
}

func createInput(giftID uuid.UUID, ownerID *uuid.UUID) ports.CreateChannelInput {
	return ports.CreateChannelInput{
		Name:     "Crypto Signals",
		Link:     "https://t.me/crypto_signals",
		Price:    decimal.RequireFromString("25"),
		OwnerID:  ownerID,
		Category: domain.ChannelCategoryChannel,
		Gifts:    []domain.BundleItem{{GiftID: giftID, Quantity: 2}},
	}
}

func TestChannelService_Create_Success(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	giftID := uuid.New()
	ownerID := uuid.New()
	owner := &domain.User{ID: ownerID, TelegramID: 7}

	d.giftRepo.EXPECT().GetByID(ctx, giftID).Return(&domain.Gift{ID: giftID, Name: "Plush Pepe"}, nil)
	d.userRepo.EXPECT().GetByID(ctx, ownerID).Return(owner, nil)
	d.verifier.EXPECT().IsChannelAdmin(ctx, "https://t.me/crypto_signals", int64(7)).Return(true, nil)
	d.channelRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	channel, err := d.svc.Create(ctx, createInput(giftID, &ownerID))
	require.NoError(t, err)
	assert.Equal(t, "Crypto Signals", channel.Name)
	require.Len(t, channel.Gifts, 1)
}

func TestChannelService_Create_VerifierFailureIsSoft(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	giftID := uuid.New()
	ownerID := uuid.New()

	d.giftRepo.EXPECT().GetByID(ctx, giftID).Return(&domain.Gift{ID: giftID}, nil)
	d.userRepo.EXPECT().GetByID(ctx, ownerID).Return(&domain.User{ID: ownerID, TelegramID: 7}, nil)
	d.verifier.EXPECT().IsChannelAdmin(ctx, gomock.Any(), int64(7)).Return(false, assert.AnError)
	d.channelRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.Create(ctx, createInput(giftID, &ownerID))
	require.NoError(t, err, "Bot API failures never block listing creation")
}

func TestChannelService_Create_NonPositivePrice(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	in := createInput(uuid.New(), nil)
	in.Price = decimal.Zero

	channel, err := d.svc.Create(context.Background(), in)
	assert.Nil(t, channel)
	assertAppError(t, err, "MKT_002")
}

func TestChannelService_Create_EmptyBundle(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	in := createInput(uuid.New(), nil)
	in.Gifts = nil

	channel, err := d.svc.Create(context.Background(), in)
	assert.Nil(t, channel)
	assertAppError(t, err, "MKT_004")
}

func TestChannelService_Create_UnknownGift(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	giftID := uuid.New()

	d.giftRepo.EXPECT().GetByID(ctx, giftID).Return(nil, nil)

	channel, err := d.svc.Create(ctx, createInput(giftID, nil))
	assert.Nil(t, channel)
	assertAppError(t, err, "VAL_001")
}

func TestChannelService_Delete_ByOwner(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()
	channelID := uuid.New()

	d.channelRepo.EXPECT().GetByID(ctx, channelID).Return(&domain.Channel{
		ID: channelID, OwnerID: &ownerID,
	}, nil)
	d.channelRepo.EXPECT().Delete(ctx, channelID).Return(true, nil)

	err := d.svc.Delete(ctx, channelID, &domain.User{ID: ownerID})
	assert.NoError(t, err)
}

func TestChannelService_Delete_ByStranger(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()
	channelID := uuid.New()

	d.channelRepo.EXPECT().GetByID(ctx, channelID).Return(&domain.Channel{
		ID: channelID, OwnerID: &ownerID,
	}, nil)

	err := d.svc.Delete(ctx, channelID, &domain.User{ID: uuid.New()})
	assertAppError(t, err, "AUTH_004")
}

func TestChannelService_Delete_ByAdmin(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()
	channelID := uuid.New()

	d.channelRepo.EXPECT().GetByID(ctx, channelID).Return(&domain.Channel{
		ID: channelID, OwnerID: &ownerID,
	}, nil)
	d.channelRepo.EXPECT().Delete(ctx, channelID).Return(true, nil)

	err := d.svc.Delete(ctx, channelID, &domain.User{ID: uuid.New(), IsAdmin: true})
	assert.NoError(t, err)
}

func TestChannelService_Delete_NotFound(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	channelID := uuid.New()

	d.channelRepo.EXPECT().GetByID(ctx, channelID).Return(nil, nil)

	err := d.svc.Delete(ctx, channelID, &domain.User{ID: uuid.New(), IsAdmin: true})
	assertAppError(t, err, "MKT_003")
}

func TestChannelService_GetByID_NotFound(t *testing.T) {
	d := setupChannelService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.channelRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	channel, err := d.svc.GetByID(ctx, id)
	assert.Nil(t, channel)
	assertAppError(t, err, "MKT_003")
}
