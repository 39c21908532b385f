package service

import (
	"context"
	"encoding/json"
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

type userTestDeps struct {
	svc         *UserServiceImpl
	userRepo    *mocks.MockUserRepository
	depositRepo *mocks.MockDepositRepository
	idempCache  *mocks.MockIdempotencyCache
	transactor  *mocks.MockDBTransactor
	clk         *clock.Fixed
	ctrl        *gomock.Controller
}

func setupUserService(t *testing.T) *userTestDeps {
	ctrl := gomock.NewController(t)
	d := &userTestDeps{
		userRepo:    mocks.NewMockUserRepository(ctrl),
		depositRepo: mocks.NewMockDepositRepository(ctrl),
		idempCache:  mocks.NewMockIdempotencyCache(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		clk:         clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		ctrl:        ctrl,
	}
	d.svc = NewUserService(
		d.userRepo, d.depositRepo, d.idempCache, d.transactor, d.clk, zerolog.Nop(),
	)
	return d
}

// ==================== Register Tests ====================

func TestUserService_Register_Success(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByTelegramID(ctx, int64(42)).Return(nil, nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	user, err := d.svc.Register(ctx, ports.RegisterUserInput{TelegramID: 42, Username: "collector"})
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), "balance starts at zero")
	assert.False(t, user.IsAdmin)
}

func TestUserService_Register_Duplicate(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByTelegramID(ctx, int64(42)).Return(&domain.User{ID: uuid.New()}, nil)

	user, err := d.svc.Register(ctx, ports.RegisterUserInput{TelegramID: 42, Username: "collector"})
	assert.Nil(t, user)
	assertAppError(t, err, "USR_001")
}

func TestUserService_Register_UnknownReferrer(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	referrerID := uuid.New()

	d.userRepo.EXPECT().GetByTelegramID(ctx, int64(42)).Return(nil, nil)
	d.userRepo.EXPECT().GetByID(ctx, referrerID).Return(nil, nil)

	user, err := d.svc.Register(ctx, ports.RegisterUserInput{
		TelegramID: 42, Username: "collector", ReferrerID: &referrerID,
	})
	assert.Nil(t, user)
	assertAppError(t, err, "MKT_003")
}

// ==================== Deposit Tests ====================

func TestUserService_Deposit_Success(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	amount := decimal.RequireFromString("10")
	idempKey := domain.BuildDepositIdempotencyKey(userID, "TON-TX-1")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.depositRepo.EXPECT().GetLog(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.userRepo.EXPECT().GetByIDForUpdate(ctx, tx, userID).Return(&domain.User{ID: userID}, nil)
	d.userRepo.EXPECT().ApplyDelta(ctx, tx, userID, amount).Return(nil)
	d.depositRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.depositRepo.EXPECT().CreateLog(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), depositIdempotencyTTL).Return(nil)

	deposit, err := d.svc.Deposit(ctx, ports.DepositInput{
		UserID: userID, Reference: "TON-TX-1", Amount: amount,
	})
	require.NoError(t, err)
	assert.Equal(t, userID, deposit.UserID)
	assert.True(t, deposit.Amount.Equal(amount))
}

func TestUserService_Deposit_CachedReplay(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	original := &domain.Deposit{
		ID: uuid.New(), UserID: userID, Reference: "TON-TX-1",
		Amount: decimal.RequireFromString("10"),
	}
	cached, err := json.Marshal(original)
	require.NoError(t, err)
	idempKey := domain.BuildDepositIdempotencyKey(userID, "TON-TX-1")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(cached, nil)
	// Nothing else: no tx, no second credit.

	deposit, err := d.svc.Deposit(ctx, ports.DepositInput{
		UserID: userID, Reference: "TON-TX-1", Amount: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, original.ID, deposit.ID)
}

func TestUserService_Deposit_DurableLogReplay(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	original := &domain.Deposit{
		ID: uuid.New(), UserID: userID, Reference: "TON-TX-2",
		Amount: decimal.RequireFromString("7"),
	}
	respJSON, err := json.Marshal(original)
	require.NoError(t, err)
	idempKey := domain.BuildDepositIdempotencyKey(userID, "TON-TX-2")

	// Redis lost the key; the DB log still answers.
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.depositRepo.EXPECT().GetLog(ctx, idempKey).Return(&domain.IdempotencyLog{
		Key: idempKey, DepositID: original.ID, ResponseJSON: respJSON,
	}, nil)

	deposit, err := d.svc.Deposit(ctx, ports.DepositInput{
		UserID: userID, Reference: "TON-TX-2", Amount: decimal.RequireFromString("7"),
	})
	require.NoError(t, err)
	assert.Equal(t, original.ID, deposit.ID)
}

func TestUserService_Deposit_ReferralBonus(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	referrerID := uuid.New()
	tx := &mockTx{}
	amount := decimal.RequireFromString("100")
	idempKey := domain.BuildDepositIdempotencyKey(userID, "TON-TX-3")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.depositRepo.EXPECT().GetLog(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.userRepo.EXPECT().GetByIDForUpdate(ctx, tx, userID).Return(&domain.User{
		ID: userID, ReferrerID: &referrerID,
	}, nil)
	d.userRepo.EXPECT().ApplyDelta(ctx, tx, userID, amount).Return(nil)
	d.depositRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.userRepo.EXPECT().ApplyDelta(ctx, tx, referrerID, gomock.Cond(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("5"))
	})).Return(nil)
	d.depositRepo.EXPECT().CreateLog(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), depositIdempotencyTTL).Return(nil)

	_, err := d.svc.Deposit(ctx, ports.DepositInput{
		UserID: userID, Reference: "TON-TX-3", Amount: amount,
	})
	require.NoError(t, err)
}

func TestUserService_Deposit_InvalidAmount(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	deposit, err := d.svc.Deposit(context.Background(), ports.DepositInput{
		UserID: uuid.New(), Reference: "TON-TX-4", Amount: decimal.Zero,
	})
	assert.Nil(t, deposit)
	assertAppError(t, err, "USR_002")
}

// ==================== AdjustBalance Tests ====================

func TestUserService_AdjustBalance_Success(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	delta := decimal.RequireFromString("-30")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.userRepo.EXPECT().GetByIDForUpdate(ctx, tx, userID).Return(&domain.User{
		ID: userID, Balance: decimal.RequireFromString("100"),
	}, nil)
	d.userRepo.EXPECT().ApplyDelta(ctx, tx, userID, delta).Return(nil)

	user, err := d.svc.AdjustBalance(ctx, userID, delta)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.RequireFromString("70")))
}

func TestUserService_AdjustBalance_WouldGoNegative(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.userRepo.EXPECT().GetByIDForUpdate(ctx, tx, userID).Return(&domain.User{
		ID: userID, Balance: decimal.RequireFromString("10"),
	}, nil)

	user, err := d.svc.AdjustBalance(ctx, userID, decimal.RequireFromString("-11"))
	assert.Nil(t, user)
	assertAppError(t, err, "MKT_001")
}

func TestUserService_AdjustBalance_ZeroDelta(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	user, err := d.svc.AdjustBalance(context.Background(), uuid.New(), decimal.Zero)
	assert.Nil(t, user)
	assertAppError(t, err, "USR_002")
}

// ==================== ReferralSummary Tests ====================

func TestUserService_ReferralSummary(t *testing.T) {
	d := setupUserService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	refA := domain.User{ID: uuid.New()}
	refB := domain.User{ID: uuid.New()}

	d.userRepo.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID}, nil)
	d.userRepo.EXPECT().ListReferrals(ctx, userID).Return([]domain.User{refA, refB}, nil)
	d.depositRepo.EXPECT().
		SumAmountByUsers(ctx, []uuid.UUID{refA.ID, refB.ID}).
		Return(decimal.RequireFromString("200"), nil)

	summary, err := d.svc.ReferralSummary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Referrals)
	assert.True(t, summary.TotalEarned.Equal(decimal.RequireFromString("10")))
}
