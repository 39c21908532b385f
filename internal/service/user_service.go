package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"channel-market/internal/clock"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const depositIdempotencyTTL = 24 * time.Hour

// UserServiceImpl implements ports.UserService.
type UserServiceImpl struct {
	userRepo    ports.UserRepository
	depositRepo ports.DepositRepository
	idempCache  ports.IdempotencyCache
	transactor  ports.DBTransactor
	clk         clock.Clock
	log         zerolog.Logger
}

// NewUserService creates a new UserServiceImpl.
func NewUserService(
	userRepo ports.UserRepository,
	depositRepo ports.DepositRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	clk clock.Clock,
	log zerolog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo:    userRepo,
		depositRepo: depositRepo,
		idempCache:  idempCache,
		transactor:  transactor,
		clk:         clk,
		log:         log,
	}
}

// Register creates a user with a zero balance.
func (s *UserServiceImpl) Register(ctx context.Context, in ports.RegisterUserInput) (*domain.User, error) {
	existing, err := s.userRepo.GetByTelegramID(ctx, in.TelegramID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check existing user: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUserExists()
	}

	if in.ReferrerID != nil {
		referrer, err := s.userRepo.GetByID(ctx, *in.ReferrerID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check referrer: %w", err))
		}
		if referrer == nil {
			return nil, apperror.ErrNotFound("referrer")
		}
	}

	user := &domain.User{
		ID:         uuid.New(),
		TelegramID: in.TelegramID,
		Username:   in.Username,
		Balance:    decimal.Zero,
		ReferrerID: in.ReferrerID,
		CreatedAt:  s.clk.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Int64("telegram_id", user.TelegramID).
		Msg("User registered")

	return user, nil
}

// GetByID returns a user by id.
func (s *UserServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}
	return user, nil
}

// Deposit credits an external top-up. Retried wallet callbacks are safe:
// the Redis cache answers fast, the DB idempotency log answers durably, and
// both layers return the original deposit rather than crediting twice.
func (s *UserServiceImpl) Deposit(ctx context.Context, in ports.DepositInput) (*domain.Deposit, error) {
	if !in.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := domain.BuildDepositIdempotencyKey(in.UserID, in.Reference)

	// Layer 1: Redis
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return s.unmarshalCachedDeposit(cached)
	}

	// Layer 2: durable log
	idempLog, err := s.depositRepo.GetLog(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return s.unmarshalCachedDeposit(idempLog.ResponseJSON)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	user, err := s.userRepo.GetByIDForUpdate(ctx, dbTx, in.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}

	now := s.clk.Now()
	deposit := &domain.Deposit{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Reference: in.Reference,
		Amount:    in.Amount,
		CreatedAt: now,
	}

	if err := s.userRepo.ApplyDelta(ctx, dbTx, in.UserID, in.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit deposit: %w", err))
	}
	if err := s.depositRepo.Create(ctx, dbTx, deposit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deposit: %w", err))
	}

	// Referral bonus rides in the same transaction as the deposit.
	if user.ReferrerID != nil {
		bonus := in.Amount.Mul(domain.ReferralBonusRate)
		if err := s.userRepo.ApplyDelta(ctx, dbTx, *user.ReferrerID, bonus); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit referral bonus: %w", err))
		}
	}

	respJSON, err := json.Marshal(deposit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	logEntry := &domain.IdempotencyLog{
		Key:          idempKey,
		DepositID:    deposit.ID,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}
	if err := s.depositRepo.CreateLog(ctx, dbTx, logEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.idempCache.Set(ctx, idempKey, respJSON, depositIdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency cache set failed")
	}

	s.log.Info().
		Str("user_id", in.UserID.String()).
		Str("amount", in.Amount.String()).
		Str("reference", in.Reference).
		Msg("Deposit credited")

	return deposit, nil
}

// AdjustBalance applies a signed admin adjustment and returns the updated
// user. Negative deltas may not drive the balance below zero.
func (s *UserServiceImpl) AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (*domain.User, error) {
	if delta.IsZero() {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	user, err := s.userRepo.GetByIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}

	newBalance := user.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.userRepo.ApplyDelta(ctx, dbTx, userID, delta); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply adjustment: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	user.Balance = newBalance

	s.log.Info().
		Str("user_id", userID.String()).
		Str("delta", delta.String()).
		Str("balance", newBalance.String()).
		Msg("Balance adjusted")

	return user, nil
}

// ReferralSummary reports how many users this user referred and the bonus
// earned from their deposits.
func (s *UserServiceImpl) ReferralSummary(ctx context.Context, userID uuid.UUID) (*ports.ReferralSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}

	referrals, err := s.userRepo.ListReferrals(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list referrals: %w", err))
	}

	ids := make([]uuid.UUID, len(referrals))
	for i, r := range referrals {
		ids[i] = r.ID
	}

	deposited, err := s.depositRepo.SumAmountByUsers(ctx, ids)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum referral deposits: %w", err))
	}

	return &ports.ReferralSummary{
		Referrals:   len(referrals),
		TotalEarned: deposited.Mul(domain.ReferralBonusRate),
	}, nil
}

func (s *UserServiceImpl) unmarshalCachedDeposit(data []byte) (*domain.Deposit, error) {
	var deposit domain.Deposit
	if err := json.Unmarshal(data, &deposit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached deposit: %w", err))
	}
	return &deposit, nil
}
