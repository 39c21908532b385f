package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"channel-market/internal/clock"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// initDataMaxAge is the Telegram init-data freshness window; it also
	// bounds how long a replay record needs to live.
	initDataMaxAge  = 5 * time.Minute
	initDataScope   = "initdata"
	webAppKeyPhrase = "WebAppData"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo    ports.UserRepository
	hashSvc     ports.HashService
	tokenSvc    ports.TokenService
	replayStore ports.ReplayStore
	botToken    string
	clk         clock.Clock
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	replayStore ports.ReplayStore,
	botToken string,
	clk clock.Clock,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		hashSvc:     hashSvc,
		tokenSvc:    tokenSvc,
		replayStore: replayStore,
		botToken:    botToken,
		clk:         clk,
		log:         log,
	}
}

// initDataUser is the user payload embedded in Telegram init data.
type initDataUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	First    string `json:"first_name"`
}

// LoginTelegram verifies a Mini App init-data payload, rejects replays, and
// returns a session token for the (possibly just created) user.
func (s *AuthServiceImpl) LoginTelegram(ctx context.Context, initData string) (*ports.AuthResult, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, apperror.ErrInvalidInitData()
	}

	providedHash := values.Get("hash")
	if providedHash == "" {
		return nil, apperror.ErrInvalidInitData()
	}

	if !s.verifyInitDataSignature(values, providedHash) {
		return nil, apperror.ErrInvalidInitData()
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, apperror.ErrInvalidInitData()
	}
	now := s.clk.Now()
	if now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return nil, apperror.ErrInvalidInitData()
	}

	fresh, err := s.replayStore.CheckAndSet(ctx, initDataScope, providedHash, initDataMaxAge)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("replay check: %w", err))
	}
	if !fresh {
		return nil, apperror.ErrInitDataReplayed()
	}

	var tgUser initDataUser
	if err := json.Unmarshal([]byte(values.Get("user")), &tgUser); err != nil || tgUser.ID == 0 {
		return nil, apperror.ErrInvalidInitData()
	}

	user, err := s.findOrCreateUser(ctx, &tgUser)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokenSvc.Generate(user.ID, user.IsAdmin)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Int64("telegram_id", user.TelegramID).
		Msg("Mini App login")

	return &ports.AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// verifyInitDataSignature implements the Telegram WebApp check: HMAC-SHA256
// over the sorted key=value pairs (hash excluded) with a secret derived from
// the bot token.
func (s *AuthServiceImpl) verifyInitDataSignature(values url.Values, providedHash string) bool {
	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte(webAppKeyPhrase))
	secretMac.Write([]byte(s.botToken))
	secret := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(providedHash))
}

func (s *AuthServiceImpl) findOrCreateUser(ctx context.Context, tgUser *initDataUser) (*domain.User, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, tgUser.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user != nil {
		return user, nil
	}

	username := tgUser.Username
	if username == "" {
		username = tgUser.First
	}
	user = &domain.User{
		ID:         uuid.New(),
		TelegramID: tgUser.ID,
		Username:   username,
		Balance:    decimal.Zero,
		CreatedAt:  s.clk.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}
	return user, nil
}

// LoginAdmin authenticates an admin by username and password.
func (s *AuthServiceImpl) LoginAdmin(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil || !user.IsAdmin || user.PasswordHash == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hashSvc.Verify(password, *user.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(user.ID, true)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("Admin login")
	return token, expiresAt, nil
}
