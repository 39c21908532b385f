package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"channel-market/internal/adapter/http/dto"
	"channel-market/internal/adapter/http/middleware"
	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"
	"channel-market/internal/core/ports/mocks"
	"channel-market/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJSONContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

// --- Purchase Handler Tests ---

func TestInitiatePurchase_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewPurchaseHandler(mockSvc)

	buyerID := uuid.New()
	channelID := uuid.New()
	giftID := uuid.New()
	purchaseID := uuid.New()

	mockSvc.EXPECT().Initiate(gomock.Any(), ports.InitiatePurchaseInput{
		BuyerID:   buyerID,
		ChannelID: channelID,
		GiftID:    giftID,
		Price:     decimal.RequireFromString("25.5"),
	}).Return(&domain.Purchase{
		ID:           purchaseID,
		BuyerID:      buyerID,
		ChannelID:    channelID,
		GiftID:       giftID,
		Price:        decimal.RequireFromString("25.5"),
		Status:       domain.PurchaseStatusPendingConfirmation,
		BuyerDebited: true,
	}, nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/purchases", dto.CreatePurchaseRequest{
		BuyerID:   buyerID.String(),
		ChannelID: channelID.String(),
		GiftID:    giftID.String(),
		Price:     decimal.RequireFromString("25.5"),
	})

	h.Initiate(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, purchaseID.String(), data["id"])
	assert.Equal(t, "pending_confirmation", data["status"])
	assert.Equal(t, true, data["buyer_debited"])
}

func TestInitiatePurchase_BindingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPurchaseHandler(mocks.NewMockPurchaseService(ctrl))

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/purchases", map[string]string{"buyerId": "not-a-uuid"})

	h.Initiate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiatePurchase_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewPurchaseHandler(mockSvc)

	mockSvc.EXPECT().Initiate(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/purchases", dto.CreatePurchaseRequest{
		BuyerID:   uuid.NewString(),
		ChannelID: uuid.NewString(),
		GiftID:    uuid.NewString(),
		Price:     decimal.RequireFromString("100"),
	})

	h.Initiate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MKT_001")
}

func TestGetPurchase_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewPurchaseHandler(mockSvc)

	id := uuid.New()
	mockSvc.EXPECT().GetByID(gomock.Any(), id).Return(&domain.Purchase{
		ID:     id,
		Status: domain.PurchaseStatusPendingTransfer,
	}, nil)

	c, w := newJSONContext(t, http.MethodGet, "/api/v1/purchases/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "pending_transfer", data["status"])
}

func TestGetPurchase_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPurchaseHandler(mocks.NewMockPurchaseService(ctrl))

	c, w := newJSONContext(t, http.MethodGet, "/api/v1/purchases/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmBuyer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewPurchaseHandler(mockSvc)

	id := uuid.New()
	mockSvc.EXPECT().ConfirmBuyer(gomock.Any(), id).Return(&domain.Purchase{
		ID:             id,
		BuyerConfirmed: true,
		Status:         domain.PurchaseStatusPendingTransfer,
	}, nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/purchases/"+id.String()+"/confirm-buyer", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.ConfirmBuyer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["buyer_confirmed"])
}

func TestConfirmSeller_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewPurchaseHandler(mockSvc)

	id := uuid.New()
	mockSvc.EXPECT().ConfirmSeller(gomock.Any(), id).Return(nil, apperror.ErrNotFound("purchase"))

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/purchases/"+id.String()+"/confirm-seller", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.ConfirmSeller(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPurchasesByChannel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewPurchaseHandler(mockSvc)

	channelID := uuid.New()
	mockSvc.EXPECT().ListByChannel(gomock.Any(), channelID).Return([]domain.Purchase{
		{ID: uuid.New(), ChannelID: channelID},
		{ID: uuid.New(), ChannelID: channelID},
	}, nil)

	c, w := newJSONContext(t, http.MethodGet, "/api/v1/purchases/channel/"+channelID.String(), nil)
	c.Params = gin.Params{{Key: "channelId", Value: channelID.String()}}

	h.ListByChannel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["data"].([]interface{})
	assert.Len(t, items, 2)
}

// --- Channel Handler Tests ---

func TestCreateChannel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChannels := mocks.NewMockChannelService(ctrl)
	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewChannelHandler(mockChannels, mockUsers)

	giftID := uuid.New()
	channelID := uuid.New()

	mockChannels.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, in ports.CreateChannelInput) (*domain.Channel, error) {
			assert.Equal(t, "Crypto News", in.Name)
			assert.Equal(t, "https://t.me/crypto_news", in.Link)
			require.Len(t, in.Gifts, 1)
			assert.Equal(t, giftID, in.Gifts[0].GiftID)
			return &domain.Channel{ID: channelID, Name: in.Name, Price: in.Price}, nil
		})

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{
		Name:     "Crypto News",
		Link:     "https://t.me/crypto_news",
		Price:    decimal.RequireFromString("40"),
		Category: "crypto",
		Gifts:    []dto.BundleItemRequest{{GiftID: giftID.String(), Quantity: 3}},
	})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, channelID.String(), data["id"])
}

func TestCreateChannel_BadLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewChannelHandler(mocks.NewMockChannelService(ctrl), mocks.NewMockUserService(ctrl))

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{
		Name:     "Bad",
		Link:     "ftp://example.com/x",
		Price:    decimal.RequireFromString("10"),
		Category: "other",
		Gifts:    []dto.BundleItemRequest{{GiftID: uuid.NewString(), Quantity: 1}},
	})

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteChannel_ByOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChannels := mocks.NewMockChannelService(ctrl)
	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewChannelHandler(mockChannels, mockUsers)

	channelID := uuid.New()
	actorID := uuid.New()
	actor := &domain.User{ID: actorID}

	mockUsers.EXPECT().GetByID(gomock.Any(), actorID).Return(actor, nil)
	mockChannels.EXPECT().Delete(gomock.Any(), channelID, actor).Return(nil)

	c, w := newJSONContext(t, http.MethodDelete, "/api/v1/channels/"+channelID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: channelID.String()}}
	c.Set(middleware.CtxUserID, actorID)

	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteChannel_Forbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChannels := mocks.NewMockChannelService(ctrl)
	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewChannelHandler(mockChannels, mockUsers)

	channelID := uuid.New()
	actorID := uuid.New()
	actor := &domain.User{ID: actorID}

	mockUsers.EXPECT().GetByID(gomock.Any(), actorID).Return(actor, nil)
	mockChannels.EXPECT().Delete(gomock.Any(), channelID, actor).Return(apperror.ErrForbidden())

	c, w := newJSONContext(t, http.MethodDelete, "/api/v1/channels/"+channelID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: channelID.String()}}
	c.Set(middleware.CtxUserID, actorID)

	h.Delete(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteChannel_NoAuthContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewChannelHandler(mocks.NewMockChannelService(ctrl), mocks.NewMockUserService(ctrl))

	c, w := newJSONContext(t, http.MethodDelete, "/api/v1/channels/"+uuid.NewString(), nil)
	c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}

	h.Delete(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- User Handler Tests ---

func TestRegisterUser_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewUserHandler(mockUsers)

	userID := uuid.New()
	mockUsers.EXPECT().Register(gomock.Any(), ports.RegisterUserInput{
		TelegramID: 522130841,
		Username:   "durov_fan",
	}).Return(&domain.User{ID: userID, TelegramID: 522130841, Username: "durov_fan"}, nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/users", dto.RegisterUserRequest{
		TelegramID: 522130841,
		Username:   "durov_fan",
	})

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, userID.String(), data["id"])
}

func TestRegisterUser_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewUserHandler(mockUsers)

	mockUsers.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrUserExists())

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/users", dto.RegisterUserRequest{
		TelegramID: 522130841,
		Username:   "durov_fan",
	})

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewUserHandler(mockUsers)

	userID := uuid.New()
	depositID := uuid.New()

	mockUsers.EXPECT().Deposit(gomock.Any(), ports.DepositInput{
		UserID:    userID,
		Reference: "tx_abc123",
		Amount:    decimal.RequireFromString("50"),
	}).Return(&domain.Deposit{
		ID:        depositID,
		UserID:    userID,
		Reference: "tx_abc123",
		Amount:    decimal.RequireFromString("50"),
	}, nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/users/"+userID.String()+"/deposit", dto.DepositRequest{
		Reference: "tx_abc123",
		Amount:    decimal.RequireFromString("50"),
	})
	c.Params = gin.Params{{Key: "id", Value: userID.String()}}

	h.Deposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, depositID.String(), data["id"])
}

func TestDeposit_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewUserHandler(mockUsers)

	userID := uuid.New()
	mockUsers.EXPECT().Deposit(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrDuplicateDeposit())

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/users/"+userID.String()+"/deposit", dto.DepositRequest{
		Reference: "tx_abc123",
		Amount:    decimal.RequireFromString("50"),
	})
	c.Params = gin.Params{{Key: "id", Value: userID.String()}}

	h.Deposit(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReferralSummary_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewUserHandler(mockUsers)

	userID := uuid.New()
	mockUsers.EXPECT().ReferralSummary(gomock.Any(), userID).Return(&ports.ReferralSummary{
		Referrals:   3,
		TotalEarned: decimal.RequireFromString("12.5"),
	}, nil)

	c, w := newJSONContext(t, http.MethodGet, "/api/v1/users/"+userID.String()+"/referrals", nil)
	c.Params = gin.Params{{Key: "id", Value: userID.String()}}

	h.ReferralSummary(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(3), data["referrals"])
}

// --- Auth Handler Tests ---

func TestLoginTelegram_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().LoginTelegram(gomock.Any(), "auth_date=1&hash=abc").Return(&ports.AuthResult{
		Token:     "jwt-token-123",
		ExpiresAt: expiry,
		User:      &domain.User{ID: uuid.New(), Username: "durov_fan"},
	}, nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/auth/telegram", dto.TelegramLoginRequest{
		InitData: "auth_date=1&hash=abc",
	})

	h.LoginTelegram(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "jwt-token-123", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
}

func TestLoginTelegram_InvalidInitData(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().LoginTelegram(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInvalidInitData())

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/auth/telegram", dto.TelegramLoginRequest{
		InitData: "hash=forged",
	})

	h.LoginTelegram(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestLoginAdmin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(time.Hour)
	mockAuth.EXPECT().LoginAdmin(gomock.Any(), "admin", "hunter22").Return("admin-token", expiry, nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/auth/admin/login", dto.AdminLoginRequest{
		Username: "admin",
		Password: "hunter22",
	})

	h.LoginAdmin(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "admin-token", data["token"])
}

// --- Admin Handler Tests ---

func TestAdjustBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserService(ctrl)
	mockStats := mocks.NewMockStatsService(ctrl)
	h := NewAdminHandler(mockUsers, mockStats)

	userID := uuid.New()
	mockUsers.EXPECT().AdjustBalance(gomock.Any(), userID, decimal.RequireFromString("-30")).
		Return(&domain.User{ID: userID, Balance: decimal.RequireFromString("70")}, nil)

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/admin/users/"+userID.String()+"/balance", dto.BalanceAdjustRequest{
		Delta: decimal.RequireFromString("-30"),
	})
	c.Params = gin.Params{{Key: "id", Value: userID.String()}}

	h.AdjustBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "70", data["balance"])
}

func TestAdjustBalance_WouldGoNegative(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserService(ctrl)
	h := NewAdminHandler(mockUsers, mocks.NewMockStatsService(ctrl))

	userID := uuid.New()
	mockUsers.EXPECT().AdjustBalance(gomock.Any(), userID, gomock.Any()).
		Return(nil, apperror.ErrInsufficientFunds())

	c, w := newJSONContext(t, http.MethodPost, "/api/v1/admin/users/"+userID.String()+"/balance", dto.BalanceAdjustRequest{
		Delta: decimal.RequireFromString("-999"),
	})
	c.Params = gin.Params{{Key: "id", Value: userID.String()}}

	h.AdjustBalance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStats := mocks.NewMockStatsService(ctrl)
	h := NewAdminHandler(mocks.NewMockUserService(ctrl), mockStats)

	mockStats.EXPECT().GetSettlementStats(gomock.Any()).Return(&ports.SettlementStats{
		Total:             10,
		TransferCompleted: 4,
		SettledVolume:     decimal.RequireFromString("120.5"),
	}, nil)

	c, w := newJSONContext(t, http.MethodGet, "/api/v1/admin/stats", nil)

	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(10), data["total"])
	assert.Equal(t, "120.5", data["settled_volume"])
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(_ context.Context) error { return s.err }
func (s stubChecker) Name() string                 { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	c, w := newJSONContext(t, http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	c, w := newJSONContext(t, http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}
