package postgres

import (
	"context"
	"testing"
	"time"

	"channel-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPurchase(buyerID, sellerID uuid.UUID) *domain.Purchase {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Purchase{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		SellerID:        &sellerID,
		ChannelID:       uuid.New(),
		GiftID:          uuid.New(),
		Price:           decimal.RequireFromString("12.5"),
		Status:          domain.PurchaseStatusPendingConfirmation,
		BuyerConfirmed:  false,
		SellerConfirmed: false,
		BuyerDebited:    true,
		SellerCredited:  false,
		CreatedAt:       now,
	}
}

func purchaseCols() []string {
	return []string{"id", "buyer_id", "seller_id", "channel_id", "gift_id", "price", "status",
		"buyer_confirmed", "seller_confirmed", "buyer_debited", "seller_credited",
		"buyer_notified_at", "confirm_expires_at", "created_at"}
}

func purchaseRow(p *domain.Purchase) *pgxmock.Rows {
	return pgxmock.NewRows(purchaseCols()).AddRow(
		p.ID, p.BuyerID, p.SellerID, p.ChannelID, p.GiftID, p.Price, p.Status,
		p.BuyerConfirmed, p.SellerConfirmed, p.BuyerDebited, p.SellerCredited,
		p.BuyerNotifiedAt, p.ConfirmExpires, p.CreatedAt,
	)
}

func TestPurchaseRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	p := newTestPurchase(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO purchases").
		WithArgs(
			p.ID, p.BuyerID, p.SellerID, p.ChannelID, p.GiftID, p.Price, p.Status,
			p.BuyerConfirmed, p.SellerConfirmed, p.BuyerDebited, p.SellerCredited,
			p.BuyerNotifiedAt, p.ConfirmExpires, p.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	p := newTestPurchase(uuid.New(), uuid.New())

	mock.ExpectQuery("SELECT .+ FROM purchases WHERE id").
		WithArgs(p.ID).
		WillReturnRows(purchaseRow(p))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.BuyerID, result.BuyerID)
	assert.True(t, p.Price.Equal(result.Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM purchases WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(purchaseCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	p := newTestPurchase(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM purchases WHERE id .+ FOR UPDATE").
		WithArgs(p.ID).
		WillReturnRows(purchaseRow(p))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	p := newTestPurchase(uuid.New(), uuid.New())
	p.BuyerConfirmed = true
	p.SellerConfirmed = true
	p.SellerCredited = true
	p.Status = domain.PurchaseStatusTransferCompleted

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE purchases SET status").
		WithArgs(p.Status, p.BuyerConfirmed, p.SellerConfirmed, p.SellerCredited, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	p := newTestPurchase(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE purchases SET status").
		WithArgs(p.Status, p.BuyerConfirmed, p.SellerConfirmed, p.SellerCredited, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, p)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_ListByChannel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	p := newTestPurchase(uuid.New(), uuid.New())

	mock.ExpectQuery("SELECT .+ FROM purchases WHERE channel_id").
		WithArgs(p.ChannelID).
		WillReturnRows(purchaseRow(p))

	result, err := repo.ListByChannel(context.Background(), p.ChannelID)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, p.ID, result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_ListUnarmed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	p := newTestPurchase(uuid.New(), uuid.New())
	cutoff := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM purchases .+ buyer_notified_at IS NULL").
		WithArgs(cutoff, 100).
		WillReturnRows(purchaseRow(p))

	result, err := repo.ListUnarmed(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Nil(t, result[0].BuyerNotifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_Arm(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	id := uuid.New()
	notifiedAt := time.Now().UTC()
	expiresAt := notifiedAt.Add(6 * time.Hour)

	mock.ExpectExec("UPDATE purchases SET buyer_notified_at").
		WithArgs(notifiedAt, expiresAt, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	armed, err := repo.Arm(context.Background(), id, notifiedAt, expiresAt)
	assert.NoError(t, err)
	assert.True(t, armed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_Arm_AlreadyArmed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)
	notifiedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE purchases SET buyer_notified_at").
		WithArgs(notifiedAt, notifiedAt.Add(6*time.Hour), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	armed, err := repo.Arm(context.Background(), uuid.New(), notifiedAt, notifiedAt.Add(6*time.Hour))
	assert.NoError(t, err)
	assert.False(t, armed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPurchaseRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM purchases").
		WillReturnRows(pgxmock.NewRows(
			[]string{"total", "pending_confirmation", "pending_transfer", "in_progress", "completed", "volume"},
		).AddRow(int64(10), int64(4), int64(2), int64(1), int64(3), decimal.RequireFromString("37.5")))

	stats, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(3), stats.TransferCompleted)
	assert.True(t, stats.SettledVolume.Equal(decimal.RequireFromString("37.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
