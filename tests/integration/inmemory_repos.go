package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"channel-market/internal/core/domain"
	"channel-market/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.TelegramID == u.TelegramID {
			return fmt.Errorf("telegram id already registered")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryUserRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Balance = u.Balance.Add(delta)
	return nil
}

func (r *inMemoryUserRepo) ListReferrals(ctx context.Context, referrerID uuid.UUID) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.User
	for _, u := range r.users {
		if u.ReferrerID != nil && *u.ReferrerID == referrerID {
			out = append(out, *u)
		}
	}
	return out, nil
}

// --- In-Memory Channel Repo ---

type inMemoryChannelRepo struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]*domain.Channel
}

func newInMemoryChannelRepo() *inMemoryChannelRepo {
	return &inMemoryChannelRepo{channels: make(map[uuid.UUID]*domain.Channel)}
}

func (r *inMemoryChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ch
	cp.Gifts = append([]domain.BundleItem(nil), ch.Gifts...)
	r.channels[ch.ID] = &cp
	return nil
}

func (r *inMemoryChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	cp.Gifts = append([]domain.BundleItem(nil), ch.Gifts...)
	return &cp, nil
}

func (r *inMemoryChannelRepo) List(ctx context.Context) ([]domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, *ch)
	}
	return out, nil
}

func (r *inMemoryChannelRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return false, nil
	}
	delete(r.channels, id)
	return true, nil
}

// --- In-Memory Gift Repo ---

type inMemoryGiftRepo struct {
	mu    sync.RWMutex
	gifts map[uuid.UUID]*domain.Gift
}

func newInMemoryGiftRepo(gifts ...domain.Gift) *inMemoryGiftRepo {
	r := &inMemoryGiftRepo{gifts: make(map[uuid.UUID]*domain.Gift)}
	for i := range gifts {
		g := gifts[i]
		r.gifts[g.ID] = &g
	}
	return r
}

func (r *inMemoryGiftRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Gift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gifts[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *inMemoryGiftRepo) List(ctx context.Context) ([]domain.Gift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Gift, 0, len(r.gifts))
	for _, g := range r.gifts {
		out = append(out, *g)
	}
	return out, nil
}

// --- In-Memory Purchase Repo ---

type inMemoryPurchaseRepo struct {
	mu        sync.RWMutex
	purchases map[uuid.UUID]*domain.Purchase
}

func newInMemoryPurchaseRepo() *inMemoryPurchaseRepo {
	return &inMemoryPurchaseRepo{purchases: make(map[uuid.UUID]*domain.Purchase)}
}

func (r *inMemoryPurchaseRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.purchases[p.ID] = &cp
	return nil
}

func (r *inMemoryPurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.purchases[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPurchaseRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryPurchaseRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.purchases[p.ID]; !ok {
		return fmt.Errorf("purchase not found")
	}
	cp := *p
	r.purchases[p.ID] = &cp
	return nil
}

func (r *inMemoryPurchaseRepo) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]domain.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Purchase
	for _, p := range r.purchases {
		if p.ChannelID == channelID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *inMemoryPurchaseRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Purchase
	for _, p := range r.purchases {
		if p.SellerID != nil && *p.SellerID == sellerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *inMemoryPurchaseRepo) ListUnarmed(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Purchase
	for _, p := range r.purchases {
		if p.BuyerNotifiedAt == nil && p.CreatedAt.Before(createdBefore) {
			out = append(out, *p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *inMemoryPurchaseRepo) Arm(ctx context.Context, id uuid.UUID, notifiedAt, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok || p.BuyerNotifiedAt != nil {
		return false, nil
	}
	na := notifiedAt
	ea := expiresAt
	p.BuyerNotifiedAt = &na
	p.ConfirmExpires = &ea
	return true, nil
}

func (r *inMemoryPurchaseRepo) GetStats(ctx context.Context) (*ports.SettlementStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.SettlementStats{SettledVolume: decimal.Zero}
	for _, p := range r.purchases {
		stats.Total++
		switch p.Status {
		case domain.PurchaseStatusPendingConfirmation:
			stats.PendingConfirmation++
		case domain.PurchaseStatusPendingTransfer:
			stats.PendingTransfer++
		case domain.PurchaseStatusTransferInProgress:
			stats.TransferInProgress++
		case domain.PurchaseStatusTransferCompleted:
			stats.TransferCompleted++
			stats.SettledVolume = stats.SettledVolume.Add(p.Price)
		}
	}
	return stats, nil
}

// --- In-Memory Deposit Repo ---

type inMemoryDepositRepo struct {
	mu       sync.RWMutex
	deposits map[uuid.UUID]*domain.Deposit
	logs     map[string]*domain.IdempotencyLog
}

func newInMemoryDepositRepo() *inMemoryDepositRepo {
	return &inMemoryDepositRepo{
		deposits: make(map[uuid.UUID]*domain.Deposit),
		logs:     make(map[string]*domain.IdempotencyLog),
	}
}

func (r *inMemoryDepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deposits[d.ID] = &cp
	return nil
}

func (r *inMemoryDepositRepo) CreateLog(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *log
	r.logs[log.Key] = &cp
	return nil
}

func (r *inMemoryDepositRepo) GetLog(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *inMemoryDepositRepo) SumAmountByUsers(ctx context.Context, userIDs []uuid.UUID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := decimal.Zero
	for _, d := range r.deposits {
		for _, id := range userIDs {
			if d.UserID == id {
				total = total.Add(d.Amount)
				break
			}
		}
	}
	return total, nil
}

// --- In-Memory Transactor (serializing) ---

// lockingTransactor serializes all transactions behind one mutex, standing in
// for the row locks the SQL layer takes with SELECT ... FOR UPDATE.
type lockingTransactor struct {
	mu sync.Mutex
}

func newLockingTransactor() *lockingTransactor {
	return &lockingTransactor{}
}

func (t *lockingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: &t.mu}, nil
}

// serialTx is a pgx.Tx that holds the transactor lock until finished.
type serialTx struct {
	release *sync.Mutex
	done    sync.Once
}

func (t *serialTx) finish() {
	t.done.Do(func() { t.release.Unlock() })
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) Commit(ctx context.Context) error          { t.finish(); return nil }
func (t *serialTx) Rollback(ctx context.Context) error        { t.finish(); return nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
