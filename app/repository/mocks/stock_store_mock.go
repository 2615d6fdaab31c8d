package mocks

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"stock-service/app/domain"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// MockStockStore is an in-memory domain.StockStore. Transactions are serialized
// on one mutex and only become visible when fn returns nil.
type MockStockStore struct {
	mu           sync.Mutex
	accounts     map[domain.AccountKey]domain.StockAccount
	movements    []domain.Movement
	reservations map[uuid.UUID]domain.Reservation
	nextID       int64

	// ConflictsToInject makes the next N transactions fail with ErrTransactionConflict.
	ConflictsToInject int
	// AppendMovementErr fails every AppendMovement inside a transaction.
	AppendMovementErr error
	TxCalls           int
}

func NewMockStockStore() *MockStockStore {
	return &MockStockStore{
		accounts:     make(map[domain.AccountKey]domain.StockAccount),
		reservations: make(map[uuid.UUID]domain.Reservation),
	}
}

// Seed stores an account directly, bypassing the ledger.
func (m *MockStockStore) Seed(account domain.StockAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
		account.UpdatedAt = account.CreatedAt
	}
	m.accounts[account.Key()] = account
}

func (m *MockStockStore) Account(key domain.AccountKey) (domain.StockAccount, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[key]
	return a, ok
}

func (m *MockStockStore) MovementsFor(key domain.AccountKey) []domain.Movement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Movement
	for _, mv := range m.movements {
		if mv.TenantID == key.TenantID && mv.ProductID == key.ProductID {
			out = append(out, mv)
		}
	}
	return out
}

func (m *MockStockStore) ReservationByID(id uuid.UUID) (domain.Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	return r, ok
}

func (m *MockStockStore) WithTransaction(ctx context.Context, fn func(context.Context, domain.StockTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TxCalls++
	if m.ConflictsToInject > 0 {
		m.ConflictsToInject--
		return fmt.Errorf("%w: injected", domain.ErrTransactionConflict)
	}

	tx := &mockTx{
		store:        m,
		accounts:     maps.Clone(m.accounts),
		reservations: maps.Clone(m.reservations),
		nextID:       m.nextID,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.accounts = tx.accounts
	m.reservations = tx.reservations
	m.movements = append(m.movements, tx.movements...)
	m.nextID = tx.nextID
	return nil
}

type mockTx struct {
	store        *MockStockStore
	accounts     map[domain.AccountKey]domain.StockAccount
	reservations map[uuid.UUID]domain.Reservation
	movements    []domain.Movement
	nextID       int64
}

func (t *mockTx) GetAccountForUpdate(_ context.Context, key domain.AccountKey) (domain.StockAccount, error) {
	a, ok := t.accounts[key]
	if !ok {
		return domain.StockAccount{}, domain.ErrNotFound
	}
	return a, nil
}

func (t *mockTx) CreateAccount(ctx context.Context, key domain.AccountKey) (domain.StockAccount, error) {
	if _, ok := t.accounts[key]; !ok {
		now := time.Now()
		t.accounts[key] = domain.StockAccount{
			TenantID:  key.TenantID,
			ProductID: key.ProductID,
			OnHand:    decimal.Zero,
			Reserved:  decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return t.GetAccountForUpdate(ctx, key)
}

func (t *mockTx) UpdateAccount(_ context.Context, account *domain.StockAccount) error {
	if _, ok := t.accounts[account.Key()]; !ok {
		return domain.ErrNotFound
	}
	account.UpdatedAt = time.Now()
	t.accounts[account.Key()] = *account
	return nil
}

func (t *mockTx) AppendMovement(_ context.Context, movement *domain.Movement) error {
	if t.store.AppendMovementErr != nil {
		return t.store.AppendMovementErr
	}
	t.nextID++
	movement.ID = t.nextID
	movement.CreatedAt = time.Now()
	t.movements = append(t.movements, *movement)
	return nil
}

func (t *mockTx) CreateReservation(_ context.Context, reservation *domain.Reservation) error {
	if _, ok := t.accounts[reservation.Key()]; !ok {
		return fmt.Errorf("foreign key: %w", domain.ErrProductNotFound)
	}
	reservation.CreatedAt = time.Now()
	t.reservations[reservation.ID] = *reservation
	return nil
}

func (t *mockTx) GetReservationForUpdate(_ context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error) {
	r, ok := t.reservations[id]
	if !ok || r.TenantID != tenantID {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, nil
}

func (t *mockTx) UpdateReservationStatus(_ context.Context, reservation *domain.Reservation) error {
	current, ok := t.reservations[reservation.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != domain.ReservationStatusReserved {
		return domain.ErrAlreadyTerminal
	}
	t.reservations[reservation.ID] = *reservation
	return nil
}

// Accounts exposes the store as a domain.StockAccountRepository.
func (m *MockStockStore) Accounts() domain.StockAccountRepository {
	return accountRepo{m}
}

func (m *MockStockStore) Movements() domain.MovementRepository {
	return movementRepo{m}
}

func (m *MockStockStore) Reservations() domain.ReservationRepository {
	return reservationRepo{m}
}

type accountRepo struct{ m *MockStockStore }

func (r accountRepo) GetByKey(_ context.Context, key domain.AccountKey) (domain.StockAccount, error) {
	a, ok := r.m.Account(key)
	if !ok {
		return domain.StockAccount{}, domain.ErrNotFound
	}
	return a, nil
}

type movementRepo struct{ m *MockStockStore }

func (r movementRepo) ListByProduct(_ context.Context, key domain.AccountKey, param domain.GetListRequest) ([]domain.Movement, error) {
	all := r.m.MovementsFor(key)
	slices.Reverse(all)

	offset := int((param.Page - 1) * param.Limit)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+int(param.Limit), len(all))
	return all[offset:end], nil
}

func (r movementRepo) CountByProduct(_ context.Context, key domain.AccountKey) (int64, error) {
	return int64(len(r.m.MovementsFor(key))), nil
}

func (r movementRepo) SumDelta(_ context.Context, key domain.AccountKey) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, mv := range r.m.MovementsFor(key) {
		sum = sum.Add(mv.Delta)
	}
	return sum, nil
}

type reservationRepo struct{ m *MockStockStore }

func (r reservationRepo) GetByID(_ context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error) {
	res, ok := r.m.ReservationByID(id)
	if !ok || res.TenantID != tenantID {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, nil
}

func (r reservationRepo) ListByProduct(_ context.Context, key domain.AccountKey, status domain.ReservationStatus) ([]domain.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []domain.Reservation
	for _, res := range r.m.reservations {
		if res.Key() != key || (status != "" && res.Status != status) {
			continue
		}
		out = append(out, res)
	}
	slices.SortFunc(out, func(a, b domain.Reservation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (r reservationRepo) SumActiveQty(ctx context.Context, key domain.AccountKey) (decimal.Decimal, error) {
	active, _ := r.ListByProduct(ctx, key, domain.ReservationStatusReserved)
	sum := decimal.Zero
	for _, res := range active {
		sum = sum.Add(res.Qty)
	}
	return sum, nil
}
