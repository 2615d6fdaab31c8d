package usecase

import (
	"stock-service/app/domain"
	"stock-service/app/repository/mocks"
	"stock-service/config"
	"testing"

	"github.com/shopspring/decimal"
)

var testKey = domain.AccountKey{TenantID: 1, ProductID: 10}

func testConfig() *config.Config {
	return &config.Config{
		Db: config.DbConfig{TxRetryBackoffMs: 1},
		Lock: config.LockConfig{
			Driver:          "redis",
			TimeoutMs:       30,
			TTLMs:           1000,
			RetryIntervalMs: 1,
		},
		Import: config.ImportConfig{Concurrency: 4},
	}
}

type fixture struct {
	store     *mocks.MockStockStore
	locker    *mocks.MockLocker
	publisher *mocks.MockPublisher
	cfg       *config.Config

	stock        domain.StockService
	reservations domain.ReservationService
	imports      domain.ImportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     mocks.NewMockStockStore(),
		locker:    mocks.NewMockLocker(),
		publisher: mocks.NewMockPublisher(),
		cfg:       testConfig(),
	}
	f.stock = NewStockUsecase(f.store, f.locker, f.store.Accounts(), f.store.Movements(), f.publisher, f.cfg)
	f.reservations = NewReservationUsecase(f.store, f.locker, f.store.Accounts(), f.store.Reservations(), f.publisher, f.cfg)
	f.imports = NewImportUsecase(f.stock, f.cfg)
	return f
}

func (f *fixture) seed(onHand, reserved int64) {
	f.store.Seed(domain.StockAccount{
		TenantID:  testKey.TenantID,
		ProductID: testKey.ProductID,
		OnHand:    decimal.NewFromInt(onHand),
		Reserved:  decimal.NewFromInt(reserved),
	})
}

func (f *fixture) account(t *testing.T) domain.StockAccount {
	t.Helper()
	a, ok := f.store.Account(testKey)
	if !ok {
		t.Fatalf("account %s missing", testKey)
	}
	return a
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
