package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// AccountKey identifies a StockAccount and the per-product mutex guarding it.
type AccountKey struct {
	TenantID  int64
	ProductID int64
}

func (k AccountKey) String() string {
	return fmt.Sprintf("%d:%d", k.TenantID, k.ProductID)
}

type StockAccount struct {
	TenantID  int64           `json:"tenant_id"`
	ProductID int64           `json:"product_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (a StockAccount) Key() AccountKey {
	return AccountKey{TenantID: a.TenantID, ProductID: a.ProductID}
}

// Available is on_hand minus reserved, clamped to zero.
func (a StockAccount) Available() decimal.Decimal {
	v := a.OnHand.Sub(a.Reserved)
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// OverReserved reports whether reserved exceeds on_hand.
func (a StockAccount) OverReserved() bool {
	return a.Reserved.GreaterThan(a.OnHand)
}

type StockResponse struct {
	TenantID  int64           `json:"tenant_id"`
	ProductID int64           `json:"product_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewStockResponse(a StockAccount) StockResponse {
	return StockResponse{
		TenantID:  a.TenantID,
		ProductID: a.ProductID,
		OnHand:    a.OnHand,
		Reserved:  a.Reserved,
		Available: a.Available(),
		UpdatedAt: a.UpdatedAt,
	}
}

type AdjustMode string

const (
	AdjustModeSet       AdjustMode = "set"
	AdjustModeIncrement AdjustMode = "increment"
)

// LockPolicy decides what an adjustment does when the per-product mutex cannot be acquired.
type LockPolicy string

const (
	// LockPolicyStrict fails the adjustment with ErrLockTimeout.
	LockPolicyStrict LockPolicy = "strict"
	// LockPolicyBestEffort proceeds without the mutex, relying on the row lock alone.
	LockPolicyBestEffort LockPolicy = "best_effort"
)

type AdjustMeta struct {
	Kind    MovementKind
	Source  string
	ActorID *int64
	Note    *string
}

type AdjustRequest struct {
	Key   AccountKey
	Mode  AdjustMode
	Value decimal.Decimal
	Meta  AdjustMeta

	LockPolicy      LockPolicy
	CreateIfMissing bool
	// AllowNegative keeps a negative on_hand instead of clamping the result at zero.
	AllowNegative bool
}

type AdjustResult struct {
	OldOnHand decimal.Decimal `json:"old_on_hand"`
	NewOnHand decimal.Decimal `json:"new_on_hand"`
	Delta     decimal.Decimal `json:"delta"`
	Movement  Movement        `json:"movement"`
	Account   StockResponse   `json:"account"`
	Locked    bool            `json:"locked"`
}

type UpdateStockRequest struct {
	Mode  AdjustMode   `json:"mode" validate:"required,oneof=set increment"`
	Value string       `json:"value" validate:"required"`
	Kind  MovementKind `json:"kind" validate:"omitempty,oneof=in out adjust return"`
	Note  *string      `json:"note"`
}

type ReconcileResult struct {
	TenantID   int64           `json:"tenant_id"`
	ProductID  int64           `json:"product_id"`
	OnHand     decimal.Decimal `json:"on_hand"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Drift      decimal.Decimal `json:"drift"`
	Consistent bool            `json:"consistent"`
}

type GetListRequest struct {
	Page  int64 `query:"page"`
	Limit int64 `query:"limit"`
}

type Metadata struct {
	TotalData int64 `json:"total_data"`
	TotalPage int64 `json:"total_page"`
	Page      int64 `json:"page"`
	Limit     int64 `json:"limit"`
}

// StockTx is the set of writes available inside one database transaction.
// Every method runs on the same underlying transaction.
type StockTx interface {
	// GetAccountForUpdate reads the account with a row-level lock. Returns ErrNotFound.
	GetAccountForUpdate(ctx context.Context, key AccountKey) (StockAccount, error)
	// CreateAccount inserts a zeroed account if missing and returns it row-locked.
	CreateAccount(ctx context.Context, key AccountKey) (StockAccount, error)
	UpdateAccount(ctx context.Context, account *StockAccount) error
	AppendMovement(ctx context.Context, movement *Movement) error

	CreateReservation(ctx context.Context, reservation *Reservation) error
	GetReservationForUpdate(ctx context.Context, tenantID int64, id uuid.UUID) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, reservation *Reservation) error
}

type StockStore interface {
	WithTransaction(ctx context.Context, fn func(context.Context, StockTx) error) error
}

type StockAccountRepository interface {
	GetByKey(ctx context.Context, key AccountKey) (StockAccount, error)
}

type StockService interface {
	Adjust(ctx context.Context, req AdjustRequest) (AdjustResult, error)
	GetAccount(ctx context.Context, key AccountKey) (StockResponse, error)
	ListMovements(ctx context.Context, key AccountKey, param GetListRequest) ([]Movement, Metadata, error)
	Reconcile(ctx context.Context, key AccountKey) (ReconcileResult, error)
}
