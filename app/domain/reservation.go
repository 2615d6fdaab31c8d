package domain

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "reserved"
	ReservationStatusCommitted ReservationStatus = "committed"
	ReservationStatusReleased  ReservationStatus = "released"
)

func (s ReservationStatus) Terminal() bool {
	return s == ReservationStatusCommitted || s == ReservationStatusReleased
}

const (
	ReservationSourceLive   = "live"
	ReservationSourceManual = "manual"
)

type Reservation struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    int64             `json:"tenant_id"`
	ProductID   int64             `json:"product_id"`
	ClientID    *int64            `json:"client_id"`
	Qty         decimal.Decimal   `json:"qty"`
	Status      ReservationStatus `json:"status"` // "reserved", "committed", "released"
	Source      string            `json:"source"`
	CreatedAt   time.Time         `json:"created_at"`
	CommittedAt *time.Time        `json:"committed_at,omitempty"`
	ReleasedAt  *time.Time        `json:"released_at,omitempty"`
}

func (r Reservation) Key() AccountKey {
	return AccountKey{TenantID: r.TenantID, ProductID: r.ProductID}
}

// Transition moves a reserved reservation into a terminal state.
func (r *Reservation) Transition(to ReservationStatus, at time.Time) error {
	if r.Status != ReservationStatusReserved {
		return ErrAlreadyTerminal
	}
	switch to {
	case ReservationStatusCommitted:
		r.CommittedAt = &at
	case ReservationStatusReleased:
		r.ReleasedAt = &at
	default:
		return ErrInvalidStateTransition
	}
	r.Status = to
	return nil
}

type ReservationCreateRequest struct {
	TenantID  int64  `json:"tenant_id" validate:"required"`
	ProductID int64  `json:"product_id" validate:"required"`
	ClientID  *int64 `json:"client_id"`
	Qty       string `json:"qty" validate:"required"`
	Source    string `json:"source" validate:"required,max=32"`
}

type ReservationCreate struct {
	Key      AccountKey
	ClientID *int64
	Qty      decimal.Decimal
	Source   string
}

type ConservationResult struct {
	TenantID   int64           `json:"tenant_id"`
	ProductID  int64           `json:"product_id"`
	Reserved   decimal.Decimal `json:"reserved"`
	ActiveSum  decimal.Decimal `json:"active_sum"`
	Consistent bool            `json:"consistent"`
}

type ReservationRepository interface {
	GetByID(ctx context.Context, tenantID int64, id uuid.UUID) (Reservation, error)
	ListByProduct(ctx context.Context, key AccountKey, status ReservationStatus) ([]Reservation, error)
	SumActiveQty(ctx context.Context, key AccountKey) (decimal.Decimal, error)
}

type ReservationService interface {
	Create(ctx context.Context, req ReservationCreate) (Reservation, error)
	Commit(ctx context.Context, tenantID int64, id uuid.UUID) (Reservation, error)
	Release(ctx context.Context, tenantID int64, id uuid.UUID) (Reservation, error)
	Get(ctx context.Context, tenantID int64, id uuid.UUID) (Reservation, error)
	ListByProduct(ctx context.Context, key AccountKey, status ReservationStatus) ([]Reservation, error)
	CheckConservation(ctx context.Context, key AccountKey) (ConservationResult, error)
}
