package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementKindIn     MovementKind = "in"
	MovementKindOut    MovementKind = "out"
	MovementKindAdjust MovementKind = "adjust"
	MovementKindReturn MovementKind = "return"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementKindIn, MovementKindOut, MovementKindAdjust, MovementKindReturn:
		return true
	}
	return false
}

// Movement is one immutable ledger entry. Delta is the observed on_hand change.
type Movement struct {
	ID        int64           `json:"id"`
	TenantID  int64           `json:"tenant_id"`
	ProductID int64           `json:"product_id"`
	Delta     decimal.Decimal `json:"delta"`
	Kind      MovementKind    `json:"kind"`
	Source    string          `json:"source"`
	ActorID   *int64          `json:"actor_id"`
	Note      *string         `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}

// MovementRepository is the read side of the ledger. Appends only happen through StockTx.
type MovementRepository interface {
	ListByProduct(ctx context.Context, key AccountKey, param GetListRequest) ([]Movement, error)
	CountByProduct(ctx context.Context, key AccountKey) (int64, error)
	SumDelta(ctx context.Context, key AccountKey) (decimal.Decimal, error)
}
