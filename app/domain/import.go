package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type ImportRow struct {
	ProductID int64  `json:"product_id" validate:"required"`
	Value     string `json:"value" validate:"required"`
}

type ImportRequest struct {
	Mode          AdjustMode   `json:"mode" validate:"required,oneof=set increment"`
	Kind          MovementKind `json:"kind" validate:"omitempty,oneof=in out adjust return"`
	AllowUnlocked bool         `json:"allow_unlocked"`
	Rows          []ImportRow  `json:"rows" validate:"required,min=1,dive"`
}

type ImportRowResult struct {
	Row       int              `json:"row"`
	ProductID int64            `json:"product_id"`
	Applied   bool             `json:"applied"`
	Locked    bool             `json:"locked"`
	NewOnHand *decimal.Decimal `json:"new_on_hand,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type ImportSummary struct {
	Total    int               `json:"total"`
	Applied  int               `json:"applied"`
	Failed   int               `json:"failed"`
	Unlocked int               `json:"unlocked"`
	Rows     []ImportRowResult `json:"rows"`
}

type ImportService interface {
	Import(ctx context.Context, tenantID int64, actorID *int64, req ImportRequest) (ImportSummary, error)
}
