package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

const StockChangedSubject = "stock.changed"

type StockMessage struct {
	TenantID  int64           `json:"tenant_id"`
	ProductID int64           `json:"product_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
}

func NewStockMessage(a StockAccount) StockMessage {
	return StockMessage{
		TenantID:  a.TenantID,
		ProductID: a.ProductID,
		OnHand:    a.OnHand,
		Reserved:  a.Reserved,
		Available: a.Available(),
	}
}

type BrokerPublisher interface {
	PublishStockChanged(ctx context.Context, data StockMessage) error
}
