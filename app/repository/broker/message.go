package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"stock-service/app/domain"
)

func encode(data domain.StockMessage) ([]byte, error) {
	msg, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal stock message: %w", err)
	}
	return msg, nil
}

// messageKey keeps all events of one product on the same partition/ordering key.
func messageKey(data domain.StockMessage) string {
	return fmt.Sprintf("%d:%d", data.TenantID, data.ProductID)
}

type noopBroker struct{}

// NewNoopPublisher discards events. Used when BROKER_DRIVER=none.
func NewNoopPublisher() domain.BrokerPublisher {
	return noopBroker{}
}

func (noopBroker) PublishStockChanged(_ context.Context, _ domain.StockMessage) error {
	return nil
}
