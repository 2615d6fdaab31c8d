package mocks

import (
	"context"
	"stock-service/app/domain"
	"sync"
)

type MockPublisher struct {
	mu       sync.Mutex
	messages []domain.StockMessage

	PublishErr error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishStockChanged(_ context.Context, data domain.StockMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *MockPublisher) Messages() []domain.StockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StockMessage, len(m.messages))
	copy(out, m.messages)
	return out
}
