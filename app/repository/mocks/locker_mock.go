package mocks

import (
	"context"
	"fmt"
	"stock-service/app/domain"
	"sync"
	"time"
)

// MockLocker is an in-process domain.Locker with the same token semantics as the Redis one.
// A lock taken by Acquire expires after TTL when TTL is set; Hold never expires.
type MockLocker struct {
	mu    sync.Mutex
	held  map[domain.AccountKey]mockHold
	token int64

	TTL time.Duration
	// Unavailable makes every Acquire behave as if the backing store were down.
	Unavailable  bool
	AcquireCalls int
	ReleaseCalls int
}

type mockHold struct {
	token   int64
	expires time.Time
}

func (h mockHold) live(now time.Time) bool {
	return h.expires.IsZero() || now.Before(h.expires)
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[domain.AccountKey]mockHold)}
}

// Hold takes the lock for key until the returned lock is released.
func (m *MockLocker) Hold(key domain.AccountKey) domain.Lock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token++
	m.held[key] = mockHold{token: m.token}
	return &mockLock{locker: m, key: key, token: m.token}
}

func (m *MockLocker) IsHeld(key domain.AccountKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.held[key]
	return ok && h.live(time.Now())
}

func (m *MockLocker) Acquire(ctx context.Context, key domain.AccountKey, timeout time.Duration) (domain.Lock, error) {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if !m.Unavailable {
			if h, taken := m.held[key]; !taken || !h.live(time.Now()) {
				m.token++
				hold := mockHold{token: m.token}
				if m.TTL > 0 {
					hold.expires = time.Now().Add(m.TTL)
				}
				m.held[key] = hold
				m.AcquireCalls++
				l := &mockLock{locker: m, key: key, token: m.token}
				m.mu.Unlock()
				return l, nil
			}
		}
		m.mu.Unlock()

		if time.Now().After(deadline) {
			m.mu.Lock()
			m.AcquireCalls++
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockTimeout, key, ctx.Err())
		case <-time.After(time.Millisecond):
		}
	}
}

type mockLock struct {
	locker *MockLocker
	key    domain.AccountKey
	token  int64
}

func (l *mockLock) Key() domain.AccountKey {
	return l.key
}

func (l *mockLock) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	l.locker.ReleaseCalls++
	if l.locker.held[l.key].token == l.token {
		delete(l.locker.held, l.key)
	}
	return nil
}
