package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"hash/fnv"
	"log/slog"
	"stock-service/app/domain"
	"sync"
	"time"
)

// pgLocker uses session-level advisory locks. Each held lock pins one pooled connection,
// so db must be a pool of its own: sharing it with the transaction pool lets lock holders
// starve their own transactions.
type pgLocker struct {
	db            *sql.DB
	retryInterval time.Duration
}

func NewPostgresLocker(db *sql.DB, retryInterval time.Duration) domain.Locker {
	return &pgLocker{db: db, retryInterval: retryInterval}
}

func advisoryKey(key domain.AccountKey) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "stock:%d:%d", key.TenantID, key.ProductID)
	return int64(h.Sum64())
}

func (l *pgLocker) Acquire(ctx context.Context, key domain.AccountKey, timeout time.Duration) (domain.Lock, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	id := advisoryKey(key)
	var lastErr error
	for {
		conn, ok, err := l.tryLock(acquireCtx, id)
		if err == nil && ok {
			return &pgLock{conn: conn, key: key, id: id}, nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-acquireCtx.Done():
			if lastErr != nil {
				slog.WarnContext(ctx, "[pgLocker] Acquire", "tryLock", lastErr, "key", key.String())
				return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockTimeout, key, lastErr)
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
		case <-time.After(l.retryInterval):
		}
	}
}

// tryLock takes a connection for a single attempt. Waiters hand it back between attempts.
func (l *pgLocker) tryLock(ctx context.Context, id int64) (*sql.Conn, bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, err
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, id).Scan(&ok); err != nil {
		// the session may hold the lock without us knowing, end it
		discard(conn)
		return nil, false, err
	}
	if !ok {
		conn.Close()
		return nil, false, nil
	}
	return conn, true, nil
}

// discard closes the session instead of returning it to the pool,
// which drops every advisory lock it still holds.
func discard(conn *sql.Conn) {
	conn.Raw(func(any) error { return driver.ErrBadConn })
	conn.Close()
}

type pgLock struct {
	conn *sql.Conn
	key  domain.AccountKey
	id   int64

	once sync.Once
	err  error
}

func (l *pgLock) Key() domain.AccountKey {
	return l.key
}

func (l *pgLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		var released bool
		err := l.conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, l.id).Scan(&released)
		if err == nil && !released {
			err = fmt.Errorf("advisory lock %d not held by session", l.id)
		}
		if err != nil {
			slog.ErrorContext(ctx, "[pgLock] Release", "unlock", err, "key", l.key.String())
			l.err = err
			discard(l.conn)
			return
		}
		l.conn.Close()
	})
	return l.err
}
