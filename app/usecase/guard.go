package usecase

import (
	"context"
	"errors"
	"log/slog"
	"stock-service/app/domain"
	"stock-service/config"
	"stock-service/pkg/metrics"
	"time"
)

// productGuard runs a mutation under the per-product mutex and one database transaction.
// Every writer of stock_accounts goes through it so on_hand and reserved share one lock.
type productGuard struct {
	store              domain.StockStore
	locker             domain.Locker
	stockPublishBroker domain.BrokerPublisher
	cfg                *config.Config
}

func newProductGuard(store domain.StockStore, locker domain.Locker, broker domain.BrokerPublisher, cfg *config.Config) *productGuard {
	return &productGuard{store, locker, broker, cfg}
}

// run reports whether the mutex was held while fn ran.
func (g *productGuard) run(ctx context.Context, key domain.AccountKey, policy domain.LockPolicy, fn func(context.Context, domain.StockTx) error) (bool, error) {
	start := time.Now()
	lock, err := g.locker.Acquire(ctx, key, g.cfg.Lock.Timeout())
	metrics.ObserveLockWait(start, err == nil)
	if err != nil {
		if !errors.Is(err, domain.ErrLockTimeout) || policy != domain.LockPolicyBestEffort {
			slog.ErrorContext(ctx, "[productGuard] run", "acquire", err, "key", key.String())
			return false, err
		}
		slog.WarnContext(ctx, "[productGuard] run", "unlockedMutation", err, "key", key.String())
		metrics.UnlockedMutationsTotal.Inc()
	}

	if lock != nil {
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				slog.WarnContext(ctx, "[productGuard] run", "release", err, "key", key.String())
			}
		}()
	}

	err = g.store.WithTransaction(ctx, fn)
	if errors.Is(err, domain.ErrTransactionConflict) {
		slog.WarnContext(ctx, "[productGuard] run", "transactionConflict", err, "key", key.String())

		select {
		case <-ctx.Done():
			metrics.TxConflictsTotal.WithLabelValues("surfaced").Inc()
			return lock != nil, err
		case <-time.After(g.cfg.Db.TxRetryBackoff()):
		}

		err = g.store.WithTransaction(ctx, fn)
		if errors.Is(err, domain.ErrTransactionConflict) {
			metrics.TxConflictsTotal.WithLabelValues("surfaced").Inc()
		} else {
			metrics.TxConflictsTotal.WithLabelValues("retried").Inc()
		}
	}

	return lock != nil, err
}

// afterCommit flags over-reservation and publishes the new balance. Neither can fail the mutation.
func (g *productGuard) afterCommit(ctx context.Context, account domain.StockAccount) {
	if account.OverReserved() {
		slog.WarnContext(ctx, "[productGuard] afterCommit", "overReserved", account.Key().String(),
			"onHand", account.OnHand.String(), "reserved", account.Reserved.String())
		metrics.OverReservedTotal.Inc()
	}

	if err := g.stockPublishBroker.PublishStockChanged(ctx, domain.NewStockMessage(account)); err != nil {
		slog.WarnContext(ctx, "[productGuard] afterCommit", "publishStockChanged", err)
		metrics.PublishFailuresTotal.Inc()
	}
}
