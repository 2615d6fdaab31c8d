package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"stock-service/app/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func increment(v int64) domain.AdjustRequest {
	return domain.AdjustRequest{Key: testKey, Mode: domain.AdjustModeIncrement, Value: dec(v)}
}

func TestAdjust_SetWritesAdjustEntry(t *testing.T) {
	f := newFixture(t)
	f.seed(12, 0)

	res, err := f.stock.Adjust(context.Background(), domain.AdjustRequest{Key: testKey, Mode: domain.AdjustModeSet, Value: dec(20)})
	require.NoError(t, err)

	assert.True(t, res.OldOnHand.Equal(dec(12)))
	assert.True(t, res.NewOnHand.Equal(dec(20)))
	assert.True(t, res.Delta.Equal(dec(8)))
	assert.True(t, res.Locked)

	movements := f.store.MovementsFor(testKey)
	require.Len(t, movements, 1)
	assert.True(t, movements[0].Delta.Equal(dec(8)))
	assert.Equal(t, domain.MovementKindAdjust, movements[0].Kind)
	assert.Equal(t, defaultMovementSource, movements[0].Source)

	msgs := f.publisher.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].OnHand.Equal(dec(20)))
	assert.False(t, f.locker.IsHeld(testKey))
}

func TestAdjust_ConcurrentMixedIncrements(t *testing.T) {
	f := newFixture(t)
	f.seed(5, 0)
	f.cfg.Lock.TimeoutMs = 2000

	var wg sync.WaitGroup
	for _, v := range []int64{2, -1} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.stock.Adjust(context.Background(), increment(v))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.account(t).OnHand.Equal(dec(6)))
	movements := f.store.MovementsFor(testKey)
	require.Len(t, movements, 2)
	assert.True(t, movements[0].Delta.Add(movements[1].Delta).Equal(dec(1)))
}

func TestAdjust_NoDoubleApply(t *testing.T) {
	f := newFixture(t)
	f.seed(0, 0)
	f.cfg.Lock.TimeoutMs = 5000

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.stock.Adjust(context.Background(), increment(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.account(t).OnHand.Equal(dec(n)))
	assert.Len(t, f.store.MovementsFor(testKey), n)

	rec, err := f.stock.Reconcile(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.True(t, rec.LedgerSum.Equal(dec(n)))
}

func TestAdjust_ClampsAtZeroAndRecordsActualDelta(t *testing.T) {
	f := newFixture(t)
	f.seed(3, 0)

	res, err := f.stock.Adjust(context.Background(), increment(-5))
	require.NoError(t, err)
	assert.True(t, res.NewOnHand.IsZero())
	assert.True(t, res.Delta.Equal(dec(-3)))
	assert.Equal(t, domain.MovementKindOut, res.Movement.Kind)

	req := increment(-2)
	req.AllowNegative = true
	res, err = f.stock.Adjust(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.NewOnHand.Equal(dec(-2)))
}

func TestAdjust_ClampedDecrementAtZeroIsOut(t *testing.T) {
	f := newFixture(t)
	f.seed(0, 0)

	res, err := f.stock.Adjust(context.Background(), increment(-2))
	require.NoError(t, err)
	assert.True(t, res.Delta.IsZero())
	assert.Equal(t, domain.MovementKindOut, res.Movement.Kind)

	movements := f.store.MovementsFor(testKey)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementKindOut, movements[0].Kind)
}

func TestAdjust_ZeroDeltaStillWritesOneEntry(t *testing.T) {
	f := newFixture(t)
	f.seed(4, 0)

	_, err := f.stock.Adjust(context.Background(), domain.AdjustRequest{Key: testKey, Mode: domain.AdjustModeSet, Value: dec(4)})
	require.NoError(t, err)

	movements := f.store.MovementsFor(testKey)
	require.Len(t, movements, 1)
	assert.True(t, movements[0].Delta.IsZero())
}

func TestAdjust_MissingAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.stock.Adjust(context.Background(), increment(1))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, ok := f.store.Account(testKey)
	assert.False(t, ok)

	req := increment(3)
	req.CreateIfMissing = true
	req.Meta.Kind = domain.MovementKindReturn
	res, err := f.stock.Adjust(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.OldOnHand.IsZero())
	assert.True(t, f.account(t).OnHand.Equal(dec(3)))
	assert.Equal(t, domain.MovementKindReturn, res.Movement.Kind)
}

func TestAdjust_InvalidInput(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)
	ctx := context.Background()

	_, err := f.stock.Adjust(ctx, domain.AdjustRequest{Key: testKey, Mode: domain.AdjustModeSet, Value: dec(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidDelta)

	_, err = f.stock.Adjust(ctx, domain.AdjustRequest{Key: testKey, Mode: domain.AdjustModeIncrement, Value: decimal.RequireFromString("0.00001")})
	assert.ErrorIs(t, err, domain.ErrInvalidDelta)

	_, err = f.stock.Adjust(ctx, domain.AdjustRequest{Key: testKey, Mode: "multiply", Value: dec(2)})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = f.stock.Adjust(ctx, domain.AdjustRequest{Key: testKey, Mode: domain.AdjustModeIncrement, Value: dec(1), Meta: domain.AdjustMeta{Kind: "gift"}})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	assert.Equal(t, 0, f.store.TxCalls)
}

func TestAdjust_LockTimeoutStrict(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)

	held := f.locker.Hold(testKey)
	defer held.Release(context.Background())

	_, err := f.stock.Adjust(context.Background(), increment(1))
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, 0, f.store.TxCalls)
	assert.True(t, f.account(t).OnHand.Equal(dec(1)))
	assert.True(t, f.locker.IsHeld(testKey))
}

func TestAdjust_LockTimeoutBestEffort(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)

	held := f.locker.Hold(testKey)
	req := increment(1)
	req.LockPolicy = domain.LockPolicyBestEffort

	res, err := f.stock.Adjust(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Locked)
	assert.True(t, f.account(t).OnHand.Equal(dec(2)))

	// the other holder's lock is untouched
	assert.True(t, f.locker.IsHeld(testKey))
	require.NoError(t, held.Release(context.Background()))
}

func TestAdjust_LockStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)
	f.locker.Unavailable = true

	_, err := f.stock.Adjust(context.Background(), increment(1))
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestAdjust_ConflictRetriedOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)
	f.store.ConflictsToInject = 1

	_, err := f.stock.Adjust(context.Background(), increment(1))
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.TxCalls)
	assert.True(t, f.account(t).OnHand.Equal(dec(2)))
	assert.Len(t, f.store.MovementsFor(testKey), 1)
}

func TestAdjust_ConflictSurfacedAfterRetry(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)
	f.store.ConflictsToInject = 2

	_, err := f.stock.Adjust(context.Background(), increment(1))
	assert.ErrorIs(t, err, domain.ErrTransactionConflict)
	assert.Equal(t, 2, f.store.TxCalls)
	assert.True(t, f.account(t).OnHand.Equal(dec(1)))
	assert.Empty(t, f.store.MovementsFor(testKey))
	assert.False(t, f.locker.IsHeld(testKey))
}

func TestAdjust_LedgerFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)
	boom := errors.New("ledger unavailable")
	f.store.AppendMovementErr = boom

	_, err := f.stock.Adjust(context.Background(), increment(5))
	assert.ErrorIs(t, err, boom)
	assert.True(t, f.account(t).OnHand.Equal(dec(1)))
	assert.Empty(t, f.publisher.Messages())
	assert.False(t, f.locker.IsHeld(testKey))
}

func TestAdjust_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.seed(1, 0)
	f.publisher.PublishErr = errors.New("broker down")

	res, err := f.stock.Adjust(context.Background(), increment(1))
	require.NoError(t, err)
	assert.True(t, res.NewOnHand.Equal(dec(2)))
}

func TestAdjust_OverReservedIsAccepted(t *testing.T) {
	f := newFixture(t)
	f.seed(10, 8)

	res, err := f.stock.Adjust(context.Background(), domain.AdjustRequest{Key: testKey, Mode: domain.AdjustModeSet, Value: dec(5)})
	require.NoError(t, err)
	assert.True(t, res.Account.Available.IsZero())
	assert.True(t, f.account(t).Reserved.Equal(dec(8)))
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.stock.GetAccount(context.Background(), testKey)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	f.seed(10, 4)
	acct, err := f.stock.GetAccount(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, acct.Available.Equal(dec(6)))
}

func TestListMovements_Paging(t *testing.T) {
	f := newFixture(t)
	f.seed(0, 0)
	for range 5 {
		_, err := f.stock.Adjust(context.Background(), increment(1))
		require.NoError(t, err)
	}

	movements, meta, err := f.stock.ListMovements(context.Background(), testKey, domain.GetListRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, movements, 2)
	assert.Equal(t, int64(5), meta.TotalData)
	assert.Equal(t, int64(3), meta.TotalPage)
	assert.Greater(t, movements[0].ID, movements[1].ID)

	movements, meta, err = f.stock.ListMovements(context.Background(), domain.AccountKey{TenantID: 9, ProductID: 9}, domain.GetListRequest{})
	require.NoError(t, err)
	assert.Empty(t, movements)
	assert.Equal(t, int64(defaultLimit), meta.Limit)
}

func TestReconcile_DetectsDrift(t *testing.T) {
	f := newFixture(t)
	// seeded balance predates the ledger
	f.seed(7, 0)
	_, err := f.stock.Adjust(context.Background(), increment(3))
	require.NoError(t, err)

	rec, err := f.stock.Reconcile(context.Background(), testKey)
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.True(t, rec.Drift.Equal(dec(7)))
}
