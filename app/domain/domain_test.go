package domain

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockAccount_Available(t *testing.T) {
	acct := StockAccount{OnHand: decimal.NewFromInt(10), Reserved: decimal.NewFromInt(3)}
	assert.True(t, acct.Available().Equal(decimal.NewFromInt(7)))
	assert.False(t, acct.OverReserved())

	acct.Reserved = decimal.NewFromInt(12)
	assert.True(t, acct.Available().IsZero())
	assert.True(t, acct.OverReserved())
}

func TestNewQuantity_RejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NewQuantity(v)
		assert.ErrorIs(t, err, ErrInvalidDelta)
	}

	q, err := NewQuantity(2.5)
	require.NoError(t, err)
	assert.Equal(t, "2.5", q.String())
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("-1.25")
	require.NoError(t, err)
	assert.True(t, q.Equal(decimal.RequireFromString("-1.25")))

	_, err = ParseQuantity("abc")
	assert.ErrorIs(t, err, ErrInvalidDelta)

	_, err = ParseQuantity("1.00001")
	assert.ErrorIs(t, err, ErrInvalidDelta)
}

func TestReservation_Transition(t *testing.T) {
	now := time.Now()

	r := Reservation{Status: ReservationStatusReserved}
	require.NoError(t, r.Transition(ReservationStatusCommitted, now))
	assert.Equal(t, ReservationStatusCommitted, r.Status)
	require.NotNil(t, r.CommittedAt)
	assert.Nil(t, r.ReleasedAt)

	err := r.Transition(ReservationStatusReleased, now)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, ReservationStatusCommitted, r.Status)

	r = Reservation{Status: ReservationStatusReserved}
	assert.ErrorIs(t, r.Transition(ReservationStatusReserved, now), ErrInvalidStateTransition)
	assert.Equal(t, ReservationStatusReserved, r.Status)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrLockTimeout))
	assert.True(t, IsRetryable(ErrTransactionConflict))
	assert.False(t, IsRetryable(ErrInvalidDelta))
	assert.False(t, IsRetryable(ErrAlreadyTerminal))
}
