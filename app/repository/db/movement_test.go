package db

import (
	"context"
	"regexp"
	"stock-service/app/domain"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovementRepository_ListByProduct(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM stock_movements WHERE tenant_id = $1 AND product_id = $2")).
		WithArgs(testKey.TenantID, testKey.ProductID, int64(10), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "product_id", "delta", "kind", "source", "actor_id", "note", "created_at"}).
			AddRow(int64(2), int64(7), int64(42), "-1.5000", "out", "reservation", nil, nil, now).
			AddRow(int64(1), int64(7), int64(42), "5.0000", "in", "panel", int64(3), "restock", now))

	movements, err := NewMovementRepository(conn).ListByProduct(context.Background(), testKey, domain.GetListRequest{Page: 2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.True(t, movements[0].Delta.Equal(decimal.RequireFromString("-1.5")))
	assert.Nil(t, movements[0].ActorID)
	require.NotNil(t, movements[1].ActorID)
	assert.Equal(t, int64(3), *movements[1].ActorID)
	require.NotNil(t, movements[1].Note)
	assert.Equal(t, "restock", *movements[1].Note)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepository_SumAndCount(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(delta), 0) FROM stock_movements")).
		WithArgs(testKey.TenantID, testKey.ProductID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("12.2500"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM stock_movements")).
		WithArgs(testKey.TenantID, testKey.ProductID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	repo := NewMovementRepository(conn)
	sum, err := repo.SumDelta(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("12.25")))

	count, err := repo.CountByProduct(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_ListByProductWithStatus(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	id := uuid.Must(uuid.NewV7())
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("AND status = $3")).
		WithArgs(testKey.TenantID, testKey.ProductID, domain.ReservationStatusReserved).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "product_id", "client_id", "qty", "status", "source", "created_at", "committed_at", "released_at"}).
			AddRow(id.String(), int64(7), int64(42), int64(11), "2.0000", "reserved", "live", now, nil, nil))

	reservations, err := NewReservationRepository(conn).ListByProduct(context.Background(), testKey, domain.ReservationStatusReserved)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, id, reservations[0].ID)
	assert.Equal(t, domain.ReservationStatusReserved, reservations[0].Status)
	require.NotNil(t, reservations[0].ClientID)
	assert.Nil(t, reservations[0].CommittedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_GetByID_NotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE tenant_id = $1 AND id = $2")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewReservationRepository(conn).GetByID(context.Background(), 7, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_SumActiveQty(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("status = 'reserved'")).
		WithArgs(testKey.TenantID, testKey.ProductID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("3.5000"))

	sum, err := NewReservationRepository(conn).SumActiveQty(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("3.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
