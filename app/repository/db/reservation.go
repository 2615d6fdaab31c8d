package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"stock-service/app/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

const reservationColumns = `id, tenant_id, product_id, client_id, qty, status, source, created_at, committed_at, released_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner, r *domain.Reservation) error {
	return row.Scan(&r.ID, &r.TenantID, &r.ProductID, &r.ClientID, &r.Qty, &r.Status, &r.Source,
		&r.CreatedAt, &r.CommittedAt, &r.ReleasedAt)
}

type reservationRepository struct {
	conn *sql.DB
}

func NewReservationRepository(db *sql.DB) domain.ReservationRepository {
	return &reservationRepository{db}
}

func (r *reservationRepository) GetByID(ctx context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE tenant_id = $1 AND id = $2`

	var reservation domain.Reservation
	err := scanReservation(r.conn.QueryRowContext(ctx, query, tenantID, id), &reservation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reservation, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[reservationRepository] GetByID", "queryRowContext", err)
		return reservation, err
	}

	return reservation, nil
}

func (r *reservationRepository) ListByProduct(ctx context.Context, key domain.AccountKey, status domain.ReservationStatus) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE tenant_id = $1 AND product_id = $2 `
	args := []any{key.TenantID, key.ProductID}

	if status != "" {
		query += `AND status = $3 `
		args = append(args, status)
	}
	query += `ORDER BY created_at DESC`

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] ListByProduct", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var reservation domain.Reservation
		if err := scanReservation(rows, &reservation); err != nil {
			slog.ErrorContext(ctx, "[reservationRepository] ListByProduct", "scan", err)
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] ListByProduct", "rowError", err)
		return nil, err
	}

	return reservations, nil
}

func (r *reservationRepository) SumActiveQty(ctx context.Context, key domain.AccountKey) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(qty), 0) FROM reservations
	WHERE tenant_id = $1 AND product_id = $2 AND status = 'reserved'`

	var total decimal.Decimal
	if err := r.conn.QueryRowContext(ctx, query, key.TenantID, key.ProductID).Scan(&total); err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] SumActiveQty", "queryRowContext", err)
		return decimal.Zero, err
	}

	return total, nil
}
