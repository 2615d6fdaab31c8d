package db

import (
	"context"
	"database/sql"
	"log/slog"
	"stock-service/app/domain"

	"github.com/shopspring/decimal"
)

// movementRepository reads the ledger. There is deliberately no update or delete path;
// appends go through stockTx.AppendMovement inside an adjustment transaction.
type movementRepository struct {
	conn *sql.DB
}

func NewMovementRepository(db *sql.DB) domain.MovementRepository {
	return &movementRepository{db}
}

func (r *movementRepository) ListByProduct(ctx context.Context, key domain.AccountKey, param domain.GetListRequest) ([]domain.Movement, error) {
	query := `SELECT id, tenant_id, product_id, delta, kind, source, actor_id, note, created_at
	FROM stock_movements WHERE tenant_id = $1 AND product_id = $2
	ORDER BY id DESC LIMIT $3 OFFSET $4`

	offset := (param.Page - 1) * param.Limit
	rows, err := r.conn.QueryContext(ctx, query, key.TenantID, key.ProductID, param.Limit, offset)
	if err != nil {
		slog.ErrorContext(ctx, "[movementRepository] ListByProduct", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ProductID, &m.Delta, &m.Kind, &m.Source,
			&m.ActorID, &m.Note, &m.CreatedAt); err != nil {
			slog.ErrorContext(ctx, "[movementRepository] ListByProduct", "scan", err)
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[movementRepository] ListByProduct", "rowError", err)
		return nil, err
	}

	return movements, nil
}

func (r *movementRepository) CountByProduct(ctx context.Context, key domain.AccountKey) (int64, error) {
	query := `SELECT COUNT(*) FROM stock_movements WHERE tenant_id = $1 AND product_id = $2`

	var count int64
	if err := r.conn.QueryRowContext(ctx, query, key.TenantID, key.ProductID).Scan(&count); err != nil {
		slog.ErrorContext(ctx, "[movementRepository] CountByProduct", "queryRowContext", err)
		return 0, err
	}
	return count, nil
}

func (r *movementRepository) SumDelta(ctx context.Context, key domain.AccountKey) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(delta), 0) FROM stock_movements WHERE tenant_id = $1 AND product_id = $2`

	var total decimal.Decimal
	if err := r.conn.QueryRowContext(ctx, query, key.TenantID, key.ProductID).Scan(&total); err != nil {
		slog.ErrorContext(ctx, "[movementRepository] SumDelta", "queryRowContext", err)
		return decimal.Zero, err
	}
	return total, nil
}
