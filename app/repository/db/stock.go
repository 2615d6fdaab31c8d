package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"stock-service/app/domain"

	"github.com/gofrs/uuid/v5"
)

type stockStore struct {
	conn *sql.DB
}

func NewStockStore(db *sql.DB) domain.StockStore {
	return &stockStore{db}
}

func (r *stockStore) WithTransaction(ctx context.Context, fn func(context.Context, domain.StockTx) error) error {
	tx, err := r.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		slog.ErrorContext(ctx, "[stockStore] WithTransaction", "beginTx", err)
		return mapError(err)
	}

	if err := fn(ctx, &stockTx{tx}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			slog.ErrorContext(ctx, "[stockStore] WithTransaction", "rollback", rollbackErr)
		}
		return mapError(err)
	}

	if err := tx.Commit(); err != nil {
		slog.ErrorContext(ctx, "[stockStore] WithTransaction", "commit", err)
		return mapError(err)
	}

	return nil
}

type stockTx struct {
	tx *sql.Tx
}

const accountColumns = `tenant_id, product_id, on_hand, reserved, created_at, updated_at`

func scanAccount(row *sql.Row, account *domain.StockAccount) error {
	return row.Scan(&account.TenantID, &account.ProductID, &account.OnHand, &account.Reserved,
		&account.CreatedAt, &account.UpdatedAt)
}

func (t *stockTx) GetAccountForUpdate(ctx context.Context, key domain.AccountKey) (domain.StockAccount, error) {
	query := `SELECT ` + accountColumns + `
	FROM stock_accounts WHERE tenant_id = $1 AND product_id = $2 FOR UPDATE`

	var account domain.StockAccount
	err := scanAccount(t.tx.QueryRowContext(ctx, query, key.TenantID, key.ProductID), &account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[stockTx] GetAccountForUpdate", "queryRowContext", err)
		return account, mapError(err)
	}

	return account, nil
}

func (t *stockTx) CreateAccount(ctx context.Context, key domain.AccountKey) (domain.StockAccount, error) {
	query := `INSERT INTO stock_accounts (tenant_id, product_id) VALUES ($1, $2)
	ON CONFLICT (tenant_id, product_id) DO NOTHING`

	if _, err := t.tx.ExecContext(ctx, query, key.TenantID, key.ProductID); err != nil {
		slog.ErrorContext(ctx, "[stockTx] CreateAccount", "execContext", err)
		return domain.StockAccount{}, mapError(err)
	}

	return t.GetAccountForUpdate(ctx, key)
}

func (t *stockTx) UpdateAccount(ctx context.Context, account *domain.StockAccount) error {
	query := `UPDATE stock_accounts SET on_hand = $1, reserved = $2, updated_at = now()
	WHERE tenant_id = $3 AND product_id = $4
	RETURNING updated_at`

	err := t.tx.QueryRowContext(ctx, query, account.OnHand, account.Reserved, account.TenantID, account.ProductID).
		Scan(&account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[stockTx] UpdateAccount", "queryRowContext", err)
		return mapError(err)
	}

	return nil
}

func (t *stockTx) AppendMovement(ctx context.Context, m *domain.Movement) error {
	query := `INSERT INTO stock_movements (tenant_id, product_id, delta, kind, source, actor_id, note)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at`

	err := t.tx.QueryRowContext(ctx, query, m.TenantID, m.ProductID, m.Delta, m.Kind, m.Source, m.ActorID, m.Note).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		slog.ErrorContext(ctx, "[stockTx] AppendMovement", "queryRowContext", err)
		return mapError(err)
	}

	return nil
}

func (t *stockTx) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	query := `INSERT INTO reservations (id, tenant_id, product_id, client_id, qty, status, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at`

	err := t.tx.QueryRowContext(ctx, query, r.ID, r.TenantID, r.ProductID, r.ClientID, r.Qty, r.Status, r.Source).
		Scan(&r.CreatedAt)
	if err != nil {
		slog.ErrorContext(ctx, "[stockTx] CreateReservation", "queryRowContext", err)
		return mapError(err)
	}

	return nil
}

func (t *stockTx) GetReservationForUpdate(ctx context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM reservations WHERE tenant_id = $1 AND id = $2 FOR UPDATE`

	var r domain.Reservation
	err := scanReservation(t.tx.QueryRowContext(ctx, query, tenantID, id), &r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[stockTx] GetReservationForUpdate", "queryRowContext", err)
		return r, mapError(err)
	}

	return r, nil
}

// UpdateReservationStatus only moves rows still in the reserved state.
func (t *stockTx) UpdateReservationStatus(ctx context.Context, r *domain.Reservation) error {
	query := `UPDATE reservations SET status = $1, committed_at = $2, released_at = $3
	WHERE tenant_id = $4 AND id = $5 AND status = 'reserved'`

	res, err := t.tx.ExecContext(ctx, query, r.Status, r.CommittedAt, r.ReleasedAt, r.TenantID, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "[stockTx] UpdateReservationStatus", "execContext", err)
		return mapError(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[stockTx] UpdateReservationStatus", "rowsAffected", err)
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrAlreadyTerminal
	}

	return nil
}

type stockAccountRepository struct {
	conn *sql.DB
}

func NewStockAccountRepository(db *sql.DB) domain.StockAccountRepository {
	return &stockAccountRepository{db}
}

func (r *stockAccountRepository) GetByKey(ctx context.Context, key domain.AccountKey) (domain.StockAccount, error) {
	query := `SELECT ` + accountColumns + `
	FROM stock_accounts WHERE tenant_id = $1 AND product_id = $2`

	var account domain.StockAccount
	err := scanAccount(r.conn.QueryRowContext(ctx, query, key.TenantID, key.ProductID), &account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[stockAccountRepository] GetByKey", "queryRowContext", err)
		return account, err
	}

	return account, nil
}
