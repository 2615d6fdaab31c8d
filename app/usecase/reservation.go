package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"stock-service/app/domain"
	"stock-service/config"
	"stock-service/pkg/metrics"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

const commitMovementSource = "reservation"

type reservationUsecase struct {
	guard           *productGuard
	accountRepo     domain.StockAccountRepository
	reservationRepo domain.ReservationRepository
	cfg             *config.Config
}

func NewReservationUsecase(
	store domain.StockStore,
	locker domain.Locker,
	accountRepo domain.StockAccountRepository,
	reservationRepo domain.ReservationRepository,
	stockPublishBroker domain.BrokerPublisher,
	cfg *config.Config) domain.ReservationService {
	return &reservationUsecase{
		guard:           newProductGuard(store, locker, stockPublishBroker, cfg),
		accountRepo:     accountRepo,
		reservationRepo: reservationRepo,
		cfg:             cfg,
	}
}

func (u *reservationUsecase) Create(ctx context.Context, req domain.ReservationCreate) (domain.Reservation, error) {
	if req.Key.TenantID <= 0 || req.Key.ProductID <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: tenant and product are required", domain.ErrBadRequest)
	}
	if !req.Qty.IsPositive() || !req.Qty.Equal(req.Qty.Round(domain.QuantityScale)) {
		return domain.Reservation{}, fmt.Errorf("%w: reservation qty must be positive, got %s", domain.ErrInvalidDelta, req.Qty)
	}
	if req.Source == "" {
		req.Source = domain.ReservationSourceManual
	}

	id, err := uuid.NewV7()
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] Create", "uuid.NewV7", err)
		return domain.Reservation{}, err
	}

	var (
		reservation domain.Reservation
		account     domain.StockAccount
	)
	_, err = u.guard.run(ctx, req.Key, domain.LockPolicyStrict, func(ctx context.Context, tx domain.StockTx) error {
		acct, err := tx.GetAccountForUpdate(ctx, req.Key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrProductNotFound, req.Key)
			}
			slog.ErrorContext(ctx, "[reservationUsecase] Create", "getAccountForUpdate", err)
			return err
		}

		acct.Reserved = acct.Reserved.Add(req.Qty)
		if err := tx.UpdateAccount(ctx, &acct); err != nil {
			slog.ErrorContext(ctx, "[reservationUsecase] Create", "updateAccount", err)
			return err
		}

		r := domain.Reservation{
			ID:        id,
			TenantID:  req.Key.TenantID,
			ProductID: req.Key.ProductID,
			ClientID:  req.ClientID,
			Qty:       req.Qty,
			Status:    domain.ReservationStatusReserved,
			Source:    req.Source,
		}
		if err := tx.CreateReservation(ctx, &r); err != nil {
			slog.ErrorContext(ctx, "[reservationUsecase] Create", "createReservation", err)
			return err
		}

		reservation = r
		account = acct
		return nil
	})
	metrics.ReservationsTotal.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] Create", "transactionError", err, "key", req.Key.String())
		return domain.Reservation{}, err
	}

	u.guard.afterCommit(ctx, account)
	slog.InfoContext(ctx, "[reservationUsecase] Create", "id", reservation.ID.String(), "qty", reservation.Qty.String())
	return reservation, nil
}

func (u *reservationUsecase) Commit(ctx context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error) {
	return u.finish(ctx, tenantID, id, domain.ReservationStatusCommitted)
}

func (u *reservationUsecase) Release(ctx context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error) {
	return u.finish(ctx, tenantID, id, domain.ReservationStatusReleased)
}

// finish moves a reservation into a terminal state. The account row is locked before the
// reservation row, the same order Create uses.
func (u *reservationUsecase) finish(ctx context.Context, tenantID int64, id uuid.UUID, to domain.ReservationStatus) (domain.Reservation, error) {
	action := "commit"
	if to == domain.ReservationStatusReleased {
		action = "release"
	}

	current, err := u.reservationRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] finish", "getByID", err, "action", action)
		metrics.ReservationsTotal.WithLabelValues(action, metrics.Result(err)).Inc()
		return domain.Reservation{}, err
	}
	if current.Status.Terminal() {
		metrics.ReservationsTotal.WithLabelValues(action, "error").Inc()
		return domain.Reservation{}, fmt.Errorf("%w: %s is %s", domain.ErrAlreadyTerminal, id, current.Status)
	}

	var (
		reservation domain.Reservation
		account     domain.StockAccount
	)
	_, err = u.guard.run(ctx, current.Key(), domain.LockPolicyStrict, func(ctx context.Context, tx domain.StockTx) error {
		acct, err := tx.GetAccountForUpdate(ctx, current.Key())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrProductNotFound, current.Key())
			}
			slog.ErrorContext(ctx, "[reservationUsecase] finish", "getAccountForUpdate", err)
			return err
		}

		r, err := tx.GetReservationForUpdate(ctx, tenantID, id)
		if err != nil {
			slog.ErrorContext(ctx, "[reservationUsecase] finish", "getReservationForUpdate", err)
			return err
		}
		if err := r.Transition(to, time.Now().UTC()); err != nil {
			return fmt.Errorf("%w: %s is %s", err, id, r.Status)
		}

		acct.Reserved = acct.Reserved.Sub(r.Qty)
		var movement *domain.Movement
		if to == domain.ReservationStatusCommitted {
			oldOnHand := acct.OnHand
			acct.OnHand = decimal.Max(oldOnHand.Sub(r.Qty), decimal.Zero)
			movement = &domain.Movement{
				TenantID:  r.TenantID,
				ProductID: r.ProductID,
				Delta:     acct.OnHand.Sub(oldOnHand),
				Kind:      domain.MovementKindOut,
				Source:    commitMovementSource,
				Note:      reservationNote(r),
			}
		}

		if err := tx.UpdateAccount(ctx, &acct); err != nil {
			slog.ErrorContext(ctx, "[reservationUsecase] finish", "updateAccount", err)
			return err
		}
		if movement != nil {
			if err := tx.AppendMovement(ctx, movement); err != nil {
				slog.ErrorContext(ctx, "[reservationUsecase] finish", "appendMovement", err)
				return err
			}
		}
		if err := tx.UpdateReservationStatus(ctx, &r); err != nil {
			slog.ErrorContext(ctx, "[reservationUsecase] finish", "updateReservationStatus", err)
			return err
		}

		reservation = r
		account = acct
		return nil
	})
	metrics.ReservationsTotal.WithLabelValues(action, metrics.Result(err)).Inc()
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] finish", "transactionError", err, "action", action)
		return domain.Reservation{}, err
	}

	u.guard.afterCommit(ctx, account)
	slog.InfoContext(ctx, "[reservationUsecase] finish", "id", id.String(), "status", reservation.Status)
	return reservation, nil
}

func reservationNote(r domain.Reservation) *string {
	note := "reservation " + r.ID.String()
	return &note
}

func (u *reservationUsecase) Get(ctx context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error) {
	reservation, err := u.reservationRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] Get", "getByID", err)
		return domain.Reservation{}, err
	}
	return reservation, nil
}

func (u *reservationUsecase) ListByProduct(ctx context.Context, key domain.AccountKey, status domain.ReservationStatus) ([]domain.Reservation, error) {
	switch status {
	case "", domain.ReservationStatusReserved, domain.ReservationStatusCommitted, domain.ReservationStatusReleased:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrBadRequest, status)
	}

	reservations, err := u.reservationRepo.ListByProduct(ctx, key, status)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] ListByProduct", "listByProduct", err)
		return nil, err
	}
	if reservations == nil {
		reservations = []domain.Reservation{}
	}
	return reservations, nil
}

func (u *reservationUsecase) CheckConservation(ctx context.Context, key domain.AccountKey) (domain.ConservationResult, error) {
	account, err := u.accountRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ConservationResult{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, key)
		}
		slog.ErrorContext(ctx, "[reservationUsecase] CheckConservation", "getByKey", err)
		return domain.ConservationResult{}, err
	}

	sum, err := u.reservationRepo.SumActiveQty(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] CheckConservation", "sumActiveQty", err)
		return domain.ConservationResult{}, err
	}

	result := domain.ConservationResult{
		TenantID:   key.TenantID,
		ProductID:  key.ProductID,
		Reserved:   account.Reserved,
		ActiveSum:  sum,
		Consistent: account.Reserved.Equal(sum),
	}
	if !result.Consistent {
		slog.WarnContext(ctx, "[reservationUsecase] CheckConservation", "mismatch", key.String(),
			"reserved", account.Reserved.String(), "activeSum", sum.String())
	}
	return result, nil
}
