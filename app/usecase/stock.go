package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"stock-service/app/domain"
	"stock-service/config"
	"stock-service/pkg/metrics"

	"github.com/shopspring/decimal"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100

	defaultMovementSource = "system"
)

type stockUsecase struct {
	guard        *productGuard
	accountRepo  domain.StockAccountRepository
	movementRepo domain.MovementRepository
	cfg          *config.Config
}

func NewStockUsecase(
	store domain.StockStore,
	locker domain.Locker,
	accountRepo domain.StockAccountRepository,
	movementRepo domain.MovementRepository,
	stockPublishBroker domain.BrokerPublisher,
	cfg *config.Config) domain.StockService {
	return &stockUsecase{
		guard:        newProductGuard(store, locker, stockPublishBroker, cfg),
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		cfg:          cfg,
	}
}

func validateAdjust(req *domain.AdjustRequest) error {
	if req.Key.TenantID <= 0 || req.Key.ProductID <= 0 {
		return fmt.Errorf("%w: tenant and product are required", domain.ErrBadRequest)
	}
	if req.Mode != domain.AdjustModeSet && req.Mode != domain.AdjustModeIncrement {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrBadRequest, req.Mode)
	}
	if !req.Value.Equal(req.Value.Round(domain.QuantityScale)) {
		return fmt.Errorf("%w: more than %d fractional digits", domain.ErrInvalidDelta, domain.QuantityScale)
	}
	if req.Mode == domain.AdjustModeSet && req.Value.IsNegative() && !req.AllowNegative {
		return fmt.Errorf("%w: negative target %s", domain.ErrInvalidDelta, req.Value)
	}
	if req.Meta.Kind != "" && !req.Meta.Kind.Valid() {
		return fmt.Errorf("%w: unknown movement kind %q", domain.ErrBadRequest, req.Meta.Kind)
	}
	if req.LockPolicy == "" {
		req.LockPolicy = domain.LockPolicyStrict
	}
	if req.Meta.Source == "" {
		req.Meta.Source = defaultMovementSource
	}
	return nil
}

func nextOnHand(old decimal.Decimal, req domain.AdjustRequest) decimal.Decimal {
	next := req.Value
	if req.Mode == domain.AdjustModeIncrement {
		next = old.Add(req.Value)
	}
	if next.IsNegative() && !req.AllowNegative {
		return decimal.Zero
	}
	return next
}

// movementKind falls back to adjust for corrections and in/out by the requested sign for
// increments, so a clamped decrement is still recorded as out.
func movementKind(req domain.AdjustRequest) domain.MovementKind {
	switch {
	case req.Meta.Kind != "":
		return req.Meta.Kind
	case req.Mode == domain.AdjustModeSet:
		return domain.MovementKindAdjust
	case req.Value.IsNegative():
		return domain.MovementKindOut
	default:
		return domain.MovementKindIn
	}
}

func (u *stockUsecase) Adjust(ctx context.Context, req domain.AdjustRequest) (domain.AdjustResult, error) {
	if err := validateAdjust(&req); err != nil {
		slog.ErrorContext(ctx, "[stockUsecase] Adjust", "validate", err)
		metrics.AdjustmentsTotal.WithLabelValues(string(req.Mode), metrics.Result(err)).Inc()
		return domain.AdjustResult{}, err
	}

	var (
		result  domain.AdjustResult
		account domain.StockAccount
	)
	locked, err := u.guard.run(ctx, req.Key, req.LockPolicy, func(ctx context.Context, tx domain.StockTx) error {
		acct, err := tx.GetAccountForUpdate(ctx, req.Key)
		if errors.Is(err, domain.ErrNotFound) {
			if !req.CreateIfMissing {
				return fmt.Errorf("%w: %s", domain.ErrProductNotFound, req.Key)
			}
			acct, err = tx.CreateAccount(ctx, req.Key)
		}
		if err != nil {
			slog.ErrorContext(ctx, "[stockUsecase] Adjust", "getAccountForUpdate", err)
			return err
		}

		oldOnHand := acct.OnHand
		acct.OnHand = nextOnHand(oldOnHand, req)
		if err := tx.UpdateAccount(ctx, &acct); err != nil {
			slog.ErrorContext(ctx, "[stockUsecase] Adjust", "updateAccount", err)
			return err
		}

		delta := acct.OnHand.Sub(oldOnHand)
		movement := domain.Movement{
			TenantID:  req.Key.TenantID,
			ProductID: req.Key.ProductID,
			Delta:     delta,
			Kind:      movementKind(req),
			Source:    req.Meta.Source,
			ActorID:   req.Meta.ActorID,
			Note:      req.Meta.Note,
		}
		if err := tx.AppendMovement(ctx, &movement); err != nil {
			slog.ErrorContext(ctx, "[stockUsecase] Adjust", "appendMovement", err)
			return err
		}

		result = domain.AdjustResult{
			OldOnHand: oldOnHand,
			NewOnHand: acct.OnHand,
			Delta:     delta,
			Movement:  movement,
		}
		account = acct
		return nil
	})
	metrics.AdjustmentsTotal.WithLabelValues(string(req.Mode), metrics.Result(err)).Inc()
	if err != nil {
		slog.ErrorContext(ctx, "[stockUsecase] Adjust", "transactionError", err, "key", req.Key.String())
		return domain.AdjustResult{}, err
	}

	result.Locked = locked
	result.Account = domain.NewStockResponse(account)
	u.guard.afterCommit(ctx, account)

	slog.InfoContext(ctx, "[stockUsecase] Adjust", "key", req.Key.String(), "mode", req.Mode,
		"old", result.OldOnHand.String(), "new", result.NewOnHand.String(), "locked", locked)
	return result, nil
}

func (u *stockUsecase) GetAccount(ctx context.Context, key domain.AccountKey) (domain.StockResponse, error) {
	account, err := u.accountRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.StockResponse{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, key)
		}
		slog.ErrorContext(ctx, "[stockUsecase] GetAccount", "getByKey", err)
		return domain.StockResponse{}, err
	}

	return domain.NewStockResponse(account), nil
}

func normalizePaging(param domain.GetListRequest) domain.GetListRequest {
	if param.Page < 1 {
		param.Page = defaultPage
	}
	if param.Limit < 1 {
		param.Limit = defaultLimit
	}
	if param.Limit > maxLimit {
		param.Limit = maxLimit
	}
	return param
}

func (u *stockUsecase) ListMovements(ctx context.Context, key domain.AccountKey, param domain.GetListRequest) ([]domain.Movement, domain.Metadata, error) {
	var metadata domain.Metadata
	param = normalizePaging(param)

	movements, err := u.movementRepo.ListByProduct(ctx, key, param)
	if err != nil {
		slog.ErrorContext(ctx, "[stockUsecase] ListMovements", "listByProduct", err)
		return nil, metadata, err
	}

	count, err := u.movementRepo.CountByProduct(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "[stockUsecase] ListMovements", "countByProduct", err)
		return nil, metadata, err
	}

	if movements == nil {
		movements = []domain.Movement{}
	}

	metadata = domain.Metadata{
		TotalData: count,
		TotalPage: (count + param.Limit - 1) / param.Limit,
		Page:      param.Page,
		Limit:     param.Limit,
	}
	return movements, metadata, nil
}

func (u *stockUsecase) Reconcile(ctx context.Context, key domain.AccountKey) (domain.ReconcileResult, error) {
	account, err := u.accountRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ReconcileResult{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, key)
		}
		slog.ErrorContext(ctx, "[stockUsecase] Reconcile", "getByKey", err)
		return domain.ReconcileResult{}, err
	}

	sum, err := u.movementRepo.SumDelta(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "[stockUsecase] Reconcile", "sumDelta", err)
		return domain.ReconcileResult{}, err
	}

	drift := account.OnHand.Sub(sum)
	result := domain.ReconcileResult{
		TenantID:   key.TenantID,
		ProductID:  key.ProductID,
		OnHand:     account.OnHand,
		LedgerSum:  sum,
		Drift:      drift,
		Consistent: drift.IsZero(),
	}
	if !result.Consistent {
		slog.WarnContext(ctx, "[stockUsecase] Reconcile", "drift", drift.String(), "key", key.String())
	}
	return result, nil
}
