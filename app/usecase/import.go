package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"stock-service/app/domain"
	"stock-service/config"

	"golang.org/x/sync/errgroup"
)

const importMovementSource = "import"

type importUsecase struct {
	stockService domain.StockService
	cfg          *config.Config
}

func NewImportUsecase(stockService domain.StockService, cfg *config.Config) domain.ImportService {
	return &importUsecase{stockService, cfg}
}

// Import applies one adjustment per row. Each row takes and releases its own product lock,
// so a long import never blocks unrelated single-product writes for its whole duration.
func (u *importUsecase) Import(ctx context.Context, tenantID int64, actorID *int64, req domain.ImportRequest) (domain.ImportSummary, error) {
	if tenantID <= 0 {
		return domain.ImportSummary{}, fmt.Errorf("%w: tenant is required", domain.ErrBadRequest)
	}
	if req.Mode != domain.AdjustModeSet && req.Mode != domain.AdjustModeIncrement {
		return domain.ImportSummary{}, fmt.Errorf("%w: unknown mode %q", domain.ErrBadRequest, req.Mode)
	}

	policy := domain.LockPolicyStrict
	if req.AllowUnlocked {
		policy = domain.LockPolicyBestEffort
	}

	rows := make([]domain.ImportRowResult, len(req.Rows))
	var g errgroup.Group
	g.SetLimit(u.cfg.Import.Concurrency)

	for i, row := range req.Rows {
		g.Go(func() error {
			rows[i] = u.importRow(ctx, i, tenantID, actorID, req, policy, row)
			return nil
		})
	}
	_ = g.Wait()

	summary := domain.ImportSummary{Total: len(rows), Rows: rows}
	for _, r := range rows {
		if !r.Applied {
			summary.Failed++
			continue
		}
		summary.Applied++
		if !r.Locked {
			summary.Unlocked++
		}
	}

	slog.InfoContext(ctx, "[importUsecase] Import", "total", summary.Total, "applied", summary.Applied,
		"failed", summary.Failed, "unlocked", summary.Unlocked)
	return summary, nil
}

func (u *importUsecase) importRow(ctx context.Context, i int, tenantID int64, actorID *int64, req domain.ImportRequest, policy domain.LockPolicy, row domain.ImportRow) domain.ImportRowResult {
	result := domain.ImportRowResult{Row: i + 1, ProductID: row.ProductID}

	value, err := domain.ParseQuantity(row.Value)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	adjusted, err := u.stockService.Adjust(ctx, domain.AdjustRequest{
		Key:   domain.AccountKey{TenantID: tenantID, ProductID: row.ProductID},
		Mode:  req.Mode,
		Value: value,
		Meta: domain.AdjustMeta{
			Kind:    req.Kind,
			Source:  importMovementSource,
			ActorID: actorID,
		},
		LockPolicy:      policy,
		CreateIfMissing: true,
	})
	if err != nil {
		slog.WarnContext(ctx, "[importUsecase] importRow", "row", result.Row, "adjust", err)
		result.Error = err.Error()
		return result
	}

	result.Applied = true
	result.Locked = adjusted.Locked
	result.NewOnHand = &adjusted.NewOnHand
	return result
}
