package handler

import (
	"log/slog"
	"stock-service/app/domain"
	"stock-service/app/handler/api/response"
	"stock-service/pkg/ctxutil"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const panelMovementSource = "panel"

type StockHandler struct {
	stockUsecase domain.StockService
	validator    *validator.Validate
}

func NewStockHandler(stockUsecase domain.StockService, validator *validator.Validate) *StockHandler {
	return &StockHandler{
		stockUsecase: stockUsecase,
		validator:    validator,
	}
}

func (h *StockHandler) GetStock(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key, err := accountKey(c)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] GetStock", "accountKey", err)
		return errorResponse(c, err)
	}

	stock, err := h.stockUsecase.GetAccount(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] GetStock", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(stock))
}

// UpdateStock is the panel correction path: set or increment, creating the account on first use.
func (h *StockHandler) UpdateStock(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key, err := accountKey(c)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] UpdateStock", "accountKey", err)
		return errorResponse(c, err)
	}

	var req domain.UpdateStockRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(ctx, "[stockHandler] UpdateStock", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(ctx, "[stockHandler] UpdateStock", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrValidation))
	}

	value, err := domain.ParseQuantity(req.Value)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] UpdateStock", "parseQuantity", err)
		return errorResponse(c, err)
	}

	result, err := h.stockUsecase.Adjust(ctx, domain.AdjustRequest{
		Key:   key,
		Mode:  req.Mode,
		Value: value,
		Meta: domain.AdjustMeta{
			Kind:    req.Kind,
			Source:  panelMovementSource,
			ActorID: ctxutil.GetActorID(ctx),
			Note:    req.Note,
		},
		LockPolicy:      domain.LockPolicyStrict,
		CreateIfMissing: true,
	})
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] UpdateStock", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(result))
}

func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key, err := accountKey(c)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] ListMovements", "accountKey", err)
		return errorResponse(c, err)
	}

	param := domain.GetListRequest{}
	if err := c.QueryParser(&param); err != nil {
		slog.WarnContext(ctx, "[stockHandler] ListMovements", "queryParser", err)
	}

	movements, metadata, err := h.stockUsecase.ListMovements(ctx, key, param)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] ListMovements", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.SuccessWithMetadata(movements, metadata))
}

func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key, err := accountKey(c)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] Reconcile", "accountKey", err)
		return errorResponse(c, err)
	}

	result, err := h.stockUsecase.Reconcile(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "[stockHandler] Reconcile", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(result))
}
