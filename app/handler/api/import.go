package handler

import (
	"log/slog"
	"stock-service/app/domain"
	"stock-service/app/handler/api/response"
	"stock-service/pkg/ctxutil"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ImportHandler struct {
	importUsecase domain.ImportService
	validator     *validator.Validate
}

func NewImportHandler(importUsecase domain.ImportService, validator *validator.Validate) *ImportHandler {
	return &ImportHandler{
		importUsecase: importUsecase,
		validator:     validator,
	}
}

func (h *ImportHandler) Import(c *fiber.Ctx) error {
	ctx := c.UserContext()
	tenantID, err := ctxutil.GetTenantID(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "[importHandler] Import", "getTenantID", err)
		return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
	}

	var req domain.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(ctx, "[importHandler] Import", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(ctx, "[importHandler] Import", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrValidation))
	}

	summary, err := h.importUsecase.Import(ctx, tenantID, ctxutil.GetActorID(ctx), req)
	if err != nil {
		slog.ErrorContext(ctx, "[importHandler] Import", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(summary))
}
