package handler

import (
	"context"
	"fmt"
	"log/slog"
	"stock-service/app/domain"
	"stock-service/app/handler/api/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
)

type ReservationHandler struct {
	reservationUsecase domain.ReservationService
	validator          *validator.Validate
}

func NewReservationHandler(reservationUsecase domain.ReservationService, validator *validator.Validate) *ReservationHandler {
	return &ReservationHandler{
		reservationUsecase: reservationUsecase,
		validator:          validator,
	}
}

func parseReservationID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid reservation id", domain.ErrBadRequest)
	}
	return id, nil
}

func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req domain.ReservationCreateRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] Create", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] Create", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrValidation))
	}

	qty, err := domain.ParseQuantity(req.Qty)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] Create", "parseQuantity", err)
		return errorResponse(c, err)
	}

	reservation, err := h.reservationUsecase.Create(ctx, domain.ReservationCreate{
		Key:      domain.AccountKey{TenantID: req.TenantID, ProductID: req.ProductID},
		ClientID: req.ClientID,
		Qty:      qty,
		Source:   req.Source,
	})
	if err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] Create", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(response.Success(reservation))
}

func (h *ReservationHandler) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()
	tenantID, err := queryTenant(c)
	if err != nil {
		return errorResponse(c, err)
	}
	id, err := parseReservationID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	reservation, err := h.reservationUsecase.Get(ctx, tenantID, id)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] Get", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(reservation))
}

func (h *ReservationHandler) Commit(c *fiber.Ctx) error {
	return h.finish(c, h.reservationUsecase.Commit)
}

func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	return h.finish(c, h.reservationUsecase.Release)
}

type finishFunc func(ctx context.Context, tenantID int64, id uuid.UUID) (domain.Reservation, error)

func (h *ReservationHandler) finish(c *fiber.Ctx, fn finishFunc) error {
	ctx := c.UserContext()
	tenantID, err := queryTenant(c)
	if err != nil {
		return errorResponse(c, err)
	}
	id, err := parseReservationID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	reservation, err := fn(ctx, tenantID, id)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] finish", "usecase", err, "path", c.Path())
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(reservation))
}

func (h *ReservationHandler) ListByProduct(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key, err := internalAccountKey(c)
	if err != nil {
		return errorResponse(c, err)
	}

	reservations, err := h.reservationUsecase.ListByProduct(ctx, key, domain.ReservationStatus(c.Query("status")))
	if err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] ListByProduct", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(reservations))
}

func (h *ReservationHandler) CheckConservation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key, err := internalAccountKey(c)
	if err != nil {
		return errorResponse(c, err)
	}

	result, err := h.reservationUsecase.CheckConservation(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationHandler] CheckConservation", "usecase", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(result))
}

func internalAccountKey(c *fiber.Ctx) (domain.AccountKey, error) {
	tenantID, err := queryTenant(c)
	if err != nil {
		return domain.AccountKey{}, err
	}
	productID, err := parseID(c, "product_id")
	if err != nil {
		return domain.AccountKey{}, err
	}
	return domain.AccountKey{TenantID: tenantID, ProductID: productID}, nil
}
