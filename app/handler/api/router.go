package handler

import (
	"stock-service/app/middleware"
	"stock-service/config"

	"github.com/gofiber/fiber/v2"
)

func SetupRouter(app *fiber.App, stockHandler *StockHandler, reservationHandler *ReservationHandler, importHandler *ImportHandler, cfg *config.Config) {

	api := app.Group("/stock-service").Use(middleware.Auth(cfg.Jwt.SecretKey))

	api.Get("/products/:product_id/stock", stockHandler.GetStock)
	api.Put("/products/:product_id/stock", stockHandler.UpdateStock)
	api.Get("/products/:product_id/movements", stockHandler.ListMovements)
	api.Get("/products/:product_id/reconcile", stockHandler.Reconcile)
	api.Post("/imports", importHandler.Import)

	internal := app.Group("/internal/stock-service").Use(middleware.AuthInternal(cfg))
	internal.Post("/reservations", reservationHandler.Create)
	internal.Get("/reservations/:id", reservationHandler.Get)
	internal.Post("/reservations/:id/commit", reservationHandler.Commit)
	internal.Post("/reservations/:id/release", reservationHandler.Release)
	internal.Get("/products/:product_id/reservations", reservationHandler.ListByProduct)
	internal.Get("/products/:product_id/conservation", reservationHandler.CheckConservation)
}
