package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"stock-service/app/domain"
	handler "stock-service/app/handler/api"
	"stock-service/app/middleware"
	"stock-service/app/repository/broker"
	"stock-service/app/repository/db"
	"stock-service/app/repository/lock"
	"stock-service/app/usecase"
	"stock-service/config"
	"stock-service/pkg/logger"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogfiber "github.com/samber/slog-fiber"
)

func main() {
	// init logger
	logger.InitLogger()

	ctx := context.Background()
	// init config
	cfg, err := config.InitConfig(ctx)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		return
	}

	// init database
	dbConn, err := db.NewPostgres(cfg.Db)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		return
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		slog.Error("DB migration failed", "error", err)
		return
	}

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		slog.Error("lock provider init failed", "driver", cfg.Lock.Driver, "error", err)
		return
	}
	defer closeLocker()

	stockBroker, closeBroker, err := newPublisher(ctx, cfg)
	if err != nil {
		slog.Error("broker init failed", "driver", cfg.Broker.Driver, "error", err)
		return
	}
	defer closeBroker()

	reqValidator := validator.New()
	stockStore := db.NewStockStore(dbConn)
	accountRepo := db.NewStockAccountRepository(dbConn)
	movementRepo := db.NewMovementRepository(dbConn)
	reservationRepo := db.NewReservationRepository(dbConn)

	stockUsecase := usecase.NewStockUsecase(stockStore, locker, accountRepo, movementRepo, stockBroker, cfg)
	reservationUsecase := usecase.NewReservationUsecase(stockStore, locker, accountRepo, reservationRepo, stockBroker, cfg)
	importUsecase := usecase.NewImportUsecase(stockUsecase, cfg)

	stockHandler := handler.NewStockHandler(stockUsecase, reqValidator)
	reservationHandler := handler.NewReservationHandler(reservationUsecase, reqValidator)
	importHandler := handler.NewImportHandler(importUsecase, reqValidator)

	// Initialize HTTP web framework
	app := fiber.New()
	app.Use(healthcheck.New(healthcheck.Config{
		LivenessProbe: func(c *fiber.Ctx) bool {
			return true
		},
		LivenessEndpoint: "/live",
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return dbConn.PingContext(c.UserContext()) == nil
		},
		ReadinessEndpoint: "/ready",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(slogfiber.New(logger.New(os.Stdout, slog.LevelInfo)))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handler.SetupRouter(app, stockHandler, reservationHandler, importHandler, cfg)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Failed to listen", "port", cfg.Port, "error", err)
			return
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Gracefully shutdown")
	err = app.Shutdown()
	if err != nil {
		slog.Warn("Unfortunately the shutdown wasn't smooth", "err", err)
	}
}

func newLocker(cfg *config.Config) (domain.Locker, func(), error) {
	switch cfg.Lock.Driver {
	case "postgres":
		lockPool, err := db.NewLockPool(cfg.Db, cfg.Lock.PgPoolSize)
		if err != nil {
			return nil, nil, err
		}
		return lock.NewPostgresLocker(lockPool, cfg.Lock.RetryInterval()), func() { lockPool.Close() }, nil
	default:
		client, err := lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return lock.NewRedisLocker(client, cfg.Lock.TTL(), cfg.Lock.RetryInterval()), func() { client.Close() }, nil
	}
}

func newPublisher(ctx context.Context, cfg *config.Config) (domain.BrokerPublisher, func(), error) {
	switch cfg.Broker.Driver {
	case "none":
		return broker.NewNoopPublisher(), func() {}, nil
	case "kafka":
		p := broker.NewKafkaPublisher(cfg.Broker.KafkaBrokerList(), cfg.Broker.KafkaTopic)
		return p, func() { p.Close() }, nil
	case "amqp":
		p, err := broker.NewAmqpPublisher(cfg.Broker.AmqpUrl, cfg.Broker.AmqpExchange)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	default:
		// Connect to NATS server
		nc, err := nats.Connect(cfg.Broker.NatsUrl)
		if err != nil {
			return nil, nil, err
		}

		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		if err := broker.EnsureStream(ctx, js, cfg.Broker.NatsStreamName); err != nil {
			nc.Close()
			return nil, nil, err
		}
		return broker.NewStockBrokerPublisher(js), func() { nc.Drain() }, nil
	}
}
