package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/application/auth"
	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/application/ledger"
	"github.com/tu-usuario/pedidos-pro/internal/application/orders"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/internal/infrastructure/memstore"
	"github.com/tu-usuario/pedidos-pro/internal/infrastructure/postgres"
	"github.com/tu-usuario/pedidos-pro/internal/infrastructure/storage"
	httpRouter "github.com/tu-usuario/pedidos-pro/internal/interfaces/http"
	"github.com/tu-usuario/pedidos-pro/pkg/config"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
	"github.com/tu-usuario/pedidos-pro/pkg/occ"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var st store.Store
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		pgStore, err := postgres.NewStore(ctx, pool, log)
		if err != nil {
			log.Fatal().Err(err).Msg("inicializar store PostgreSQL")
		}
		st = pgStore
	case "memory":
		st = memstore.New()
	default:
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("driver de store desconocido")
	}

	retry := occ.Config{
		MaxRetries:      uint64(cfg.Engine.MaxRetries),
		InitialInterval: time.Duration(cfg.Engine.RetryInitialMs) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.Engine.RetryMaxMs) * time.Millisecond,
	}
	deliveryCost, err := decimal.NewFromString(cfg.Engine.DeliveryCost)
	if err != nil {
		log.Fatal().Err(err).Str("valor", cfg.Engine.DeliveryCost).Msg("ENGINE_DELIVERY_COST inválido")
	}

	productRepo := storage.NewProductRepository(st)
	orderRepo := storage.NewOrderRepository(st)
	txnRepo := storage.NewTransactionRepository(st)
	counterRepo := storage.NewCounterRepository(st, retry)
	userRepo := storage.NewUserRepository(st)

	catalogUC := catalog.NewService(productRepo, log, retry)
	ledgerUC := ledger.NewService(txnRepo, counterRepo, catalogUC, log, retry)
	ordersUC := orders.NewService(orderRepo, counterRepo, catalogUC, ledgerUC, log, retry, deliveryCost)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CatalogUC: catalogUC,
		OrdersUC:  ordersUC,
		LedgerUC:  ledgerUC,
		AuthUC:    authUC,
		Store:     st,
		Logger:    log,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
