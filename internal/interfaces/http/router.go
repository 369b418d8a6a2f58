package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pedidos-pro/internal/application/auth"
	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/application/ledger"
	"github.com/tu-usuario/pedidos-pro/internal/application/orders"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CatalogUC *catalog.Service
	OrdersUC  *orders.Service
	LedgerUC  *ledger.Service
	AuthUC    *auth.AuthUseCase
	Store     store.Store
	Logger    *logger.Logger
	JWTSecret string
}

// Router registra las rutas de la API. El checkout y el catálogo de lectura son
// públicos; el panel completo queda detrás del Bearer Token con rol admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Catálogo público (solo lectura, sin costos)
	productHandler := NewProductHandler(deps.CatalogUC)
	catalogGroup := api.Group("/catalog")
	catalogGroup.Get("/", productHandler.PublicList)
	catalogGroup.Get("/:id", productHandler.PublicGetByID)

	// Checkout (público)
	orderHandler := NewOrderHandler(deps.OrdersUC)
	api.Post("/checkout", orderHandler.Checkout)
	api.Get("/orders/:id", orderHandler.GetByID)

	// Panel administrativo (requiere Bearer Token con rol admin)
	admin := api.Group("/admin", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin))

	products := admin.Group("/products")
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)

	ordersGroup := admin.Group("/orders")
	ordersGroup.Get("/", orderHandler.List)
	ordersGroup.Get("/:id", orderHandler.GetByID)
	ordersGroup.Put("/:id/status", orderHandler.UpdateStatus)
	ordersGroup.Post("/:id/cancel", orderHandler.Cancel)
	ordersGroup.Post("/:id/delivery", orderHandler.AssignDelivery)
	ordersGroup.Delete("/:id/delivery", orderHandler.UnassignDelivery)

	ledgerHandler := NewLedgerHandler(deps.LedgerUC)
	ledgerGroup := admin.Group("/ledger")
	ledgerGroup.Post("/expenses", ledgerHandler.RecordExpense)
	ledgerGroup.Post("/incomes", ledgerHandler.RecordIncome)
	ledgerGroup.Get("/transactions", ledgerHandler.List)
	ledgerGroup.Get("/transactions/:id", ledgerHandler.GetByID)
	ledgerGroup.Post("/transactions/:id/void", ledgerHandler.Void)
	ledgerGroup.Get("/summary", ledgerHandler.Summary)

	eventsHandler := NewEventsHandler(deps.Store, deps.Logger)
	admin.Get("/events", eventsHandler.Stream)
}
