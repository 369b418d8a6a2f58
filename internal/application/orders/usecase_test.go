package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	appledger "github.com/tu-usuario/pedidos-pro/internal/application/ledger"
	"github.com/tu-usuario/pedidos-pro/internal/application/orders"
	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/order"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/infrastructure/memstore"
	"github.com/tu-usuario/pedidos-pro/internal/infrastructure/storage"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
	"github.com/tu-usuario/pedidos-pro/pkg/occ"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test: la pila completa sobre el store en memoria
// ──────────────────────────────────────────────────────────────────────────────

type env struct {
	catalog *catalog.Service
	ledger  *appledger.Service
	orders  *orders.Service
	txns    *storage.TransactionRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	retry := occ.Config{MaxRetries: 200, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
	log := logger.Nop()

	productRepo := storage.NewProductRepository(st)
	orderRepo := storage.NewOrderRepository(st)
	txnRepo := storage.NewTransactionRepository(st)
	counterRepo := storage.NewCounterRepository(st, retry)

	catalogUC := catalog.NewService(productRepo, log, retry)
	ledgerUC := appledger.NewService(txnRepo, counterRepo, catalogUC, log, retry)
	ordersUC := orders.NewService(orderRepo, counterRepo, catalogUC, ledgerUC, log, retry,
		decimal.RequireFromString("2.00"))

	return &env{catalog: catalogUC, ledger: ledgerUC, orders: ordersUC, txns: txnRepo}
}

func (e *env) createProduct(t *testing.T, name string, stock int, price string) string {
	t.Helper()
	p, err := e.catalog.Create(context.Background(), dto.CreateProductRequest{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Cost:  decimal.RequireFromString("1.00"),
		Stock: stock,
	})
	require.NoError(t, err)
	return p.ID
}

func (e *env) checkout(t *testing.T, productID string, qty int) *dto.OrderCreatedResponse {
	t.Helper()
	out, err := e.orders.CreateOrder(context.Background(), dto.CreateOrderRequest{
		Items:         []dto.CartItem{{ProductID: productID, Quantity: qty}},
		Customer:      entity.Customer{Name: "Laura", Phone: "300123", Address: "Calle 1"},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	return out
}

// advance lleva la orden por el camino feliz hasta el estado pedido.
func (e *env) advance(t *testing.T, orderID string, upTo order.Status) {
	t.Helper()
	ctx := context.Background()
	camino := []order.Status{order.StatusPreparing, order.StatusReady, order.StatusAssigned, order.StatusOnWay, order.StatusDelivered}
	for _, st := range camino {
		if st == order.StatusAssigned {
			_, err := e.orders.AssignDelivery(ctx, orderID, "D1", "Pedro", "P-01")
			require.NoError(t, err)
		}
		_, err := e.orders.UpdateStatus(ctx, orderID, st, "")
		require.NoError(t, err)
		if st == upTo {
			return
		}
	}
	t.Fatalf("estado %s no alcanzable por el camino feliz", upTo)
}

func (e *env) salesFor(t *testing.T, orderID string) []*entity.Transaction {
	t.Helper()
	all, err := e.txns.List(context.Background())
	require.NoError(t, err)
	var out []*entity.Transaction
	for _, txn := range all {
		if txn.OrderID == orderID {
			out = append(out, txn)
		}
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateOrder_ReservaStockYArrancaEnPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")

	out := e.checkout(t, pid, 3)
	assert.Regexp(t, `^ORDER_\d{8}_\d{3}$`, out.OrderID)
	assert.Equal(t, "001", out.OrderNumber)
	assert.Equal(t, "pending", out.Status)
	assert.True(t, out.Subtotal.Equal(decimal.RequireFromString("15.00")))
	assert.True(t, out.Total.Equal(decimal.RequireFromString("17.00")), "subtotal + envío por defecto")

	p, err := e.catalog.Get(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock, "el checkout descuenta el stock al crear")

	o, err := e.orders.Get(ctx, out.OrderID)
	require.NoError(t, err)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, order.StatusPending, o.StatusHistory[0].Status)
}

func TestCreateOrder_PrecioConDescuentoCongeladoEnLaLinea(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "10.00")
	discount := decimal.RequireFromString("20")
	_, err := e.catalog.Update(ctx, pid, dto.UpdateProductRequest{Discount: &discount})
	require.NoError(t, err)

	out := e.checkout(t, pid, 1)
	o, err := e.orders.Get(ctx, out.OrderID)
	require.NoError(t, err)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("8.00")),
		"la línea congela el precio de venta con descuento")

	// Subir el precio después no toca la orden ya creada.
	newPrice := decimal.RequireFromString("99.00")
	_, err = e.catalog.Update(ctx, pid, dto.UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)
	o2, err := e.orders.Get(ctx, out.OrderID)
	require.NoError(t, err)
	assert.True(t, o2.Items[0].UnitPrice.Equal(decimal.RequireFromString("8.00")))
}

func TestCreateOrder_StockInsuficienteNoCreaNada(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 2, "5.00")

	_, err := e.orders.CreateOrder(ctx, dto.CreateOrderRequest{
		Items:         []dto.CartItem{{ProductID: pid, Quantity: 5}},
		Customer:      entity.Customer{Name: "Laura"},
		PaymentMethod: "cash",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	all, lerr := e.orders.List(ctx, "")
	require.NoError(t, lerr)
	assert.Empty(t, all, "una reserva fallida no deja orden persistida")

	p, perr := e.catalog.Get(ctx, pid)
	require.NoError(t, perr)
	assert.Equal(t, 2, p.Stock)
}

func TestCreateOrder_AgotarStockDejaNoDisponible(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 5, "5.00")

	e.checkout(t, pid, 5)

	p, err := e.catalog.Get(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
	assert.False(t, p.Disponible)

	_, err = e.orders.CreateOrder(ctx, dto.CreateOrderRequest{
		Items:         []dto.CartItem{{ProductID: pid, Quantity: 1}},
		Customer:      entity.Customer{Name: "Laura"},
		PaymentMethod: "cash",
	})
	require.Error(t, err, "con stock 0 el producto no acepta más reservas")
	// Agotado el stock el producto deja de ser vendible: la segunda orden ve
	// no-disponible o stock insuficiente según el momento del recálculo.
	if !errors.Is(err, domain.ErrProductUnavailable) {
		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 0, stockErr.Available)
	}
}

func TestCreateOrder_SecuencialPorDia(t *testing.T) {
	e := newEnv(t)
	pid := e.createProduct(t, "arepa", 10, "5.00")

	o1 := e.checkout(t, pid, 1)
	o2 := e.checkout(t, pid, 1)
	assert.Equal(t, "001", o1.OrderNumber)
	assert.Equal(t, "002", o2.OrderNumber)
	assert.NotEqual(t, o1.OrderID, o2.OrderID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones de estado
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateStatus_CaminoFelizHastaEntrega(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 2)

	e.advance(t, out.OrderID, order.StatusDelivered)

	o, err := e.orders.Get(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, o.Status)
	require.NotNil(t, o.DeliveredAt)
	assert.Len(t, o.StatusHistory, 6, "pending más cinco transiciones")

	ventas := e.salesFor(t, out.OrderID)
	require.Len(t, ventas, 1, "la entrega postea exactamente una venta")
	assert.True(t, ventas[0].Amount.Equal(o.Total), "el monto de la venta es el total de la orden")
	assert.True(t, ventas[0].IsAutomatic)
	assert.Equal(t, entity.CategorySale, ventas[0].Category)
	assert.Regexp(t, `^TXN_\d{8}_\d{4}$`, ventas[0].ID)
}

func TestUpdateStatus_NoSePuedenSaltarEtapas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 1)

	_, err := e.orders.UpdateStatus(ctx, out.OrderID, order.StatusReady, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	var trErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "pending", trErr.From)
	assert.Equal(t, "ready", trErr.To)

	o, gerr := e.orders.Get(ctx, out.OrderID)
	require.NoError(t, gerr)
	assert.Len(t, o.StatusHistory, 1, "una transición rechazada no toca el historial")
}

func TestUpdateStatus_OnWayExigeRepartidor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 1)

	// pending → preparing → ready → assigned sin repartidor no es posible:
	// assigned requiere pasar por la tabla, pero el bloqueo duro es on_way.
	_, err := e.orders.UpdateStatus(ctx, out.OrderID, order.StatusPreparing, "")
	require.NoError(t, err)
	_, err = e.orders.UpdateStatus(ctx, out.OrderID, order.StatusReady, "")
	require.NoError(t, err)
	_, err = e.orders.UpdateStatus(ctx, out.OrderID, order.StatusAssigned, "")
	require.NoError(t, err)

	_, err = e.orders.UpdateStatus(ctx, out.OrderID, order.StatusOnWay, "")
	require.ErrorIs(t, err, domain.ErrPrecondition, "sin repartidor asignado no hay salida a ruta")
}

func TestUpdateStatus_EntregaRepetidaEsNoOp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 2)
	e.advance(t, out.OrderID, order.StatusDelivered)

	_, err := e.orders.UpdateStatus(ctx, out.OrderID, order.StatusDelivered, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyDelivered)

	assert.Len(t, e.salesFor(t, out.OrderID), 1, "el reintento no duplica la venta")

	o, gerr := e.orders.Get(ctx, out.OrderID)
	require.NoError(t, gerr)
	assert.Len(t, o.StatusHistory, 6, "el no-op no agrega historial")
}

func TestUpdateStatus_EntregaConcurrentePosteaUnaSolaVenta(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 1)
	e.advance(t, out.OrderID, order.StatusOnWay)

	const intentos = 10
	var wg sync.WaitGroup
	for i := 0; i < intentos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Gana una; el resto ve AlreadyDelivered.
			_, _ = e.orders.UpdateStatus(ctx, out.OrderID, order.StatusDelivered, "")
		}()
	}
	wg.Wait()

	assert.Len(t, e.salesFor(t, out.OrderID), 1, "entregas concurrentes postean una sola venta")
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestCancelOrder_LiberaExactamenteLoReservado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 4)

	o, err := e.orders.CancelOrder(ctx, out.OrderID, "cliente desistió")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
	require.NotNil(t, o.CancelledAt)

	p, perr := e.catalog.Get(ctx, pid)
	require.NoError(t, perr)
	assert.Equal(t, 10, p.Stock, "cancelar devuelve las unidades reservadas")
}

func TestCancelOrder_RepetirEsNoOpSinDobleLiberacion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 4)

	_, err := e.orders.CancelOrder(ctx, out.OrderID, "")
	require.NoError(t, err)
	_, err = e.orders.CancelOrder(ctx, out.OrderID, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	p, perr := e.catalog.Get(ctx, pid)
	require.NoError(t, perr)
	assert.Equal(t, 10, p.Stock, "la segunda cancelación no libera de nuevo")
}

func TestCancelOrder_ConcurrenteLiberaUnaSolaVez(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 4)

	const intentos = 10
	var wg sync.WaitGroup
	for i := 0; i < intentos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.orders.CancelOrder(ctx, out.OrderID, "")
		}()
	}
	wg.Wait()

	p, perr := e.catalog.Get(ctx, pid)
	require.NoError(t, perr)
	assert.Equal(t, 10, p.Stock, "cancelaciones concurrentes liberan el stock exactamente una vez")
}

func TestCancelOrder_DesdeEnCaminoRestauraStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 3)
	e.advance(t, out.OrderID, order.StatusOnWay)

	o, err := e.orders.CancelOrder(ctx, out.OrderID, "cliente no contesta")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)

	p, perr := e.catalog.Get(ctx, pid)
	require.NoError(t, perr)
	assert.Equal(t, 10, p.Stock, "cancelar en ruta también devuelve las unidades")
}

func TestCancelOrder_EntregadaNoSeCancela(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 2)
	e.advance(t, out.OrderID, order.StatusDelivered)

	_, err := e.orders.CancelOrder(ctx, out.OrderID, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	p, perr := e.catalog.Get(ctx, pid)
	require.NoError(t, perr)
	assert.Equal(t, 8, p.Stock, "el stock de una orden entregada no vuelve")
}

func TestUpdateStatus_CancelledSeEnrutaPorCancelacion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 3)

	_, err := e.orders.UpdateStatus(ctx, out.OrderID, order.StatusCancelled, "")
	require.NoError(t, err)

	p, perr := e.catalog.Get(ctx, pid)
	require.NoError(t, perr)
	assert.Equal(t, 10, p.Stock, "cancelar vía cambio de estado también libera el stock")
}

// ──────────────────────────────────────────────────────────────────────────────
// Asignación de repartidor
// ──────────────────────────────────────────────────────────────────────────────

func TestAssignDelivery_SoloEnPreparingOReady(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 1)

	_, err := e.orders.AssignDelivery(ctx, out.OrderID, "D1", "Pedro", "P-01")
	require.ErrorIs(t, err, domain.ErrPrecondition, "en pending todavía no se asigna")

	_, err = e.orders.UpdateStatus(ctx, out.OrderID, order.StatusPreparing, "")
	require.NoError(t, err)

	o, err := e.orders.AssignDelivery(ctx, out.OrderID, "D1", "Pedro", "P-01")
	require.NoError(t, err)
	assert.Equal(t, "D1", o.AssignedDeliveryID)
	assert.NotNil(t, o.AssignedAt)
	assert.Equal(t, order.StatusPreparing, o.Status, "asignar no cambia el estado")
}

func TestUnassignDelivery_BloqueadoEnRuta(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 1)
	e.advance(t, out.OrderID, order.StatusOnWay)

	_, err := e.orders.UnassignDelivery(ctx, out.OrderID)
	assert.ErrorIs(t, err, domain.ErrPrecondition, "con la orden en ruta el repartidor no se quita")
}

func TestUnassignDelivery_LimpiaCampos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 1)
	_, err := e.orders.UpdateStatus(ctx, out.OrderID, order.StatusPreparing, "")
	require.NoError(t, err)
	_, err = e.orders.AssignDelivery(ctx, out.OrderID, "D1", "Pedro", "P-01")
	require.NoError(t, err)

	o, err := e.orders.UnassignDelivery(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Empty(t, o.AssignedDeliveryID)
	assert.Nil(t, o.AssignedAt)
}

// ──────────────────────────────────────────────────────────────────────────────
// Listado
// ──────────────────────────────────────────────────────────────────────────────

func TestList_FiltraPorEstado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	o1 := e.checkout(t, pid, 1)
	e.checkout(t, pid, 1)
	_, err := e.orders.CancelOrder(ctx, o1.OrderID, "")
	require.NoError(t, err)

	pendientes, err := e.orders.List(ctx, "pending")
	require.NoError(t, err)
	require.Len(t, pendientes, 1)

	canceladas, err := e.orders.List(ctx, "cancelled")
	require.NoError(t, err)
	require.Len(t, canceladas, 1)
	assert.Equal(t, o1.OrderID, canceladas[0].ID)

	_, err = e.orders.List(ctx, "no-es-un-estado")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Recuperación tras fallos transitorios en los efectos post-transición
// ──────────────────────────────────────────────────────────────────────────────

// flakyTxnRepo falla el primer Create simulando un store momentáneamente caído.
type flakyTxnRepo struct {
	repository.TransactionRepository
	mu     sync.Mutex
	failed bool
}

func (r *flakyTxnRepo) Create(ctx context.Context, txn *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.failed {
		r.failed = true
		return errors.New("store no disponible")
	}
	return r.TransactionRepository.Create(ctx, txn)
}

// flakyCatalog falla la primera liberación de stock.
type flakyCatalog struct {
	orders.Catalog
	mu     sync.Mutex
	failed bool
}

func (c *flakyCatalog) ReleaseStock(ctx context.Context, items []catalog.Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.failed {
		c.failed = true
		return errors.New("store no disponible")
	}
	return c.Catalog.ReleaseStock(ctx, items)
}

func TestUpdateStatus_ReintentoReponePosteoPerdido(t *testing.T) {
	st := memstore.New()
	retry := occ.Config{MaxRetries: 200, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
	log := logger.Nop()
	txns := &flakyTxnRepo{TransactionRepository: storage.NewTransactionRepository(st)}
	counters := storage.NewCounterRepository(st, retry)
	catalogUC := catalog.NewService(storage.NewProductRepository(st), log, retry)
	ledgerUC := appledger.NewService(txns, counters, catalogUC, log, retry)
	ordersUC := orders.NewService(storage.NewOrderRepository(st), counters, catalogUC, ledgerUC, log, retry,
		decimal.RequireFromString("2.00"))

	ctx := context.Background()
	p, err := catalogUC.Create(ctx, dto.CreateProductRequest{
		Name:  "arepa",
		Price: decimal.RequireFromString("5.00"),
		Cost:  decimal.RequireFromString("1.00"),
		Stock: 10,
	})
	require.NoError(t, err)
	out, err := ordersUC.CreateOrder(ctx, dto.CreateOrderRequest{
		Items:         []dto.CartItem{{ProductID: p.ID, Quantity: 2}},
		Customer:      entity.Customer{Name: "Laura"},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	for _, paso := range []order.Status{order.StatusPreparing, order.StatusReady} {
		_, err = ordersUC.UpdateStatus(ctx, out.OrderID, paso, "")
		require.NoError(t, err)
	}
	_, err = ordersUC.AssignDelivery(ctx, out.OrderID, "D1", "Pedro", "P-01")
	require.NoError(t, err)
	for _, paso := range []order.Status{order.StatusAssigned, order.StatusOnWay} {
		_, err = ordersUC.UpdateStatus(ctx, out.OrderID, paso, "")
		require.NoError(t, err)
	}

	_, err = ordersUC.UpdateStatus(ctx, out.OrderID, order.StatusDelivered, "")
	require.Error(t, err, "el primer posteo falla por el error transitorio")

	o, err := ordersUC.Get(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, o.Status, "la transición quedó confirmada pese al posteo fallido")

	_, err = ordersUC.UpdateStatus(ctx, out.OrderID, order.StatusDelivered, "")
	require.ErrorIs(t, err, domain.ErrAlreadyDelivered, "el reintento sigue siendo un no-op suave")

	all, err := txns.List(ctx)
	require.NoError(t, err)
	ventas := 0
	for _, txn := range all {
		if txn.OrderID == out.OrderID {
			ventas++
		}
	}
	assert.Equal(t, 1, ventas, "el reintento repone exactamente una venta")
}

func TestCancelOrder_ReintentoReponeLiberacionPerdida(t *testing.T) {
	st := memstore.New()
	retry := occ.Config{MaxRetries: 200, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
	log := logger.Nop()
	counters := storage.NewCounterRepository(st, retry)
	catalogUC := catalog.NewService(storage.NewProductRepository(st), log, retry)
	flaky := &flakyCatalog{Catalog: catalogUC}
	ledgerUC := appledger.NewService(storage.NewTransactionRepository(st), counters, catalogUC, log, retry)
	ordersUC := orders.NewService(storage.NewOrderRepository(st), counters, flaky, ledgerUC, log, retry,
		decimal.RequireFromString("2.00"))

	ctx := context.Background()
	p, err := catalogUC.Create(ctx, dto.CreateProductRequest{
		Name:  "arepa",
		Price: decimal.RequireFromString("5.00"),
		Cost:  decimal.RequireFromString("1.00"),
		Stock: 5,
	})
	require.NoError(t, err)
	out, err := ordersUC.CreateOrder(ctx, dto.CreateOrderRequest{
		Items:         []dto.CartItem{{ProductID: p.ID, Quantity: 3}},
		Customer:      entity.Customer{Name: "Laura"},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = ordersUC.CancelOrder(ctx, out.OrderID, "")
	require.Error(t, err, "la primera liberación falla por el error transitorio")

	prod, err := catalogUC.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, prod.Stock, "la cancelación quedó confirmada sin liberar todavía")

	_, err = ordersUC.CancelOrder(ctx, out.OrderID, "")
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	prod, err = catalogUC.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, prod.Stock, "el reintento repone la liberación pendiente")

	_, err = ordersUC.CancelOrder(ctx, out.OrderID, "")
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	prod, err = catalogUC.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, prod.Stock, "una tercera llamada no libera de nuevo")
}

func TestUpdateStatus_CanceladaRechazaOtrasTransiciones(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pid := e.createProduct(t, "arepa", 10, "5.00")
	out := e.checkout(t, pid, 2)
	_, err := e.orders.CancelOrder(ctx, out.OrderID, "")
	require.NoError(t, err)

	_, err = e.orders.UpdateStatus(ctx, out.OrderID, order.StatusPreparing, "")
	var trErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, string(order.StatusCancelled), trErr.From)
	assert.Equal(t, string(order.StatusPreparing), trErr.To)

	_, err = e.orders.CancelOrder(ctx, out.OrderID, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled, "el reintento de cancelación conserva el no-op suave")
}
