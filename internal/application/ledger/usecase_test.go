package ledger_test

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
	"github.com/tu-usuario/pedidos-pro/internal/application/ledger"
	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/infrastructure/memstore"
	"github.com/tu-usuario/pedidos-pro/internal/infrastructure/storage"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
	"github.com/tu-usuario/pedidos-pro/pkg/occ"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type env struct {
	catalog *catalog.Service
	ledger  *ledger.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	retry := occ.Config{MaxRetries: 200, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
	log := logger.Nop()

	catalogUC := catalog.NewService(storage.NewProductRepository(st), log, retry)
	ledgerUC := ledger.NewService(
		storage.NewTransactionRepository(st),
		storage.NewCounterRepository(st, retry),
		catalogUC, log, retry,
	)
	return &env{catalog: catalogUC, ledger: ledgerUC}
}

func deliveredOrder(total string) *entity.Order {
	now := time.Now()
	return &entity.Order{
		ID:          "ORDER_20250310_001",
		Items:       []entity.OrderItem{{ProductID: "p1", Name: "arepa", Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")}},
		Total:       decimal.RequireFromString(total),
		DeliveredAt: &now,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Posteo automático de ventas
// ──────────────────────────────────────────────────────────────────────────────

func TestPostSale_RegistraIngresoAutomatico(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := deliveredOrder("17.00")

	require.NoError(t, e.ledger.PostSale(ctx, o))

	all, err := e.ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	txn := all[0]
	assert.Equal(t, entity.TransactionIncome, txn.Type)
	assert.Equal(t, entity.CategorySale, txn.Category)
	assert.Equal(t, o.ID, txn.OrderID)
	assert.True(t, txn.IsAutomatic)
	assert.True(t, txn.Amount.Equal(o.Total))
	require.Len(t, txn.Products, 1)
	assert.Equal(t, "arepa", txn.Products[0].Name)
}

func TestPostSale_Idempotente(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := deliveredOrder("17.00")

	require.NoError(t, e.ledger.PostSale(ctx, o))
	require.NoError(t, e.ledger.PostSale(ctx, o), "el reintento debe ser un no-op exitoso")

	all, err := e.ledger.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "una orden produce a lo sumo una venta")
}

func TestPostSale_ConcurrenteUnSoloPosteo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := deliveredOrder("17.00")

	const intentos = 10
	var wg sync.WaitGroup
	for i := 0; i < intentos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.ledger.PostSale(ctx, o))
		}()
	}
	wg.Wait()

	all, err := e.ledger.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "posteos concurrentes de la misma orden dejan una sola venta")
}

func TestPostSale_SinEntregaEsInvalido(t *testing.T) {
	e := newEnv(t)
	o := deliveredOrder("17.00")
	o.DeliveredAt = nil
	assert.ErrorIs(t, e.ledger.PostSale(context.Background(), o), domain.ErrInvalidInput)
}

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

func TestPostSale_ReintentoReponeVentaTrasFalloTransitorio(t *testing.T) {
	st := memstore.New()
	retry := occ.Config{MaxRetries: 200, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
	log := logger.Nop()
	catalogUC := catalog.NewService(storage.NewProductRepository(st), log, retry)
	svc := ledger.NewService(
		&flakyTxnRepo{TransactionRepository: storage.NewTransactionRepository(st)},
		storage.NewCounterRepository(st, retry),
		catalogUC, log, retry,
	)
	ctx := context.Background()
	o := deliveredOrder("17.00")

	require.Error(t, svc.PostSale(ctx, o), "el primer intento falla al escribir la transacción")

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "el slot quedó reclamado pero la venta aún no existe")

	require.NoError(t, svc.PostSale(ctx, o), "el reintento repone la venta con el ID reclamado")
	all, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, o.ID, all[0].OrderID)
	assert.True(t, all[0].Amount.Equal(o.Total))

	require.NoError(t, svc.PostSale(ctx, o), "con la venta repuesta vuelve a ser un no-op")
	all, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacciones manuales
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordExpense_CompraDeInventarioIncrementaStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p, err := e.catalog.Create(ctx, dto.CreateProductRequest{
		Name:  "harina",
		Price: decimal.RequireFromString("3.00"),
		Cost:  decimal.RequireFromString("2.00"),
		Stock: 0,
	})
	require.NoError(t, err)

	txn, err := e.ledger.RecordExpense(ctx, dto.RecordExpenseRequest{
		Category: entity.CategoryInventoryPurchase,
		Products: []dto.ExpenseLine{
			{ProductID: p.ID, Quantity: 10, UnitCost: decimal.RequireFromString("2.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionExpense, txn.Type)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("20.00")),
		"sin monto explícito el egreso es la suma de las líneas")

	actualizado, err := e.catalog.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, actualizado.Stock, "la compra entra al inventario en la misma operación")
	assert.True(t, actualizado.Disponible)
}

func TestRecordExpense_CompraSinLineasEsInvalida(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.RecordExpense(context.Background(), dto.RecordExpenseRequest{
		Category: entity.CategoryInventoryPurchase,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordExpense_GastoGeneral(t *testing.T) {
	e := newEnv(t)
	txn, err := e.ledger.RecordExpense(context.Background(), dto.RecordExpenseRequest{
		Category:    entity.CategorySalary,
		Amount:      decimal.RequireFromString("500.00"),
		Description: "nómina semanal",
	})
	require.NoError(t, err)
	assert.False(t, txn.IsAutomatic)
	assert.Regexp(t, `^TXN_\d{8}_\d{4}$`, txn.ID)
}

func TestRecordIncome_RequiereMontoPositivo(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.RecordIncome(context.Background(), dto.RecordIncomeRequest{
		Category: entity.CategoryOverhead,
		Amount:   decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Anulación
// ──────────────────────────────────────────────────────────────────────────────

func TestVoid_ManualSaleDelResumen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	txn, err := e.ledger.RecordIncome(ctx, dto.RecordIncomeRequest{
		Category: entity.CategoryOverhead,
		Amount:   decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	voided, err := e.ledger.Void(ctx, txn.ID, "registro duplicado")
	require.NoError(t, err)
	assert.True(t, voided.Voided)
	assert.Equal(t, "registro duplicado", voided.VoidReason)

	sum, err := e.ledger.Summary(ctx, "day", txn.Date)
	require.NoError(t, err)
	assert.True(t, sum.Income.IsZero(), "una transacción anulada no suma al resumen")
}

func TestVoid_AutomaticaProhibida(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := deliveredOrder("17.00")
	require.NoError(t, e.ledger.PostSale(ctx, o))

	all, err := e.ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = e.ledger.Void(ctx, all[0].ID, "no debería")
	assert.ErrorIs(t, err, domain.ErrForbidden,
		"las ventas automáticas se corrigen por el flujo de la orden, no por void")
}

func TestVoid_RepetidoEsNoOp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	txn, err := e.ledger.RecordIncome(ctx, dto.RecordIncomeRequest{
		Category: entity.CategoryOverhead,
		Amount:   decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	_, err = e.ledger.Void(ctx, txn.ID, "primera")
	require.NoError(t, err)
	voided, err := e.ledger.Void(ctx, txn.ID, "segunda")
	require.NoError(t, err)
	assert.Equal(t, "primera", voided.VoidReason, "anular dos veces conserva la primera razón")
}

// ──────────────────────────────────────────────────────────────────────────────
// Resúmenes
// ──────────────────────────────────────────────────────────────────────────────

func TestSummary_DiaAgregaIngresosYEgresos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.ledger.RecordIncome(ctx, dto.RecordIncomeRequest{
		Category: entity.CategoryOverhead, Amount: decimal.RequireFromString("200.00"),
	})
	require.NoError(t, err)
	_, err = e.ledger.RecordExpense(ctx, dto.RecordExpenseRequest{
		Category: entity.CategorySalary, Amount: decimal.RequireFromString("80.00"),
	})
	require.NoError(t, err)

	sum, err := e.ledger.Summary(ctx, "day", time.Now())
	require.NoError(t, err)
	assert.True(t, sum.Income.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, sum.Expense.Equal(decimal.RequireFromString("80.00")))
	assert.True(t, sum.Net.Equal(decimal.RequireFromString("120.00")))
	assert.Equal(t, 2, sum.Count)
}

func TestSummary_PeriodoDesconocido(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Summary(context.Background(), "quarter", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
