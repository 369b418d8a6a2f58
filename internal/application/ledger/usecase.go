// Package ledger implementa el libro contable: el posteo automático de ventas
// al entregar una orden (exactamente una vez por orden), el registro manual de
// ingresos y egresos, y los resúmenes por período.
package ledger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	domledger "github.com/tu-usuario/pedidos-pro/internal/domain/ledger"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
	"github.com/tu-usuario/pedidos-pro/pkg/occ"
)

// Service casos de uso del libro contable.
type Service struct {
	txns      repository.TransactionRepository
	counters  repository.CounterRepository
	inventory Inventory
	log       *logger.Logger
	retry     occ.Config
}

// NewService construye el servicio contable.
func NewService(
	txns repository.TransactionRepository,
	counters repository.CounterRepository,
	inventory Inventory,
	log *logger.Logger,
	retry occ.Config,
) *Service {
	return &Service{txns: txns, counters: counters, inventory: inventory, log: log, retry: retry}
}

// PostSale registra la venta automática de una orden entregada. Idempotente
// por orden: la clave orderID se reclama antes de escribir la transacción. Un
// reclamo duplicado verifica que la venta exista y, si un fallo transitorio la
// dejó sin escribir, la repone con el ID que el slot ya reclamó.
func (s *Service) PostSale(ctx context.Context, o *entity.Order) error {
	if o == nil || o.DeliveredAt == nil {
		return domain.ErrInvalidInput
	}

	date := *o.DeliveredAt
	seq, err := s.counters.Next(ctx, "transactions", date)
	if err != nil {
		return err
	}
	txnID := domain.FormatTransactionID(date, seq)

	if err := s.txns.ReserveSaleSlot(ctx, o.ID, txnID); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return err
		}
		// Slot ya reclamado: el secuencial recién consumido se descarta y la
		// venta se escribe (si falta) con el ID del reclamo original.
		claimed, err := s.txns.SaleByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		if _, _, err := s.txns.Get(ctx, claimed); err == nil {
			s.log.Debug().Str("order_id", o.ID).Msg("venta ya posteada")
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		txnID = claimed
	}

	lines := make([]entity.TransactionLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, entity.TransactionLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	now := time.Now()
	t := &entity.Transaction{
		ID:          txnID,
		Type:        entity.TransactionIncome,
		Category:    entity.CategorySale,
		Amount:      o.Total,
		Date:        date,
		OrderID:     o.ID,
		Description: "venta orden " + o.ID,
		IsAutomatic: true,
		Products:    lines,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.txns.Create(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// Una reposición concurrente escribió el mismo ID primero.
			return nil
		}
		return err
	}
	s.log.Info().Str("txn_id", t.ID).Str("order_id", o.ID).Str("amount", t.Amount.String()).Msg("venta posteada")
	return nil
}

// RecordExpense registra un egreso manual. Para la categoría inventory-purchase
// las líneas de producto incrementan stock (y costo promedio) antes de escribir
// la transacción; si la escritura falla, los incrementos se revierten.
func (s *Service) RecordExpense(ctx context.Context, in dto.RecordExpenseRequest) (*entity.Transaction, error) {
	if in.Category == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Amount.IsNegative() {
		return nil, domain.ErrInvalidInput
	}

	var restock []catalog.RestockLine
	var lines []entity.TransactionLine
	amount := in.Amount
	if in.Category == entity.CategoryInventoryPurchase {
		if len(in.Products) == 0 {
			return nil, domain.ErrInvalidInput
		}
		total := decimal.Zero
		for _, ln := range in.Products {
			if ln.ProductID == "" || ln.Quantity <= 0 || ln.UnitCost.IsNegative() {
				return nil, domain.ErrInvalidInput
			}
			restock = append(restock, catalog.RestockLine{ProductID: ln.ProductID, Quantity: ln.Quantity, UnitCost: ln.UnitCost})
			lines = append(lines, entity.TransactionLine{ProductID: ln.ProductID, Quantity: ln.Quantity, UnitCost: ln.UnitCost})
			total = total.Add(ln.UnitCost.Mul(decimal.NewFromInt(int64(ln.Quantity))))
		}
		if amount.IsZero() {
			amount = total
		}
		if err := s.inventory.Restock(ctx, restock); err != nil {
			return nil, err
		}
	} else if !amount.IsPositive() {
		return nil, domain.ErrInvalidInput
	}

	t, err := s.record(ctx, entity.TransactionExpense, in.Category, amount, in.Description, in.Date, lines)
	if err != nil && restock != nil {
		if uerr := s.inventory.UnwindRestock(ctx, restock); uerr != nil {
			s.log.Error().Err(uerr).Msg("reversa de compra de inventario fallida")
		}
	}
	return t, err
}

// RecordIncome registra un ingreso manual (nunca de categoría sale automática).
func (s *Service) RecordIncome(ctx context.Context, in dto.RecordIncomeRequest) (*entity.Transaction, error) {
	if in.Category == "" || !in.Amount.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	return s.record(ctx, entity.TransactionIncome, in.Category, in.Amount, in.Description, in.Date, nil)
}

func (s *Service) record(ctx context.Context, typ, category string, amount decimal.Decimal, description string, date *time.Time, lines []entity.TransactionLine) (*entity.Transaction, error) {
	now := time.Now()
	when := now
	if date != nil {
		when = *date
	}
	seq, err := s.counters.Next(ctx, "transactions", when)
	if err != nil {
		return nil, err
	}
	t := &entity.Transaction{
		ID:          domain.FormatTransactionID(when, seq),
		Type:        typ,
		Category:    category,
		Amount:      amount,
		Date:        when,
		Description: description,
		IsAutomatic: false,
		Products:    lines,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.txns.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info().Str("txn_id", t.ID).Str("type", typ).Str("amount", amount.String()).Msg("transacción registrada")
	return t, nil
}

// Void anula una transacción manual. Las automáticas no se anulan por aquí: su
// corrección pasa por el flujo de la orden. Anular dos veces es un no-op.
func (s *Service) Void(ctx context.Context, id, reason string) (*entity.Transaction, error) {
	var voided *entity.Transaction
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			t, version, err := s.txns.Get(ctx, id)
			if err != nil {
				return err
			}
			if t.IsAutomatic {
				return domain.ErrForbidden
			}
			if t.Voided {
				voided = t
				return nil
			}
			t.Voided = true
			t.VoidReason = reason
			t.UpdatedAt = time.Now()
			if _, err := s.txns.Update(ctx, t, version); err != nil {
				return err
			}
			voided = t
			return nil
		})
	if errors.Is(err, store.ErrVersionMismatch) {
		return nil, domain.ErrWriteConflict
	}
	if err != nil {
		return nil, err
	}
	return voided, nil
}

// Get devuelve una transacción por ID.
func (s *Service) Get(ctx context.Context, id string) (*entity.Transaction, error) {
	t, _, err := s.txns.Get(ctx, id)
	return t, err
}

// List devuelve todas las transacciones, más recientes primero.
func (s *Service) List(ctx context.Context) ([]*entity.Transaction, error) {
	all, err := s.txns.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	return all, nil
}

// ListPeriod devuelve las transacciones con Date en [from, to), más recientes primero.
func (s *Service) ListPeriod(ctx context.Context, from, to time.Time) ([]*entity.Transaction, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Transaction, 0, len(all))
	for _, t := range all {
		if !t.Date.Before(from) && t.Date.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Summary agrega el período que contiene a ref: "day", "week" o "month".
func (s *Service) Summary(ctx context.Context, period string, ref time.Time) (*domledger.Summary, error) {
	var from, to time.Time
	switch period {
	case "day":
		from, to = domledger.DayRange(ref)
	case "week":
		from, to = domledger.WeekRange(ref)
	case "month":
		from, to = domledger.MonthRange(ref)
	default:
		return nil, domain.ErrInvalidInput
	}
	all, err := s.txns.List(ctx)
	if err != nil {
		return nil, err
	}
	sum := domledger.Summarize(all, from, to)
	return &sum, nil
}
