// Package catalog es el dueño del stock y de los flags de disponibilidad de
// los productos vendibles. Toda mutación de stock es una unidad de concurrencia
// optimista: lectura, cómputo y escritura condicional con reintento acotado.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
	"github.com/tu-usuario/pedidos-pro/pkg/occ"
)

// Line cantidad a reservar o liberar de un producto.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// RestockLine línea de compra de inventario: además del stock actualiza el
// costo promedio ponderado del producto.
type RestockLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// Reservation resultado de una reserva de stock aplicada completa.
type Reservation struct {
	Items      []Line
	ReservedAt time.Time
}

// Service casos de uso del catálogo de productos.
type Service struct {
	products repository.ProductRepository
	log      *logger.Logger
	retry    occ.Config
}

// NewService construye el servicio del catálogo.
func NewService(products repository.ProductRepository, log *logger.Logger, retry occ.Config) *Service {
	return &Service{products: products, log: log, retry: retry}
}

// Get devuelve un producto por ID.
func (s *Service) Get(ctx context.Context, id string) (*entity.Product, error) {
	p, _, err := s.products.Get(ctx, id)
	return p, err
}

// List devuelve los productos; con includeInactive=false filtra los borrados lógicamente.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]*entity.Product, error) {
	all, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return all, nil
	}
	out := make([]*entity.Product, 0, len(all))
	for _, p := range all {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

// Create alta de producto por un operador.
func (s *Service) Create(ctx context.Context, in dto.CreateProductRequest) (*entity.Product, error) {
	if in.Name == "" || in.Price.IsNegative() || in.Cost.IsNegative() || in.Stock < 0 || in.MinStock < 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.Discount.IsNegative() || in.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	p := &entity.Product{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Category:  in.Category,
		Cost:      in.Cost,
		Price:     in.Price,
		Stock:     in.Stock,
		MinStock:  in.MinStock,
		Discount:  in.Discount,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.RecomputeAvailability()
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update actualización parcial de campos de operador. El stock no se toca aquí.
func (s *Service) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*entity.Product, error) {
	var updated *entity.Product
	err := s.mutate(ctx, id, func(p *entity.Product) error {
		if in.Name != nil {
			p.Name = *in.Name
		}
		if in.Category != nil {
			p.Category = *in.Category
		}
		if in.Cost != nil {
			if in.Cost.IsNegative() {
				return domain.ErrInvalidInput
			}
			p.Cost = *in.Cost
		}
		if in.Price != nil {
			if in.Price.IsNegative() {
				return domain.ErrInvalidInput
			}
			p.Price = *in.Price
		}
		if in.MinStock != nil {
			if *in.MinStock < 0 {
				return domain.ErrInvalidInput
			}
			p.MinStock = *in.MinStock
		}
		if in.Discount != nil {
			if in.Discount.IsNegative() || in.Discount.GreaterThan(decimal.NewFromInt(100)) {
				return domain.ErrInvalidInput
			}
			p.Discount = *in.Discount
		}
		if in.ForceDisabled != nil {
			p.ForceDisabled = *in.ForceDisabled
		}
		updated = p
		return nil
	})
	return updated, err
}

// SoftDelete borrado lógico: el producto deja de ser vendible pero nunca se elimina.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(p *entity.Product) error {
		p.Active = false
		return nil
	})
}

// ReserveStock valida y descuenta stock para todas las líneas como una unidad
// lógica: o todas las líneas quedan aplicadas, o ninguna. La validación corre
// antes de mutar; cada decremento revalida sobre el estado fresco dentro de su
// CAS, y un fallo a mitad revierte los decrementos ya aplicados.
func (s *Service) ReserveStock(ctx context.Context, items []Line) (*Reservation, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
	}

	// Fase de validación: sin efectos si alguna línea falla.
	for _, it := range items {
		p, _, err := s.products.Get(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ProductUnavailableError{ProductID: it.ProductID}
			}
			return nil, err
		}
		if !p.Sellable() {
			return nil, &domain.ProductUnavailableError{ProductID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return nil, &domain.InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity, Available: p.Stock}
		}
	}

	// Fase de aplicación: decrementos CAS línea por línea, con reversa en fallo.
	applied := make([]Line, 0, len(items))
	for _, it := range items {
		if err := s.adjustStock(ctx, it.ProductID, -it.Quantity, true); err != nil {
			s.rollbackReservation(ctx, applied)
			return nil, err
		}
		applied = append(applied, it)
	}
	return &Reservation{Items: applied, ReservedAt: time.Now()}, nil
}

// ReleaseStock devuelve al catálogo las cantidades dadas (cancelación de orden).
// Siempre procede: un producto borrado lógicamente igual recupera su stock.
func (s *Service) ReleaseStock(ctx context.Context, items []Line) error {
	for _, it := range items {
		if err := s.adjustStock(ctx, it.ProductID, it.Quantity, false); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// La orden referencia un producto que ya no existe: se registra y sigue.
				s.log.Warn().Str("product_id", it.ProductID).Msg("liberación de stock sobre producto inexistente")
				continue
			}
			return err
		}
	}
	return nil
}

// Restock incrementa stock por una compra de inventario y actualiza el costo
// promedio ponderado del producto (mismo cálculo que una entrada de inventario).
func (s *Service) Restock(ctx context.Context, lines []RestockLine) error {
	if len(lines) == 0 {
		return domain.ErrInvalidInput
	}
	for _, ln := range lines {
		if ln.ProductID == "" || ln.Quantity <= 0 || ln.UnitCost.IsNegative() {
			return domain.ErrInvalidInput
		}
	}
	for _, ln := range lines {
		ln := ln
		err := s.mutate(ctx, ln.ProductID, func(p *entity.Product) error {
			p.Cost = weightedCost(p.Stock, p.Cost, ln.Quantity, ln.UnitCost)
			p.Stock += ln.Quantity
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// UnwindRestock revierte los incrementos de una compra que no pudo confirmarse.
func (s *Service) UnwindRestock(ctx context.Context, lines []RestockLine) error {
	for _, ln := range lines {
		if err := s.adjustStock(ctx, ln.ProductID, -ln.Quantity, false); err != nil {
			return err
		}
	}
	return nil
}

// rollbackReservation reversa compensatoria de una reserva parcial.
func (s *Service) rollbackReservation(ctx context.Context, applied []Line) {
	for _, it := range applied {
		if err := s.adjustStock(ctx, it.ProductID, it.Quantity, false); err != nil {
			// No se puede "arreglar hacia adelante": se reporta y queda en el log.
			s.log.Error().Err(err).Str("product_id", it.ProductID).Int("quantity", it.Quantity).
				Msg("reversa de reserva fallida")
		}
	}
}

// adjustStock aplica un delta de stock como unidad CAS con reintento acotado.
// Con requireSellable revalida disponibilidad y suficiencia sobre el estado
// fresco de cada intento, de modo que dos reservas concurrentes nunca
// sobrevenden: la perdedora ve el stock ya descontado y recibe el error típico.
func (s *Service) adjustStock(ctx context.Context, productID string, delta int, requireSellable bool) error {
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			p, version, err := s.products.Get(ctx, productID)
			if err != nil {
				return err
			}
			if requireSellable {
				if !p.Sellable() {
					return &domain.ProductUnavailableError{ProductID: productID}
				}
				if p.Stock+delta < 0 {
					return &domain.InsufficientStockError{ProductID: productID, Requested: -delta, Available: p.Stock}
				}
			} else if p.Stock+delta < 0 {
				// Violación del invariante stock >= 0: se aborta, nunca se parchea.
				return fmt.Errorf("ajuste dejaría stock negativo en %s (stock=%d, delta=%d): %w",
					productID, p.Stock, delta, domain.ErrInvalidInput)
			}
			p.Stock += delta
			p.RecomputeAvailability()
			p.UpdatedAt = time.Now()
			_, err = s.products.Update(ctx, p, version)
			return err
		})
	if errors.Is(err, store.ErrVersionMismatch) {
		return domain.ErrWriteConflict
	}
	return err
}

// mutate unidad CAS genérica sobre un producto.
func (s *Service) mutate(ctx context.Context, productID string, fn func(*entity.Product) error) error {
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			p, version, err := s.products.Get(ctx, productID)
			if err != nil {
				return err
			}
			if err := fn(p); err != nil {
				return err
			}
			p.RecomputeAvailability()
			p.UpdatedAt = time.Now()
			_, err = s.products.Update(ctx, p, version)
			return err
		})
	if errors.Is(err, store.ErrVersionMismatch) {
		return domain.ErrWriteConflict
	}
	return err
}

// weightedCost costo promedio ponderado tras una entrada de inventario.
func weightedCost(currentQty int, currentCost decimal.Decimal, inQty int, inCost decimal.Decimal) decimal.Decimal {
	totalQty := currentQty + inQty
	if totalQty <= 0 {
		return inCost
	}
	currentTotal := decimal.NewFromInt(int64(currentQty)).Mul(currentCost)
	inTotal := decimal.NewFromInt(int64(inQty)).Mul(inCost)
	return currentTotal.Add(inTotal).Div(decimal.NewFromInt(int64(totalQty))).Round(4)
}
