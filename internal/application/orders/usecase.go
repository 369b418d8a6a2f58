// Package orders implementa el motor del ciclo de vida de órdenes: la máquina
// de estados con tabla central de transiciones, la reserva/liberación de stock
// y el disparo idempotente del posteo contable al entregar.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/order"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
	"github.com/tu-usuario/pedidos-pro/pkg/occ"
)

// Service motor de órdenes.
type Service struct {
	orders       repository.OrderRepository
	counters     repository.CounterRepository
	catalog      Catalog
	ledger       SalePoster
	log          *logger.Logger
	retry        occ.Config
	deliveryCost decimal.Decimal
}

// NewService construye el motor de órdenes.
func NewService(
	orders repository.OrderRepository,
	counters repository.CounterRepository,
	cat Catalog,
	ledger SalePoster,
	log *logger.Logger,
	retry occ.Config,
	deliveryCost decimal.Decimal,
) *Service {
	return &Service{
		orders:       orders,
		counters:     counters,
		catalog:      cat,
		ledger:       ledger,
		log:          log,
		retry:        retry,
		deliveryCost: deliveryCost,
	}
}

// Get devuelve una orden por ID.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	o, _, err := s.orders.Get(ctx, id)
	return o, err
}

// List devuelve las órdenes, opcionalmente filtradas por estado.
func (s *Service) List(ctx context.Context, status string) ([]*entity.Order, error) {
	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	st, err := order.Parse(status)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	out := make([]*entity.Order, 0, len(all))
	for _, o := range all {
		if o.Status == st {
			out = append(out, o)
		}
	}
	return out, nil
}

// UpdateStatus aplica una transición validada por la tabla central. Reglas:
//   - transiciones fuera de la tabla fallan con InvalidTransition;
//   - pasar a on_way exige repartidor asignado (Precondition);
//   - cada llamada agrega exactamente una entrada al historial;
//   - llegar a delivered dispara el posteo contable una sola vez: una segunda
//     llamada es un no-op que devuelve AlreadyDelivered.
//
// Una transición a cancelled se enruta por CancelOrder para que la liberación
// de stock acompañe siempre a la cancelación.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, newStatus order.Status, note string) (*entity.Order, error) {
	if !newStatus.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if newStatus == order.StatusCancelled {
		return s.CancelOrder(ctx, orderID, note)
	}

	var updated *entity.Order
	var justDelivered bool
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			o, version, err := s.orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if o.Status == order.StatusDelivered && newStatus == order.StatusDelivered {
				updated = o
				return domain.ErrAlreadyDelivered
			}
			if !order.CanTransition(o.Status, newStatus) {
				return &domain.InvalidTransitionError{From: string(o.Status), To: string(newStatus)}
			}
			if newStatus == order.StatusOnWay && o.AssignedDeliveryID == "" {
				return &domain.PreconditionError{Reason: "repartidor sin asignar"}
			}

			now := time.Now()
			o.Status = newStatus
			o.AppendHistory(newStatus, now, note)
			justDelivered = false
			if newStatus == order.StatusDelivered {
				o.DeliveredAt = &now
				justDelivered = true
			}
			if _, err := s.orders.Update(ctx, o, version); err != nil {
				return err
			}
			updated = o
			return nil
		})
	if err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return nil, domain.ErrWriteConflict
		}
		if errors.Is(err, domain.ErrAlreadyDelivered) && updated != nil {
			// El reintento repone un posteo que un fallo transitorio dejó pendiente.
			if perr := s.ledger.PostSale(ctx, updated); perr != nil {
				s.log.Error().Err(perr).Str("order_id", updated.ID).Msg("posteo de venta fallido")
				return updated, perr
			}
		}
		return updated, err
	}

	if justDelivered {
		// El posteo es idempotente por orderID; un duplicado no agrega nada.
		if err := s.ledger.PostSale(ctx, updated); err != nil {
			s.log.Error().Err(err).Str("order_id", updated.ID).Msg("posteo de venta fallido")
			return updated, err
		}
	}
	return updated, nil
}

// CancelOrder cancela una orden no terminal y libera exactamente las cantidades
// reservadas en la creación. La liberación reclama el marcador StockReleased por
// CAS: solo el ganador del reclamo libera, y una segunda llamada es un no-op que
// devuelve AlreadyCancelled. Si la liberación falla, el marcador se revierte y
// un reintento la repone.
func (s *Service) CancelOrder(ctx context.Context, orderID, note string) (*entity.Order, error) {
	var cancelled *entity.Order
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			o, version, err := s.orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if o.Status == order.StatusCancelled {
				cancelled = o
				return domain.ErrAlreadyCancelled
			}
			if o.Status == order.StatusDelivered {
				// Entregada gana la carrera: no hay devolución de stock por aquí.
				return &domain.InvalidTransitionError{From: string(order.StatusDelivered), To: string(order.StatusCancelled)}
			}

			now := time.Now()
			o.Status = order.StatusCancelled
			o.CancelledAt = &now
			o.AppendHistory(order.StatusCancelled, now, note)
			if _, err := s.orders.Update(ctx, o, version); err != nil {
				return err
			}
			cancelled = o
			return nil
		})
	if err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return nil, domain.ErrWriteConflict
		}
		if errors.Is(err, domain.ErrAlreadyCancelled) && cancelled != nil {
			// El reintento repone una liberación que un fallo transitorio dejó pendiente.
			if rerr := s.releaseReservedStock(ctx, cancelled.ID); rerr != nil {
				s.log.Error().Err(rerr).Str("order_id", cancelled.ID).Msg("liberación de stock tras cancelación")
				return cancelled, rerr
			}
		}
		return cancelled, err
	}

	if err := s.releaseReservedStock(ctx, cancelled.ID); err != nil {
		s.log.Error().Err(err).Str("order_id", cancelled.ID).Msg("liberación de stock tras cancelación")
		return cancelled, err
	}
	s.log.Info().Str("order_id", cancelled.ID).Msg("orden cancelada")
	return cancelled, nil
}

// releaseReservedStock devuelve al catálogo las cantidades reservadas por una
// orden cancelada, exactamente una vez: reclama el marcador StockReleased por
// CAS y solo el ganador del reclamo libera. Si la liberación falla, el marcador
// se revierte para que un reintento pueda completarla.
func (s *Service) releaseReservedStock(ctx context.Context, orderID string) error {
	var claimed *entity.Order
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			o, version, err := s.orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if o.StockReleased {
				claimed = nil
				return nil
			}
			o.StockReleased = true
			if _, err := s.orders.Update(ctx, o, version); err != nil {
				return err
			}
			claimed = o
			return nil
		})
	if errors.Is(err, store.ErrVersionMismatch) {
		return domain.ErrWriteConflict
	}
	if err != nil {
		return err
	}
	if claimed == nil {
		// Otro llamador ya liberó.
		return nil
	}

	lines := make([]catalog.Line, 0, len(claimed.Items))
	for _, it := range claimed.Items {
		lines = append(lines, catalog.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if err := s.catalog.ReleaseStock(ctx, lines); err != nil {
		s.unmarkStockReleased(ctx, orderID)
		return err
	}
	return nil
}

// unmarkStockReleased revierte el reclamo del marcador tras una liberación fallida.
func (s *Service) unmarkStockReleased(ctx context.Context, orderID string) {
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			o, version, err := s.orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if !o.StockReleased {
				return nil
			}
			o.StockReleased = false
			_, err = s.orders.Update(ctx, o, version)
			return err
		})
	if err != nil {
		s.log.Error().Err(err).Str("order_id", orderID).Msg("reversa del marcador de liberación fallida")
	}
}

// AssignDelivery fija el repartidor. Permitido solo en preparing o ready; no
// cambia el estado de la orden.
func (s *Service) AssignDelivery(ctx context.Context, orderID, deliveryID, name, code string) (*entity.Order, error) {
	if deliveryID == "" {
		return nil, domain.ErrInvalidInput
	}
	var updated *entity.Order
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			o, version, err := s.orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if o.Status != order.StatusPreparing && o.Status != order.StatusReady {
				return &domain.PreconditionError{Reason: "asignación solo permitida en preparing o ready"}
			}
			now := time.Now()
			o.AssignedDeliveryID = deliveryID
			o.AssignedDeliveryName = name
			o.AssignedDeliveryCode = code
			o.AssignedAt = &now
			if _, err := s.orders.Update(ctx, o, version); err != nil {
				return err
			}
			updated = o
			return nil
		})
	if errors.Is(err, store.ErrVersionMismatch) {
		return nil, domain.ErrWriteConflict
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UnassignDelivery limpia los campos de asignación; no toca el estado. No
// permitido con la orden en ruta ni en estado terminal.
func (s *Service) UnassignDelivery(ctx context.Context, orderID string) (*entity.Order, error) {
	var updated *entity.Order
	err := s.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			o, version, err := s.orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if o.Status.Terminal() || o.Status == order.StatusOnWay {
				return &domain.PreconditionError{Reason: "no se puede desasignar en este estado"}
			}
			o.AssignedDeliveryID = ""
			o.AssignedDeliveryName = ""
			o.AssignedDeliveryCode = ""
			o.AssignedAt = nil
			if _, err := s.orders.Update(ctx, o, version); err != nil {
				return err
			}
			updated = o
			return nil
		})
	if errors.Is(err, store.ErrVersionMismatch) {
		return nil, domain.ErrWriteConflict
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}
