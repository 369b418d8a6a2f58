package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/order"
)

// CreateOrder valida el carrito, reserva stock para todas las líneas como un
// paso atómico y persiste la orden en pending con su primera entrada de
// historial. Si la reserva falla no se persiste nada y se reporta la línea
// fallida; si la persistencia falla, la reserva se revierte.
func (s *Service) CreateOrder(ctx context.Context, in dto.CreateOrderRequest) (*dto.OrderCreatedResponse, error) {
	if len(in.Items) == 0 || in.Customer.Name == "" || in.PaymentMethod == "" {
		return nil, domain.ErrInvalidInput
	}
	lines := make([]catalog.Line, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		lines = append(lines, catalog.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	// Snapshot de nombre y precio de venta por línea; los ítems son inmutables
	// una vez creada la orden.
	items := make([]entity.OrderItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for _, it := range in.Items {
		p, err := s.catalog.Get(ctx, it.ProductID)
		if err != nil {
			return nil, &domain.ProductUnavailableError{ProductID: it.ProductID}
		}
		unitPrice := p.SalePrice()
		items = append(items, entity.OrderItem{
			ProductID: it.ProductID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			UnitPrice: unitPrice,
		})
		subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	reservation, err := s.catalog.ReserveStock(ctx, lines)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	seq, err := s.counters.Next(ctx, "orders", now)
	if err != nil {
		s.releaseQuiet(ctx, reservation.Items)
		return nil, err
	}

	deliveryCost := s.deliveryCost
	if in.DeliveryCost != nil && !in.DeliveryCost.IsNegative() {
		deliveryCost = *in.DeliveryCost
	}

	o := &entity.Order{
		ID:            domain.FormatOrderID(now, seq),
		OrderNumber:   fmt.Sprintf("%03d", seq),
		Customer:      in.Customer,
		Items:         items,
		Status:        order.StatusPending,
		Subtotal:      subtotal,
		DeliveryCost:  deliveryCost,
		Total:         subtotal.Add(deliveryCost),
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     now,
	}
	o.AppendHistory(order.StatusPending, now, "orden creada")

	if err := s.orders.Create(ctx, o); err != nil {
		s.releaseQuiet(ctx, reservation.Items)
		return nil, err
	}

	s.log.Info().Str("order_id", o.ID).Str("total", o.Total.String()).Msg("orden creada")
	return &dto.OrderCreatedResponse{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Subtotal:    o.Subtotal,
		Total:       o.Total,
	}, nil
}

// releaseQuiet devuelve la reserva cuando la creación no pudo completarse.
func (s *Service) releaseQuiet(ctx context.Context, items []catalog.Line) {
	if err := s.catalog.ReleaseStock(ctx, items); err != nil {
		s.log.Error().Err(err).Msg("reversa de reserva tras fallo de creación")
	}
}
