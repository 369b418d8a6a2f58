package orders

import (
	"context"

	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
)

// Catalog operaciones del catálogo que necesita el motor de órdenes.
type Catalog interface {
	Get(ctx context.Context, id string) (*entity.Product, error)
	ReserveStock(ctx context.Context, items []catalog.Line) (*catalog.Reservation, error)
	ReleaseStock(ctx context.Context, items []catalog.Line) error
}

// SalePoster registra la venta automática de una orden entregada.
// La implementación debe ser idempotente por orden (clave = orderID).
type SalePoster interface {
	PostSale(ctx context.Context, o *entity.Order) error
}
