package repository

import (
	"context"

	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
)

// OrderRepository puerto de persistencia versionada para Order.
// Create es de solo-creación (falla con domain.ErrDuplicate si el ID ya existe);
// Update devuelve store.ErrVersionMismatch en conflicto.
type OrderRepository interface {
	Get(ctx context.Context, id string) (*entity.Order, store.Version, error)
	Create(ctx context.Context, o *entity.Order) error
	Update(ctx context.Context, o *entity.Order, expected store.Version) (store.Version, error)
	List(ctx context.Context) ([]*entity.Order, error)
}
