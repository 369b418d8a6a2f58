package repository

import (
	"context"

	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
)

// ProductRepository puerto de persistencia versionada para Product (DIP).
// Update es condicional a la versión leída: devuelve store.ErrVersionMismatch
// si el documento cambió desde la lectura (unidad de concurrencia optimista).
type ProductRepository interface {
	Get(ctx context.Context, id string) (*entity.Product, store.Version, error)
	Create(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product, expected store.Version) (store.Version, error)
	List(ctx context.Context) ([]*entity.Product, error)
}
