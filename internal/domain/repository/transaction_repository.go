package repository

import (
	"context"

	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
)

// TransactionRepository puerto de persistencia para el libro contable (solo-append).
type TransactionRepository interface {
	Get(ctx context.Context, id string) (*entity.Transaction, store.Version, error)
	// Create es de solo-creación: una transacción nunca se sobreescribe.
	Create(ctx context.Context, t *entity.Transaction) error
	// Update solo existe para el void/edición explícita de un operador.
	Update(ctx context.Context, t *entity.Transaction, expected store.Version) (store.Version, error)
	List(ctx context.Context) ([]*entity.Transaction, error)
	// ReserveSaleSlot reclama la clave de idempotencia orderID -> txnID para la
	// venta automática. Devuelve domain.ErrDuplicate si otra llamada ya la reclamó.
	ReserveSaleSlot(ctx context.Context, orderID, txnID string) error
	// SaleByOrderID devuelve el ID de la venta automática registrada para la orden,
	// o domain.ErrNotFound si no hay posteo.
	SaleByOrderID(ctx context.Context, orderID string) (string, error)
}
