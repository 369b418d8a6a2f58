package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo repositorio de órdenes sobre el store de documentos.
type OrderRepo struct {
	st store.Store
}

// NewOrderRepository construye el adaptador de órdenes.
func NewOrderRepository(st store.Store) *OrderRepo {
	return &OrderRepo{st: st}
}

// Get devuelve la orden y la versión leída.
func (r *OrderRepo) Get(ctx context.Context, id string) (*entity.Order, store.Version, error) {
	doc, err := r.st.Get(ctx, orderPath(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get order: %w", err)
	}
	var o entity.Order
	if err := json.Unmarshal(doc.Data, &o); err != nil {
		return nil, 0, fmt.Errorf("decode order %s: %w", id, err)
	}
	return &o, doc.Version, nil
}

// Create escritura de solo-creación; las órdenes nunca se sobreescriben al crearse.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if _, err := r.st.CompareAndSwap(ctx, orderPath(o.ID), 0, data); err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// Update escritura condicional; el historial se reescribe completo junto con la
// orden, por lo que un append concurrente perdido es imposible: el perdedor
// recibe store.ErrVersionMismatch y reintenta sobre el estado fresco.
func (r *OrderRepo) Update(ctx context.Context, o *entity.Order, expected store.Version) (store.Version, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return 0, fmt.Errorf("encode order: %w", err)
	}
	v, err := r.st.CompareAndSwap(ctx, orderPath(o.ID), expected, data)
	if err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return 0, store.ErrVersionMismatch
		}
		return 0, fmt.Errorf("update order: %w", err)
	}
	return v, nil
}

// List devuelve todas las órdenes ordenadas por ID (los IDs son ordenables por fecha).
func (r *OrderRepo) List(ctx context.Context) ([]*entity.Order, error) {
	docs, err := r.st.List(ctx, PrefixOrders)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]*entity.Order, 0, len(docs))
	for _, doc := range docs {
		var o entity.Order
		if err := json.Unmarshal(doc.Data, &o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", doc.Path, err)
		}
		out = append(out, &o)
	}
	return out, nil
}
