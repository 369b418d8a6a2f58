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

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo repositorio de productos sobre el store de documentos.
type ProductRepo struct {
	st store.Store
}

// NewProductRepository construye el adaptador de productos.
func NewProductRepository(st store.Store) *ProductRepo {
	return &ProductRepo{st: st}
}

// Get devuelve el producto y la versión leída (para escritura condicional posterior).
func (r *ProductRepo) Get(ctx context.Context, id string) (*entity.Product, store.Version, error) {
	doc, err := r.st.Get(ctx, productPath(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get product: %w", err)
	}
	var p entity.Product
	if err := json.Unmarshal(doc.Data, &p); err != nil {
		return nil, 0, fmt.Errorf("decode product %s: %w", id, err)
	}
	return &p, doc.Version, nil
}

// Create escritura de solo-creación; domain.ErrDuplicate si el ID ya existe.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	if _, err := r.st.CompareAndSwap(ctx, productPath(p.ID), 0, data); err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update escritura condicional a la versión leída; store.ErrVersionMismatch en conflicto.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product, expected store.Version) (store.Version, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encode product: %w", err)
	}
	v, err := r.st.CompareAndSwap(ctx, productPath(p.ID), expected, data)
	if err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return 0, store.ErrVersionMismatch
		}
		return 0, fmt.Errorf("update product: %w", err)
	}
	return v, nil
}

// List devuelve todos los productos (activos e inactivos; el filtro es del caller).
func (r *ProductRepo) List(ctx context.Context) ([]*entity.Product, error) {
	docs, err := r.st.List(ctx, PrefixProducts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]*entity.Product, 0, len(docs))
	for _, doc := range docs {
		var p entity.Product
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", doc.Path, err)
		}
		out = append(out, &p)
	}
	return out, nil
}
