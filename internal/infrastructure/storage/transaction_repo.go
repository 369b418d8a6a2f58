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

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo repositorio del libro contable sobre el store de documentos.
type TransactionRepo struct {
	st store.Store
}

// NewTransactionRepository construye el adaptador de transacciones.
func NewTransactionRepository(st store.Store) *TransactionRepo {
	return &TransactionRepo{st: st}
}

// Get devuelve la transacción y la versión leída.
func (r *TransactionRepo) Get(ctx context.Context, id string) (*entity.Transaction, store.Version, error) {
	doc, err := r.st.Get(ctx, transactionPath(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get transaction: %w", err)
	}
	var t entity.Transaction
	if err := json.Unmarshal(doc.Data, &t); err != nil {
		return nil, 0, fmt.Errorf("decode transaction %s: %w", id, err)
	}
	return &t, doc.Version, nil
}

// Create escritura de solo-creación: una transacción nunca se sobreescribe.
func (r *TransactionRepo) Create(ctx context.Context, t *entity.Transaction) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	if _, err := r.st.CompareAndSwap(ctx, transactionPath(t.ID), 0, data); err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// Update solo para void/edición explícita de un operador.
func (r *TransactionRepo) Update(ctx context.Context, t *entity.Transaction, expected store.Version) (store.Version, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("encode transaction: %w", err)
	}
	v, err := r.st.CompareAndSwap(ctx, transactionPath(t.ID), expected, data)
	if err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return 0, store.ErrVersionMismatch
		}
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	return v, nil
}

// List devuelve todas las transacciones ordenadas por ID (ordenables por fecha).
func (r *TransactionRepo) List(ctx context.Context) ([]*entity.Transaction, error) {
	docs, err := r.st.List(ctx, PrefixTransactions)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]*entity.Transaction, 0, len(docs))
	for _, doc := range docs {
		var t entity.Transaction
		if err := json.Unmarshal(doc.Data, &t); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", doc.Path, err)
		}
		out = append(out, &t)
	}
	return out, nil
}

type saleSlot struct {
	TxnID string `json:"txn_id"`
}

// ReserveSaleSlot reclama la clave de idempotencia orderID -> txnID con una
// escritura de solo-creación. El perdedor de una carrera recibe domain.ErrDuplicate:
// nunca hay dos ventas automáticas para la misma orden.
func (r *TransactionRepo) ReserveSaleSlot(ctx context.Context, orderID, txnID string) error {
	data, err := json.Marshal(saleSlot{TxnID: txnID})
	if err != nil {
		return fmt.Errorf("encode sale slot: %w", err)
	}
	if _, err := r.st.CompareAndSwap(ctx, saleIndexPath(orderID), 0, data); err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("reserve sale slot: %w", err)
	}
	return nil
}

// SaleByOrderID devuelve el ID de la venta automática registrada para la orden.
func (r *TransactionRepo) SaleByOrderID(ctx context.Context, orderID string) (string, error) {
	doc, err := r.st.Get(ctx, saleIndexPath(orderID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get sale slot: %w", err)
	}
	var slot saleSlot
	if err := json.Unmarshal(doc.Data, &slot); err != nil {
		return "", fmt.Errorf("decode sale slot %s: %w", orderID, err)
	}
	return slot.TxnID, nil
}
