package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/pkg/occ"
)

var _ repository.CounterRepository = (*CounterRepo)(nil)

// CounterRepo secuencias por día vía incremento condicional sobre el store.
type CounterRepo struct {
	st    store.Store
	retry occ.Config
}

// NewCounterRepository construye el adaptador de contadores.
func NewCounterRepository(st store.Store, retry occ.Config) *CounterRepo {
	return &CounterRepo{st: st, retry: retry}
}

type counterDoc struct {
	Value int `json:"value"`
}

// Next incrementa el contador con lectura + CAS y reintento acotado; dos llamadas
// concurrentes nunca reciben el mismo consecutivo.
func (r *CounterRepo) Next(ctx context.Context, name string, date time.Time) (int, error) {
	path := counterPath(name, date)
	var next int
	err := r.retry.Run(ctx,
		func(err error) bool { return errors.Is(err, store.ErrVersionMismatch) },
		func() error {
			var current counterDoc
			var version store.Version
			doc, err := r.st.Get(ctx, path)
			switch {
			case err == nil:
				version = doc.Version
				if err := json.Unmarshal(doc.Data, &current); err != nil {
					return fmt.Errorf("decode counter %s: %w", path, err)
				}
			case errors.Is(err, store.ErrNotFound):
				version = 0
			default:
				return fmt.Errorf("get counter: %w", err)
			}

			next = current.Value + 1
			data, err := json.Marshal(counterDoc{Value: next})
			if err != nil {
				return fmt.Errorf("encode counter: %w", err)
			}
			_, err = r.st.CompareAndSwap(ctx, path, version, data)
			return err
		})
	if err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return 0, domain.ErrWriteConflict
		}
		return 0, err
	}
	return next, nil
}
