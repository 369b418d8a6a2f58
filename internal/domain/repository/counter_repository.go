package repository

import (
	"context"
	"time"
)

// CounterRepository secuencias por día para identificadores legibles y
// ordenables por fecha (ORDER_YYYYMMDD_NNN, TXN_YYYYMMDD_NNNN).
type CounterRepository interface {
	// Next incrementa y devuelve el consecutivo del contador name para el día date.
	// El incremento es una escritura condicional: dos llamadas concurrentes nunca
	// obtienen el mismo valor.
	Next(ctx context.Context, name string, date time.Time) (int, error)
}
