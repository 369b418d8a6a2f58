package store

import (
	"context"
	"errors"
)

// Errores del puerto de almacenamiento.
var (
	// ErrNotFound no existe documento en la ruta.
	ErrNotFound = errors.New("documento no encontrado")
	// ErrVersionMismatch la versión esperada no coincide con la actual (conflicto CAS).
	ErrVersionMismatch = errors.New("la versión del documento cambió desde la lectura")
)

// Version versión monotónica por ruta. 0 significa "no existe":
// un CompareAndSwap con expected=0 es una escritura de solo-creación.
type Version int64

// Document documento versionado en una ruta del store.
type Document struct {
	Path    string
	Version Version
	Data    []byte
}

// Event notificación de cambio en una ruta.
type Event struct {
	Path    string
	Version Version
	Data    []byte
}

// Unsubscribe cancela una suscripción. Es idempotente: llamarla más de una vez no tiene efecto.
type Unsubscribe func()

// Store puerto de persistencia y notificación de cambios. Los tres servicios del
// núcleo (catálogo, órdenes, libro contable) se construyen solo sobre estas primitivas.
// El store ofrece lectura/escritura por documento y escritura condicional por versión;
// no ofrece transacciones multi-documento.
type Store interface {
	// Get devuelve el documento en path o ErrNotFound.
	Get(ctx context.Context, path string) (*Document, error)
	// Put escribe sin condición y devuelve la versión resultante.
	Put(ctx context.Context, path string, data []byte) (Version, error)
	// CompareAndSwap escribe solo si la versión actual es expected
	// (0 = crear si no existe). Devuelve ErrVersionMismatch en conflicto.
	CompareAndSwap(ctx context.Context, path string, expected Version, data []byte) (Version, error)
	// List devuelve los documentos cuyo path empieza por prefix, ordenados por path.
	List(ctx context.Context, prefix string) ([]*Document, error)
	// Subscribe registra un callback para cambios bajo prefix.
	Subscribe(prefix string, fn func(Event)) Unsubscribe
}
