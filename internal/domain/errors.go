package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrProductUnavailable = errors.New("producto no disponible")
	ErrInvalidTransition  = errors.New("transición de estado no permitida")
	ErrPrecondition       = errors.New("precondición no cumplida")
	ErrAlreadyCancelled   = errors.New("la orden ya fue cancelada")
	ErrAlreadyDelivered   = errors.New("la orden ya fue entregada")
	ErrWriteConflict      = errors.New("conflicto de escritura: reintentos agotados")
)

// InsufficientStockError identifica la primera línea del carrito sin stock suficiente.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: solicitado %d, disponible %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ProductUnavailableError producto inexistente, inactivo o deshabilitado en el carrito.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("producto no disponible: %s", e.ProductID)
}

func (e *ProductUnavailableError) Unwrap() error { return ErrProductUnavailable }

// InvalidTransitionError transición rechazada por la tabla central de estados.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transición no permitida: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PreconditionError precondición de negocio no cumplida (ej: repartidor sin asignar antes de on_way).
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondición no cumplida: %s", e.Reason)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }
