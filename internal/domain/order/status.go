package order

import "fmt"

// Status estado del ciclo de vida de una orden. Enum cerrado: las comparaciones
// ad hoc con strings quedan prohibidas fuera de este paquete.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusAssigned  Status = "assigned"
	StatusOnWay     Status = "on_way"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// transitions tabla central de transiciones permitidas. Cualquier estado no
// terminal puede pasar a cancelled; delivered y cancelled no tienen salida.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusOnWay, StatusCancelled},
	StatusOnWay:     {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Parse valida un string contra el enum.
func Parse(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("estado desconocido: %q", s)
	}
	return st, nil
}

// Valid indica si el estado pertenece al enum.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal indica si no existen transiciones de salida.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition consulta la tabla central de transiciones.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
