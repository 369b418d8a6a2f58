package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
)

// CartItem línea del carrito de checkout.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest checkout de un cliente.
type CreateOrderRequest struct {
	Items         []CartItem       `json:"items"`
	Customer      entity.Customer  `json:"customer"`
	PaymentMethod string           `json:"payment_method"`
	DeliveryCost  *decimal.Decimal `json:"delivery_cost"`
}

// OrderCreatedResponse confirmación de creación.
type OrderCreatedResponse struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Total       decimal.Decimal `json:"total"`
}

// UpdateStatusRequest cambio de estado por el panel administrativo.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// AssignDeliveryRequest asignación de repartidor.
type AssignDeliveryRequest struct {
	DeliveryID   string `json:"delivery_id"`
	DeliveryName string `json:"delivery_name"`
	DeliveryCode string `json:"delivery_code"`
}

// OrderStatusResponse resultado de una transición (incluye los no-op idempotentes).
type OrderStatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"` // ALREADY_DELIVERED | ALREADY_CANCELLED en no-ops
}

// OrderResponse vista completa de una orden.
type OrderResponse struct {
	ID                   string               `json:"id"`
	OrderNumber          string               `json:"order_number"`
	Customer             entity.Customer      `json:"customer"`
	Items                []entity.OrderItem   `json:"items"`
	Status               string               `json:"status"`
	StatusHistory        []entity.StatusEntry `json:"status_history"`
	AssignedDeliveryID   string               `json:"assigned_delivery_id,omitempty"`
	AssignedDeliveryName string               `json:"assigned_delivery_name,omitempty"`
	AssignedDeliveryCode string               `json:"assigned_delivery_code,omitempty"`
	Subtotal             decimal.Decimal      `json:"subtotal"`
	DeliveryCost         decimal.Decimal      `json:"delivery_cost"`
	Total                decimal.Decimal      `json:"total"`
	PaymentMethod        string               `json:"payment_method"`
	CreatedAt            time.Time            `json:"created_at"`
	AssignedAt           *time.Time           `json:"assigned_at,omitempty"`
	DeliveredAt          *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt          *time.Time           `json:"cancelled_at,omitempty"`
}
