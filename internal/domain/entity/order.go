package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/domain/order"
)

// OrderItem línea del carrito. Inmutable una vez creada la orden: las cantidades
// reservadas en la creación son exactamente las que se liberan en la cancelación.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// StatusEntry entrada del historial de estados (log ordenado, solo-append).
type StatusEntry struct {
	Status    order.Status `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Note      string       `json:"note,omitempty"`
}

// Customer datos del cliente capturados en el checkout.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Order orden de venta. Se crea una sola vez en el checkout y solo muta a través
// de las operaciones del motor de órdenes; nunca se elimina.
type Order struct {
	ID                   string          `json:"id"` // ORDER_YYYYMMDD_NNN
	OrderNumber          string          `json:"order_number"`
	Customer             Customer        `json:"customer"`
	Items                []OrderItem     `json:"items"`
	Status               order.Status    `json:"status"`
	StatusHistory        []StatusEntry   `json:"status_history"`
	AssignedDeliveryID   string          `json:"assigned_delivery_id,omitempty"`
	AssignedDeliveryName string          `json:"assigned_delivery_name,omitempty"`
	AssignedDeliveryCode string          `json:"assigned_delivery_code,omitempty"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	DeliveryCost         decimal.Decimal `json:"delivery_cost"`
	Total                decimal.Decimal `json:"total"`
	PaymentMethod        string          `json:"payment_method"`
	StockReleased        bool            `json:"stock_released,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	AssignedAt           *time.Time      `json:"assigned_at,omitempty"`
	DeliveredAt          *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty"`
}

// AppendHistory agrega una entrada al historial. Nunca sobreescribe entradas previas.
func (o *Order) AppendHistory(st order.Status, at time.Time, note string) {
	o.StatusHistory = append(o.StatusHistory, StatusEntry{Status: st, Timestamp: at, Note: note})
}
