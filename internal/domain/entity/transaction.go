package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos y categorías de transacción.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"

	CategorySale              = "sale"
	CategoryInventoryPurchase = "inventory-purchase"
	CategorySalary            = "salary"
	CategoryOverhead          = "overhead"
)

// TransactionLine desglose por producto de una transacción (venta o compra de inventario).
type TransactionLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price,omitempty"`
	UnitCost  decimal.Decimal `json:"unit_cost,omitempty"`
}

// Transaction registro financiero del libro contable (solo-append). Las ventas
// automáticas son 1:1 con órdenes entregadas: OrderID es su clave de idempotencia.
type Transaction struct {
	ID          string            `json:"id"`   // TXN_YYYYMMDD_NNNN
	Type        string            `json:"type"` // income | expense
	Category    string            `json:"category"`
	Amount      decimal.Decimal   `json:"amount"`
	Date        time.Time         `json:"date"`
	OrderID     string            `json:"order_id,omitempty"`
	Description string            `json:"description,omitempty"`
	IsAutomatic bool              `json:"is_automatic"`
	Products    []TransactionLine `json:"products,omitempty"`
	Voided      bool              `json:"voided"`
	VoidReason  string            `json:"void_reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
