package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
)

// ExpenseLine línea de producto de una compra de inventario.
type ExpenseLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// RecordExpenseRequest registro manual de un egreso. Para category
// "inventory-purchase" las líneas de producto incrementan stock en la misma
// operación lógica.
type RecordExpenseRequest struct {
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        *time.Time      `json:"date"`
	Products    []ExpenseLine   `json:"products"`
}

// RecordIncomeRequest registro manual de un ingreso (no automático).
type RecordIncomeRequest struct {
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        *time.Time      `json:"date"`
}

// VoidTransactionRequest anulación explícita por un operador.
type VoidTransactionRequest struct {
	Reason string `json:"reason"`
}

// TransactionResponse vista de una transacción del libro contable.
type TransactionResponse struct {
	ID          string                   `json:"id"`
	Type        string                   `json:"type"`
	Category    string                   `json:"category"`
	Amount      decimal.Decimal          `json:"amount"`
	Date        time.Time                `json:"date"`
	OrderID     string                   `json:"order_id,omitempty"`
	Description string                   `json:"description,omitempty"`
	IsAutomatic bool                     `json:"is_automatic"`
	Products    []entity.TransactionLine `json:"products,omitempty"`
	Voided      bool                     `json:"voided"`
	VoidReason  string                   `json:"void_reason,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}
