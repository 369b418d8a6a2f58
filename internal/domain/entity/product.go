package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto vendible del catálogo. Stock es unidades enteras; Disponible
// es un flag derivado (ver RecomputeAvailability) y Active es borrado lógico:
// los productos nunca se eliminan físicamente.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Cost          decimal.Decimal `json:"cost"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	MinStock      int             `json:"min_stock"`
	Discount      decimal.Decimal `json:"discount"` // porcentaje 0..100
	Disponible    bool            `json:"disponible"`
	OutOfStock    bool            `json:"out_of_stock"`
	ForceDisabled bool            `json:"force_disabled"` // apagado manual por operador
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RecomputeAvailability recalcula los flags derivados tras cualquier mutación de stock.
// Invariante: Disponible == false siempre que Stock == 0; OutOfStock refleja Stock == 0.
func (p *Product) RecomputeAvailability() {
	p.OutOfStock = p.Stock == 0
	p.Disponible = p.Stock > 0 && p.Active && !p.ForceDisabled
}

// Sellable indica si el producto acepta reservas de stock.
func (p *Product) Sellable() bool {
	return p.Active && p.Disponible && !p.ForceDisabled
}

// SalePrice precio de venta con el descuento del producto aplicado.
func (p *Product) SalePrice() decimal.Decimal {
	if p.Discount.IsZero() {
		return p.Price
	}
	factor := decimal.NewFromInt(100).Sub(p.Discount).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}
