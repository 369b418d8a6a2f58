package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest alta de producto por un operador.
type CreateProductRequest struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Cost     decimal.Decimal `json:"cost"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	MinStock int             `json:"min_stock"`
	Discount decimal.Decimal `json:"discount"`
}

// UpdateProductRequest actualización parcial; Stock no se toca aquí
// (muta solo vía reservas, liberaciones y compras de inventario).
type UpdateProductRequest struct {
	Name          *string          `json:"name"`
	Category      *string          `json:"category"`
	Cost          *decimal.Decimal `json:"cost"`
	Price         *decimal.Decimal `json:"price"`
	MinStock      *int             `json:"min_stock"`
	Discount      *decimal.Decimal `json:"discount"`
	ForceDisabled *bool            `json:"force_disabled"`
}

// ProductResponse vista administrativa completa (incluye costo y margen).
type ProductResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Cost          decimal.Decimal `json:"cost"`
	Price         decimal.Decimal `json:"price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int             `json:"stock"`
	MinStock      int             `json:"min_stock"`
	Discount      decimal.Decimal `json:"discount"`
	Disponible    bool            `json:"disponible"`
	OutOfStock    bool            `json:"out_of_stock"`
	ForceDisabled bool            `json:"force_disabled"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PublicProductResponse vista del catálogo para el checkout de clientes:
// nunca expone costo ni margen.
type PublicProductResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	Discount   decimal.Decimal `json:"discount"`
	Stock      int             `json:"stock"`
	Disponible bool            `json:"disponible"`
}
