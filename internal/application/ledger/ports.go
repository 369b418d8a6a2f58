package ledger

import (
	"context"

	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
)

// Inventory operaciones del catálogo que necesita el registro de compras de
// inventario.
type Inventory interface {
	Restock(ctx context.Context, lines []catalog.RestockLine) error
	UnwindRestock(ctx context.Context, lines []catalog.RestockLine) error
}
