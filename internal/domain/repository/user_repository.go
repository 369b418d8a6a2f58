package repository

import (
	"context"

	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
)

// UserRepository puerto de persistencia para usuarios administrativos.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}
