package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/repository"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo repositorio de usuarios administrativos, indexado por email.
type UserRepo struct {
	st store.Store
}

// NewUserRepository construye el adaptador de usuarios.
func NewUserRepository(st store.Store) *UserRepo {
	return &UserRepo{st: st}
}

func userPath(email string) string {
	return PrefixUsers + url.PathEscape(email)
}

// Create registra un usuario; domain.ErrEmailAlreadyExists si el email está tomado.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if _, err := r.st.CompareAndSwap(ctx, userPath(u.Email), 0, data); err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail devuelve el usuario o domain.ErrUserNotFound.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	doc, err := r.st.Get(ctx, userPath(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u entity.User
	if err := json.Unmarshal(doc.Data, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", email, err)
	}
	return &u, nil
}
