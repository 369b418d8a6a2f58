package entity

import "time"

// Roles de usuario administrativo.
const (
	RoleAdmin    = "admin"
	RoleDispatch = "dispatch"
)

// User usuario del panel administrativo.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
