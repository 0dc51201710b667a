package entity

import "time"

// Roles de usuario.
const (
	RoleAdmin      = "admin"
	RoleFacturador = "facturador"
	RoleBodeguero  = "bodeguero"
)

// Estados de usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario del sistema asociado a una empresa.
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	Status       string // ver UserStatus*
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
