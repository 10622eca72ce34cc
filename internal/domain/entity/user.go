package entity

import "time"

// Roles válidos para User (viajan en el claim "role" del JWT).
const (
	RoleAdmin  = "admin"    // configura la empresa, gestiona usuarios y emite
	RoleIssuer = "emisor"   // emite, reenvía y da de baja
	RoleViewer = "consulta" // solo lectura
)

// ValidRoles roles aceptados al crear usuarios o tokens.
var ValidRoles = map[string]bool{RoleAdmin: true, RoleIssuer: true, RoleViewer: true}

// User representa un operador de la API (pertenece a una Company).
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt, nunca en texto plano
	Name         string
	Role         string
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
