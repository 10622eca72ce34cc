package entity

import "time"

// Customer representa un cliente (adquirente) de la empresa.
type Customer struct {
	ID             string
	CompanyID      string
	IdentityType   string // Catálogo 06: 6 RUC, 1 DNI, 4 CE, 7 Pasaporte, 0 No domiciliado, - Varios
	IdentityNumber string
	Name           string
	Address        string
	Email          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
