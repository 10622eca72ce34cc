package entity

import "time"

// Proveedores de transporte disponibles por empresa.
const (
	ProviderSUNAT = "sunat"
	ProviderOSE   = "ose"
	ProviderMock  = "mock"
)

// Company representa una empresa emisora (tenant) y sus credenciales de envío.
type Company struct {
	ID        string
	RUC       string
	LegalName string
	TradeName string
	Address   string
	Ubigeo    string // Código de ubicación geográfica (INEI)
	Email     string
	Status    string // active, suspended, inactive

	Provider     string
	SOLUser      string
	SOLPassword  string
	CertPath     string
	CertPassword string
	OSEURL       string
	OSEToken     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName prefiere el nombre comercial sobre la razón social.
func (c *Company) DisplayName() string {
	if c.TradeName != "" {
		return c.TradeName
	}
	return c.LegalName
}
