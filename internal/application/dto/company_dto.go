package dto

import "time"

// CreateCompanyRequest entrada para registrar una empresa emisora.
type CreateCompanyRequest struct {
	RUC       string `json:"ruc"`
	LegalName string `json:"legal_name"`
	TradeName string `json:"trade_name"`
	Address   string `json:"address"`
	Ubigeo    string `json:"ubigeo"`
	Email     string `json:"email"`
}

// UpdateCompanySettingsRequest credenciales de envío (campos opcionales).
// Un campo nil conserva el valor actual.
type UpdateCompanySettingsRequest struct {
	Provider     *string `json:"provider"` // sunat, ose, mock
	SOLUser      *string `json:"sol_user"`
	SOLPassword  *string `json:"sol_password"`
	CertPath     *string `json:"cert_path"`
	CertPassword *string `json:"cert_password"`
	OSEURL       *string `json:"ose_url"`
	OSEToken     *string `json:"ose_token"`
}

// CompanyResponse salida de una empresa (sin credenciales).
type CompanyResponse struct {
	ID             string    `json:"id"`
	RUC            string    `json:"ruc"`
	LegalName      string    `json:"legal_name"`
	TradeName      string    `json:"trade_name,omitempty"`
	Address        string    `json:"address"`
	Ubigeo         string    `json:"ubigeo,omitempty"`
	Email          string    `json:"email,omitempty"`
	Status         string    `json:"status"`
	Provider       string    `json:"provider,omitempty"`
	HasCredentials bool      `json:"has_credentials"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
