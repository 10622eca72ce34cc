package dto

import "github.com/shopspring/decimal"

// CreateCustomerRequest body para POST /api/customers.
type CreateCustomerRequest struct {
	IdentityType   string `json:"identity_type"` // Catálogo 06
	IdentityNumber string `json:"identity_number"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	Email          string `json:"email,omitempty"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID             string `json:"id"`
	CompanyID      string `json:"company_id"`
	IdentityType   string `json:"identity_type"`
	IdentityNumber string `json:"identity_number"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	Email          string `json:"email,omitempty"`
}

// CreateDocumentRequest body para POST /api/documents.
// El correlativo lo asigna el servidor; IssueDate vacío usa la fecha actual.
type CreateDocumentRequest struct {
	Type           string                    `json:"type"` // 01, 03, 07, 08
	Series         string                    `json:"series"`
	CustomerID     string                    `json:"customer_id"`
	IssueDate      string                    `json:"issue_date,omitempty"` // YYYY-MM-DD
	DueDate        string                    `json:"due_date,omitempty"`
	Currency       string                    `json:"currency,omitempty"`
	ExchangeRate   decimal.Decimal           `json:"exchange_rate,omitempty"`
	OperationType  string                    `json:"operation_type,omitempty"`
	Note           string                    `json:"note,omitempty"`
	GlobalDiscount decimal.Decimal           `json:"global_discount"`
	Reference      *DocumentReferenceRequest `json:"reference,omitempty"`
	Items          []DocumentItemRequest     `json:"items"`
}

// DocumentReferenceRequest comprobante que modifica una nota de crédito o débito.
type DocumentReferenceRequest struct {
	Type       string `json:"type"`
	Series     string `json:"series"`
	Number     int64  `json:"number"`
	ReasonCode string `json:"reason_code"`
	Reason     string `json:"reason"`
}

// DocumentItemRequest línea del comprobante (valor unitario sin IGV).
type DocumentItemRequest struct {
	ProductCode string          `json:"product_code,omitempty"`
	Description string          `json:"description"`
	UnitCode    string          `json:"unit_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxType     string          `json:"tax_type"` // Catálogo 07
}

// DocumentResponse comprobante con totales, líneas y estado frente a SUNAT.
type DocumentResponse struct {
	ID              string                 `json:"id"`
	CompanyID       string                 `json:"company_id"`
	CustomerID      string                 `json:"customer_id"`
	Type            string                 `json:"type"`
	Series          string                 `json:"series"`
	Number          int64                  `json:"number"`
	FullNumber      string                 `json:"full_number"`
	IssueDate       string                 `json:"issue_date"`
	Currency        string                 `json:"currency"`
	Taxable         decimal.Decimal        `json:"taxable"`
	Exempt          decimal.Decimal        `json:"exempt"`
	Unaffected      decimal.Decimal        `json:"unaffected"`
	Free            decimal.Decimal        `json:"free"`
	IGV             decimal.Decimal        `json:"igv"`
	Total           decimal.Decimal        `json:"total"`
	AmountInWords   string                 `json:"amount_in_words"`
	Status          string                 `json:"status"`
	Hash            string                 `json:"hash,omitempty"`
	Ticket          string                 `json:"ticket,omitempty"`
	VoidTicket      string                 `json:"void_ticket,omitempty"`
	ResponseCode    string                 `json:"response_code,omitempty"`
	ResponseMessage string                 `json:"response_message,omitempty"`
	Notes           []string               `json:"notes,omitempty"`
	QRData          string                 `json:"qr_data,omitempty"`
	Items           []DocumentItemResponse `json:"items"`
}

// DocumentItemResponse línea calculada.
type DocumentItemResponse struct {
	ID             string          `json:"id"`
	ProductCode    string          `json:"product_code,omitempty"`
	Description    string          `json:"description"`
	UnitCode       string          `json:"unit_code"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Discount       decimal.Decimal `json:"discount"`
	TaxType        string          `json:"tax_type"`
	TaxableBase    decimal.Decimal `json:"taxable_base"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

// VoidDocumentRequest body para POST /api/documents/:id/void.
type VoidDocumentRequest struct {
	Reason string `json:"reason"`
}

// DocumentStatusDTO respuesta ligera tras un envío o una baja.
type DocumentStatusDTO struct {
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	ResponseCode    string   `json:"response_code,omitempty"`
	ResponseMessage string   `json:"response_message,omitempty"`
	Notes           []string `json:"notes,omitempty"`
	Ticket          string   `json:"ticket,omitempty"`
	VoidTicket      string   `json:"void_ticket,omitempty"`
}
