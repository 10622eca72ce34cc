package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un comprobante frente a SUNAT.
const (
	DocumentStatusDraft     = "draft"     // Registrado con correlativo, aún no enviado
	DocumentStatusPending   = "pending"   // Enviado o con ticket, sin respuesta definitiva
	DocumentStatusAccepted  = "accepted"  // CDR con código 0
	DocumentStatusRejected  = "rejected"  // Códigos 2000-3999
	DocumentStatusObserved  = "observed"  // Aceptado con observaciones (>= 4000)
	DocumentStatusException = "exception" // Códigos 100-1999, fallas de red o SOAP Fault
	DocumentStatusVoided    = "voided"    // Baja aceptada
)

// Document es el comprobante electrónico (factura, boleta, nota de crédito o débito).
// Issuer y Customer son copias resueltas al momento de construir la vista de envío.
type Document struct {
	ID             string
	CompanyID      string
	CustomerID     string
	Type           string // Catálogo 01
	Series         string
	Number         int64
	IssueDate      time.Time
	DueDate        *time.Time
	Currency       string
	ExchangeRate   decimal.Decimal
	OperationType  string // Catálogo 51
	Note           string
	GlobalDiscount decimal.Decimal
	Totals         DocumentTotals
	Items          []LineItem
	Reference      *DocumentReference

	Issuer   *Company
	Customer *Customer

	Status          string
	Hash            string
	Ticket          string
	VoidTicket      string
	VoidReason      string
	ResponseCode    string
	ResponseMessage string
	Notes           []string
	SignedXML       string
	CDR             []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DocumentTotals son los totales agregados del comprobante.
type DocumentTotals struct {
	Taxable        decimal.Decimal
	Exempt         decimal.Decimal
	Unaffected     decimal.Decimal
	Free           decimal.Decimal
	IGV            decimal.Decimal
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	GlobalDiscount decimal.Decimal
}

// DocumentReference apunta al comprobante que modifica una nota de crédito o débito.
type DocumentReference struct {
	Type       string
	Series     string
	Number     int64
	ReasonCode string // Catálogo 09 (NC) o 10 (ND)
	Reason     string
}

// FullNumber devuelve el identificador legal "serie-número".
func (d *Document) FullNumber() string {
	return d.Series + "-" + formatNumber(d.Number)
}

// FullNumber devuelve "serie-número" del documento referenciado.
func (r *DocumentReference) FullNumber() string {
	return r.Series + "-" + formatNumber(r.Number)
}

// IsNote indica si el documento es una nota de crédito o débito.
func (d *Document) IsNote() bool {
	return d.Type == "07" || d.Type == "08"
}

// IsReceiptFamily indica si es una boleta o una nota que modifica una boleta.
// Estos comprobantes se informan y se anulan por resumen diario (RC).
func (d *Document) IsReceiptFamily() bool {
	if d.Type == "03" {
		return true
	}
	return d.IsNote() && d.Reference != nil && d.Reference.Type == "03"
}
