package entity

import "github.com/shopspring/decimal"

// Buckets tributarios a los que se acumula una línea.
const (
	BucketTaxable    = "taxable"
	BucketExempt     = "exempt"
	BucketUnaffected = "unaffected"
	BucketFree       = "free"
	BucketExport     = "export"
)

// LineItem representa una línea de detalle del comprobante.
// Los campos derivados los completa la calculadora de impuestos.
type LineItem struct {
	ID          string
	DocumentID  string
	ProductCode string
	Description string
	UnitCode    string // Catálogo 03
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal // sin IGV
	Discount    decimal.Decimal
	TaxType     string // Catálogo 07

	TaxableBase    decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	IsFree         bool
	ReferencePrice decimal.Decimal // precio unitario con IGV (o valor referencial si es gratuito)
	Bucket         string
}
