// Package sunat implementa la generación de XML UBL 2.1, el empaquetado ZIP y el
// cliente SOAP para comprobantes electrónicos SUNAT (Perú).
package sunat

import (
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

// SummaryBatch es un resumen diario (RC) de boletas y notas asociadas.
type SummaryBatch struct {
	Issuer        *entity.Company
	Number        int64     // correlativo del día
	ReferenceDate time.Time // fecha de emisión de los comprobantes informados
	IssueDate     time.Time
	Lines         []SummaryLine
}

// SummaryLine informa un comprobante con su condición (1 adicionar, 2 modificar, 3 anular).
type SummaryLine struct {
	Document  *entity.Document
	Condition string
}

// VoidedBatch es una comunicación de baja (RA) de facturas y notas vinculadas.
type VoidedBatch struct {
	Issuer        *entity.Company
	Number        int64
	ReferenceDate time.Time
	IssueDate     time.Time
	Lines         []VoidedLine
}

// VoidedLine identifica el comprobante dado de baja y su motivo.
type VoidedLine struct {
	DocumentType string
	Series       string
	Number       int64
	Reason       string
}

// ID devuelve el identificador "RC-YYYYMMDD-n".
func (b *SummaryBatch) ID() string { return BatchID("RC", b.IssueDate, b.Number) }

// ID devuelve el identificador "RA-YYYYMMDD-n".
func (b *VoidedBatch) ID() string { return BatchID("RA", b.IssueDate, b.Number) }

// BatchID arma el identificador de resumen o baja: prefijo, fecha de generación y correlativo diario.
func BatchID(prefix string, issue time.Time, n int64) string {
	if n <= 0 {
		n = 1
	}
	return fmt.Sprintf("%s-%s-%d", prefix, issue.Format("20060102"), n)
}
