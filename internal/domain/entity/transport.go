package entity

import (
	"strconv"
	"time"
)

// SignedEnvelope es el artefacto del firmado: XML original, XML firmado y DigestValue.
type SignedEnvelope struct {
	RawXML      []byte
	SignedXML   []byte
	DigestValue string
}

// TransportResult es el resultado de un intento de envío a SUNAT u OSE.
type TransportResult struct {
	Success         bool
	Status          string
	ResponseCode    string
	ResponseMessage string
	Notes           []string
	Ticket          string
	Hash            string
	SignedXML       []byte
	CDR             []byte
}

// VoidRequest solicita la comunicación de baja de un comprobante aceptado.
type VoidRequest struct {
	Document    *Document
	Reason      string
	BatchNumber int64 // correlativo diario del lote RA/RC
	IssueDate   time.Time
}

func formatNumber(n int64) string {
	return strconv.FormatInt(n, 10)
}
