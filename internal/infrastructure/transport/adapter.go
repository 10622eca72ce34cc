// Package transport implementa los backends intercambiables de envío de comprobantes:
// SUNAT directo (SOAP), OSE (REST) y un simulador para pruebas.
package transport

import (
	"context"
	"crypto/tls"
	"errors"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// Adapter es el contrato común de los backends de envío.
// Las fallas de red, HTTP, SOAP Fault y timeouts nunca se devuelven como error:
// se normalizan en un TransportResult con estado exception.
type Adapter interface {
	Name() string
	SupportedDocumentTypes() []string
	SendDocument(ctx context.Context, doc *entity.Document) (*entity.TransportResult, error)
	QueryStatus(ctx context.Context, ticket string) (*entity.TransportResult, error)
	VoidDocument(ctx context.Context, req *entity.VoidRequest) (*entity.TransportResult, error)
}

// Signer firma el XML UBL y devuelve el sobre firmado.
type Signer interface {
	Sign(xmlBytes []byte, cert tls.Certificate) (*entity.SignedEnvelope, error)
}

// CertificateLoader obtiene el certificado del emisor (archivo .p12 o bytes en memoria).
type CertificateLoader func() (tls.Certificate, error)

var invoiceFamily = []string{
	pkgsunat.DocTypeInvoice,
	pkgsunat.DocTypeReceipt,
	pkgsunat.DocTypeCreditNote,
	pkgsunat.DocTypeDebitNote,
}

// ValidateDocument es la precondición común a todos los adaptadores.
// Falla antes de cualquier llamada de red.
func ValidateDocument(doc *entity.Document) error {
	if doc == nil {
		return &domain.ValidationError{Problems: []string{"documento requerido"}}
	}
	var errs []error
	if doc.Issuer == nil || doc.Issuer.RUC == "" {
		errs = append(errs, errors.New("el emisor no tiene RUC"))
	}
	if doc.Customer == nil {
		errs = append(errs, errors.New("el comprobante no tiene cliente"))
	}
	if len(doc.Items) == 0 {
		errs = append(errs, errors.New("el comprobante debe tener al menos una línea"))
	}
	if len(errs) > 0 {
		return domain.NewValidationError(errors.Join(errs...))
	}
	return nil
}

func validateVoidRequest(req *entity.VoidRequest) error {
	if req == nil || req.Document == nil {
		return &domain.ValidationError{Problems: []string{"solicitud de baja sin documento"}}
	}
	var errs []error
	if req.Document.Issuer == nil || req.Document.Issuer.RUC == "" {
		errs = append(errs, errors.New("el emisor no tiene RUC"))
	}
	if req.Reason == "" {
		errs = append(errs, errors.New("el motivo de baja es obligatorio"))
	}
	if len(errs) > 0 {
		return domain.NewValidationError(errors.Join(errs...))
	}
	return nil
}

// exceptionResult normaliza una falla de transporte en un resultado con estado exception.
func exceptionResult(code, message string) *entity.TransportResult {
	return &entity.TransportResult{
		Success:         false,
		Status:          entity.DocumentStatusException,
		ResponseCode:    code,
		ResponseMessage: message,
	}
}

// isSuccess: aceptado u observado (aceptado con observaciones).
func isSuccess(status string) bool {
	return status == entity.DocumentStatusAccepted || status == entity.DocumentStatusObserved
}
