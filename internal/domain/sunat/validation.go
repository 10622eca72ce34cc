package sunat

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

var (
	invoiceSeries = regexp.MustCompile(`^F[A-Z0-9]{3}$`)
	receiptSeries = regexp.MustCompile(`^B[A-Z0-9]{3}$`)
)

// VariousCustomerLimit es el monto máximo de una boleta emitida a "Varios" sin identificar al cliente.
var VariousCustomerLimit = decimal.NewFromInt(700)

var supportedCurrencies = map[string]bool{
	pkgsunat.CurrencyPEN: true, pkgsunat.CurrencyUSD: true, pkgsunat.CurrencyEUR: true,
}

// ValidateDocument aplica las reglas de SUNAT previas al envío: RUC del emisor,
// tipo de documento contra identidad del cliente, serie y referencia de notas.
// Los problemas se agrupan en un *domain.ValidationError.
func ValidateDocument(doc *entity.Document) error {
	if doc == nil {
		return &domain.ValidationError{Problems: []string{"documento nulo"}}
	}
	var errs []error

	if doc.Issuer == nil {
		errs = append(errs, errors.New("emisor no resuelto"))
	} else if err := pkgsunat.ValidateRUC(doc.Issuer.RUC); err != nil {
		errs = append(errs, fmt.Errorf("emisor: %w", err))
	}

	switch doc.Type {
	case pkgsunat.DocTypeInvoice, pkgsunat.DocTypeReceipt, pkgsunat.DocTypeCreditNote, pkgsunat.DocTypeDebitNote:
	default:
		return &domain.UnsupportedDocumentTypeError{Type: doc.Type}
	}

	if len(doc.Items) == 0 {
		errs = append(errs, errors.New("el comprobante debe tener al menos una línea"))
	}
	if !supportedCurrencies[doc.Currency] {
		errs = append(errs, fmt.Errorf("moneda no soportada %q", doc.Currency))
	}
	if doc.Number <= 0 {
		errs = append(errs, errors.New("correlativo no asignado"))
	}

	// familia que determina serie e identidad: la propia o la del documento referenciado
	family := doc.Type
	if doc.IsNote() {
		if err := validateReference(doc); err != nil {
			errs = append(errs, err)
		} else {
			family = doc.Reference.Type
		}
	}
	switch family {
	case pkgsunat.DocTypeInvoice:
		if !invoiceSeries.MatchString(doc.Series) {
			errs = append(errs, fmt.Errorf("serie %q inválida para factura (F + 3 caracteres)", doc.Series))
		}
	case pkgsunat.DocTypeReceipt:
		if !receiptSeries.MatchString(doc.Series) {
			errs = append(errs, fmt.Errorf("serie %q inválida para boleta (B + 3 caracteres)", doc.Series))
		}
	}

	if doc.Customer == nil {
		errs = append(errs, errors.New("cliente no resuelto"))
	} else {
		errs = append(errs, validateCustomer(doc, family)...)
	}

	if len(errs) > 0 {
		return domain.NewValidationError(errors.Join(errs...))
	}
	return nil
}

func validateCustomer(doc *entity.Document, family string) []error {
	var errs []error
	c := doc.Customer
	if err := pkgsunat.ValidateIdentity(c.IdentityType, c.IdentityNumber); err != nil {
		errs = append(errs, fmt.Errorf("cliente: %w", err))
	}
	if c.Name == "" {
		errs = append(errs, errors.New("cliente: razón social o nombre requerido"))
	}
	if family == pkgsunat.DocTypeInvoice {
		export := doc.OperationType == pkgsunat.OperationExportGoods ||
			doc.OperationType == pkgsunat.OperationExportServ ||
			doc.OperationType == pkgsunat.OperationNonDomiciled
		if c.IdentityType != pkgsunat.IdentityRUC && !(export && c.IdentityType != pkgsunat.IdentityVarious) {
			errs = append(errs, fmt.Errorf("cliente: la factura requiere un adquirente con RUC (tipo %s)", c.IdentityType))
		}
	}
	if family == pkgsunat.DocTypeReceipt && c.IdentityType == pkgsunat.IdentityVarious &&
		doc.Totals.Total.GreaterThanOrEqual(VariousCustomerLimit) {
		errs = append(errs, fmt.Errorf("cliente: boletas desde S/ %s requieren identificar al adquirente", VariousCustomerLimit.String()))
	}
	return errs
}

func validateReference(doc *entity.Document) error {
	ref := doc.Reference
	if ref == nil {
		return errors.New("la nota requiere el comprobante de referencia")
	}
	if ref.Type != pkgsunat.DocTypeInvoice && ref.Type != pkgsunat.DocTypeReceipt {
		return fmt.Errorf("referencia: tipo %q no admite notas", ref.Type)
	}
	if ref.Series == "" || ref.Number <= 0 {
		return errors.New("referencia: serie y número requeridos")
	}
	if ref.Reason == "" {
		return errors.New("referencia: sustento requerido")
	}
	reasons := pkgsunat.ValidCreditNoteReasons
	if doc.Type == pkgsunat.DocTypeDebitNote {
		reasons = pkgsunat.ValidDebitNoteReasons
	}
	if !reasons[ref.ReasonCode] {
		return fmt.Errorf("referencia: motivo %q inválido", ref.ReasonCode)
	}
	return nil
}
