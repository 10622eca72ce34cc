package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// Namespaces UBL 2.1 y extensiones SUNAT.
const (
	NsInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NsDebitNote  = "urn:oasis:names:specification:ubl:schema:xsd:DebitNote-2"
	NsCac        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt        = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsDs         = "http://www.w3.org/2000/09/xmldsig#"
	NsSac        = "urn:sunat:names:specification:ubl:peru:schema:xsd:SunatAggregateComponents-1"
	NsSummary    = "urn:sunat:names:specification:ubl:peru:schema:xsd:SummaryDocuments-1"
	NsVoided     = "urn:sunat:names:specification:ubl:peru:schema:xsd:VoidedDocuments-1"

	// SignatureID es el Id de ds:Signature referenciado desde cac:Signature.
	SignatureID = "SignatureSP"

	catalogueURI = "urn:pe:gob:sunat:cpe:see:gem:catalogos:catalogo"
)

// docSchema describe las diferencias de estructura entre Invoice, CreditNote y DebitNote.
type docSchema struct {
	root          string
	namespace     string
	lineElement   string
	quantityName  string
	monetaryTotal string
	typeCode      bool
}

var schemas = map[string]docSchema{
	pkgsunat.DocTypeInvoice:    {"Invoice", NsInvoice, "cac:InvoiceLine", "InvoicedQuantity", "cac:LegalMonetaryTotal", true},
	pkgsunat.DocTypeReceipt:    {"Invoice", NsInvoice, "cac:InvoiceLine", "InvoicedQuantity", "cac:LegalMonetaryTotal", true},
	pkgsunat.DocTypeCreditNote: {"CreditNote", NsCreditNote, "cac:CreditNoteLine", "CreditedQuantity", "cac:LegalMonetaryTotal", false},
	pkgsunat.DocTypeDebitNote:  {"DebitNote", NsDebitNote, "cac:DebitNoteLine", "DebitedQuantity", "cac:RequestedMonetaryTotal", false},
}

// XMLBuilderService construye el XML UBL 2.1 (sin firma) de los comprobantes SUNAT.
// Es determinista y no tiene efectos secundarios.
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el XML según el tipo de documento (01/03 Invoice, 07 CreditNote, 08 DebitNote).
// Un tipo sin esquema devuelve *domain.UnsupportedDocumentTypeError.
func (s *XMLBuilderService) Build(doc *entity.Document) ([]byte, error) {
	if doc == nil || doc.Issuer == nil || doc.Customer == nil {
		return nil, fmt.Errorf("sunat: faltan documento, emisor o cliente")
	}
	schema, ok := schemas[doc.Type]
	if !ok {
		return nil, &domain.UnsupportedDocumentTypeError{Type: doc.Type}
	}
	if doc.IsNote() && doc.Reference == nil {
		return nil, fmt.Errorf("sunat: la nota %s no tiene documento de referencia", doc.FullNumber())
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &ublWriter{enc: xml.NewEncoder(&buf)}
	currency := doc.Currency

	w.start(schema.root, rootAttrs(schema.namespace)...)

	// ext:UBLExtensions siempre como primer hijo: el firmador inyecta ds:Signature aquí
	writeUBLExtensions(w)

	w.writeCbc("UBLVersionID", "2.1")
	w.writeCbc("CustomizationID", "2.0")
	w.writeCbc("ID", doc.FullNumber())
	w.writeCbc("IssueDate", doc.IssueDate.Format("2006-01-02"))
	w.writeCbc("IssueTime", doc.IssueDate.Format("15:04:05"))
	if schema.typeCode {
		if doc.DueDate != nil {
			w.writeCbc("DueDate", doc.DueDate.Format("2006-01-02"))
		}
		operation := doc.OperationType
		if operation == "" {
			operation = pkgsunat.OperationInternalSale
		}
		w.writeCbc("InvoiceTypeCode", doc.Type,
			attr("listID", operation),
			attr("listAgencyName", "PE:SUNAT"),
			attr("listName", "Tipo de Documento"),
			attr("listURI", catalogueURI+"01"))
	}
	if doc.Note != "" {
		w.writeCbc("Note", doc.Note)
	}
	w.writeCbc("Note", pkgsunat.AmountInWords(doc.Totals.Total, currency), attr("languageLocaleID", "1000"))
	w.writeCbc("DocumentCurrencyCode", currency,
		attr("listID", "ISO 4217 Alpha"),
		attr("listName", "Currency"),
		attr("listAgencyName", "United Nations Economic Commission for Europe"))

	if doc.IsNote() {
		writeDiscrepancy(w, doc.Reference)
	}

	writeSignatureReference(w, doc.Issuer)
	writeSupplierParty(w, doc.Issuer)
	writeCustomerParty(w, doc.Customer)

	if doc.Type == pkgsunat.DocTypeInvoice {
		writePaymentTerms(w, doc)
	}
	if doc.GlobalDiscount.IsPositive() && doc.Totals.Taxable.IsPositive() {
		writeGlobalDiscount(w, doc)
	}

	writeTaxTotal(w, doc)
	writeMonetaryTotal(w, schema.monetaryTotal, doc)

	for i, line := range doc.Items {
		writeLine(w, schema, i+1, line, currency)
	}

	w.end(schema.root)
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, fmt.Errorf("sunat: generar XML %s: %w", doc.FullNumber(), w.err)
	}
	return buf.Bytes(), nil
}

func rootAttrs(namespace string, extra ...xml.Attr) []xml.Attr {
	attrs := []xml.Attr{
		attr("xmlns", namespace),
		attr("xmlns:cac", NsCac),
		attr("xmlns:cbc", NsCbc),
		attr("xmlns:ds", NsDs),
		attr("xmlns:ext", NsExt),
	}
	return append(attrs, extra...)
}

// writeUBLExtensions escribe el contenedor con un ExtensionContent vacío (placeholder de firma).
func writeUBLExtensions(w *ublWriter) {
	w.start("ext:UBLExtensions")
	w.start("ext:UBLExtension")
	w.leaf("ext:ExtensionContent", "")
	w.end("ext:UBLExtension")
	w.end("ext:UBLExtensions")
}

func writeDiscrepancy(w *ublWriter, ref *entity.DocumentReference) {
	w.start("cac:DiscrepancyResponse")
	w.writeCbc("ReferenceID", ref.FullNumber())
	w.writeCbc("ResponseCode", ref.ReasonCode)
	w.writeCbc("Description", ref.Reason)
	w.end("cac:DiscrepancyResponse")

	w.start("cac:BillingReference")
	w.start("cac:InvoiceDocumentReference")
	w.writeCbc("ID", ref.FullNumber())
	w.writeCbc("DocumentTypeCode", ref.Type)
	w.end("cac:InvoiceDocumentReference")
	w.end("cac:BillingReference")
}

func writeSignatureReference(w *ublWriter, issuer *entity.Company) {
	w.start("cac:Signature")
	w.writeCbc("ID", issuer.RUC)
	w.start("cac:SignatoryParty")
	w.start("cac:PartyIdentification")
	w.writeCbc("ID", issuer.RUC)
	w.end("cac:PartyIdentification")
	w.start("cac:PartyName")
	w.writeCbc("Name", issuer.LegalName)
	w.end("cac:PartyName")
	w.end("cac:SignatoryParty")
	w.start("cac:DigitalSignatureAttachment")
	w.start("cac:ExternalReference")
	w.writeCbc("URI", "#"+SignatureID)
	w.end("cac:ExternalReference")
	w.end("cac:DigitalSignatureAttachment")
	w.end("cac:Signature")
}

func writeSupplierParty(w *ublWriter, issuer *entity.Company) {
	ubigeo := issuer.Ubigeo
	if ubigeo == "" {
		ubigeo = pkgsunat.DefaultUbigeo
	}
	w.start("cac:AccountingSupplierParty")
	w.start("cac:Party")

	w.start("cac:PartyIdentification")
	w.writeCbc("ID", issuer.RUC, attr("schemeID", pkgsunat.IdentityRUC))
	w.end("cac:PartyIdentification")

	w.start("cac:PartyName")
	w.writeCbc("Name", issuer.DisplayName())
	w.end("cac:PartyName")

	w.start("cac:PartyLegalEntity")
	w.writeCbc("RegistrationName", issuer.LegalName)
	w.start("cac:RegistrationAddress")
	w.writeCbc("ID", ubigeo)
	w.writeCbc("AddressTypeCode", "0000")
	if issuer.Address != "" {
		w.start("cac:AddressLine")
		w.writeCbc("Line", issuer.Address)
		w.end("cac:AddressLine")
	}
	w.start("cac:Country")
	w.writeCbc("IdentificationCode", "PE")
	w.end("cac:Country")
	w.end("cac:RegistrationAddress")
	w.end("cac:PartyLegalEntity")

	w.end("cac:Party")
	w.end("cac:AccountingSupplierParty")
}

func writeCustomerParty(w *ublWriter, customer *entity.Customer) {
	number := customer.IdentityNumber
	if number == "" {
		number = "-"
	}
	w.start("cac:AccountingCustomerParty")
	w.start("cac:Party")

	w.start("cac:PartyIdentification")
	w.writeCbc("ID", number, attr("schemeID", customer.IdentityType))
	w.end("cac:PartyIdentification")

	w.start("cac:PartyLegalEntity")
	w.writeCbc("RegistrationName", customer.Name)
	if customer.Address != "" {
		w.start("cac:RegistrationAddress")
		w.start("cac:AddressLine")
		w.writeCbc("Line", customer.Address)
		w.end("cac:AddressLine")
		w.end("cac:RegistrationAddress")
	}
	w.end("cac:PartyLegalEntity")

	w.end("cac:Party")
	w.end("cac:AccountingCustomerParty")
}

// writePaymentTerms informa la forma de pago: Contado, o Crédito con una cuota al vencimiento.
func writePaymentTerms(w *ublWriter, doc *entity.Document) {
	w.start("cac:PaymentTerms")
	w.writeCbc("ID", "FormaPago")
	if doc.DueDate == nil {
		w.writeCbc("PaymentMeansID", "Contado")
		w.end("cac:PaymentTerms")
		return
	}
	w.writeCbc("PaymentMeansID", "Credito")
	w.writeCbcAmount("Amount", doc.Totals.Total, doc.Currency)
	w.end("cac:PaymentTerms")

	w.start("cac:PaymentTerms")
	w.writeCbc("ID", "FormaPago")
	w.writeCbc("PaymentMeansID", "Cuota001")
	w.writeCbcAmount("Amount", doc.Totals.Total, doc.Currency)
	w.writeCbc("PaymentDueDate", doc.DueDate.Format("2006-01-02"))
	w.end("cac:PaymentTerms")
}

// writeGlobalDiscount: descuento global que afecta la base imponible (código 02).
func writeGlobalDiscount(w *ublWriter, doc *entity.Document) {
	amount := doc.GlobalDiscount.Div(decimal.NewFromInt(1).Add(pkgsunat.IGVRate)).Round(2)
	base := doc.Totals.Taxable.Add(amount)
	factor := decimal.Zero
	if base.IsPositive() {
		factor = amount.Div(base).Round(5)
	}
	w.start("cac:AllowanceCharge")
	w.writeCbc("ChargeIndicator", "false")
	w.writeCbc("AllowanceChargeReasonCode", "02")
	w.writeCbc("MultiplierFactorNumeric", factor.StringFixed(5))
	w.writeCbcAmount("Amount", amount, doc.Currency)
	w.writeCbcAmount("BaseAmount", base, doc.Currency)
	w.end("cac:AllowanceCharge")
}

func writeTaxScheme(w *ublWriter, scheme pkgsunat.TaxScheme) {
	w.start("cac:TaxScheme")
	w.writeCbc("ID", scheme.ID,
		attr("schemeName", "Codigo de tributos"),
		attr("schemeAgencyName", "PE:SUNAT"),
		attr("schemeURI", catalogueURI+"05"))
	w.writeCbc("Name", scheme.Name)
	w.writeCbc("TaxTypeCode", scheme.TypeCode)
	w.end("cac:TaxScheme")
}

func writeTaxSubtotal(w *ublWriter, taxable, tax decimal.Decimal, currency string, scheme pkgsunat.TaxScheme) {
	w.start("cac:TaxSubtotal")
	w.writeCbcAmount("TaxableAmount", taxable, currency)
	w.writeCbcAmount("TaxAmount", tax, currency)
	w.start("cac:TaxCategory")
	writeTaxScheme(w, scheme)
	w.end("cac:TaxCategory")
	w.end("cac:TaxSubtotal")
}

// writeTaxTotal escribe un TaxSubtotal por cada bucket activo. La exportación
// acumula en la base gravada pero se informa con su propio tributo (9995).
func writeTaxTotal(w *ublWriter, doc *entity.Document) {
	t := doc.Totals
	currency := doc.Currency
	export := decimal.Zero
	for _, it := range doc.Items {
		if it.Bucket == entity.BucketExport {
			export = export.Add(it.TaxableBase)
		}
	}
	taxed := t.Taxable.Sub(export)
	if export.GreaterThan(t.Taxable) {
		export, taxed = t.Taxable, decimal.Zero
	}

	w.start("cac:TaxTotal")
	w.writeCbcAmount("TaxAmount", t.IGV, currency)
	active := 0
	if taxed.IsPositive() || t.IGV.IsPositive() {
		writeTaxSubtotal(w, taxed, t.IGV, currency, pkgsunat.SchemeIGV)
		active++
	}
	if export.IsPositive() {
		writeTaxSubtotal(w, export, decimal.Zero, currency, pkgsunat.SchemeExport)
		active++
	}
	if t.Exempt.IsPositive() {
		writeTaxSubtotal(w, t.Exempt, decimal.Zero, currency, pkgsunat.SchemeExempt)
		active++
	}
	if t.Unaffected.IsPositive() {
		writeTaxSubtotal(w, t.Unaffected, decimal.Zero, currency, pkgsunat.SchemeUnaffected)
		active++
	}
	if t.Free.IsPositive() {
		writeTaxSubtotal(w, t.Free, decimal.Zero, currency, pkgsunat.SchemeFree)
		active++
	}
	if active == 0 {
		writeTaxSubtotal(w, decimal.Zero, decimal.Zero, currency, pkgsunat.SchemeIGV)
	}
	w.end("cac:TaxTotal")
}

func writeMonetaryTotal(w *ublWriter, element string, doc *entity.Document) {
	t := doc.Totals
	w.start(element)
	w.writeCbcAmount("LineExtensionAmount", t.Subtotal, doc.Currency)
	w.writeCbcAmount("TaxInclusiveAmount", t.Total, doc.Currency)
	w.writeCbcAmount("PayableAmount", t.Total, doc.Currency)
	w.end(element)
}

func writeLine(w *ublWriter, schema docSchema, lineNum int, line entity.LineItem, currency string) {
	unitCode := line.UnitCode
	if unitCode == "" {
		unitCode = pkgsunat.UnitProduct
	}
	priceType := pkgsunat.PriceTypeNormal
	basePrice := line.UnitPrice
	if line.IsFree {
		priceType = pkgsunat.PriceTypeFree
		basePrice = decimal.Zero
	}

	w.start(schema.lineElement)
	w.writeCbc("ID", strconv.Itoa(lineNum))
	w.writeCbc(schema.quantityName, line.Quantity.String(),
		attr("unitCode", unitCode),
		attr("unitCodeListID", "UN/ECE rec 20"),
		attr("unitCodeListAgencyName", "United Nations Economic Commission for Europe"))
	w.writeCbcAmount("LineExtensionAmount", line.TaxableBase, currency)

	w.start("cac:PricingReference")
	w.start("cac:AlternativeConditionPrice")
	w.writeCbcPrice("PriceAmount", line.ReferencePrice, currency)
	w.writeCbc("PriceTypeCode", priceType,
		attr("listName", "Tipo de Precio"),
		attr("listAgencyName", "PE:SUNAT"),
		attr("listURI", catalogueURI+"16"))
	w.end("cac:AlternativeConditionPrice")
	w.end("cac:PricingReference")

	if line.Discount.IsPositive() {
		gross := line.Quantity.Mul(line.UnitPrice)
		w.start("cac:AllowanceCharge")
		w.writeCbc("ChargeIndicator", "false")
		w.writeCbc("AllowanceChargeReasonCode", "00")
		if gross.IsPositive() {
			w.writeCbc("MultiplierFactorNumeric", line.Discount.Div(gross).Round(5).StringFixed(5))
		}
		w.writeCbcAmount("Amount", line.Discount, currency)
		w.writeCbcAmount("BaseAmount", gross, currency)
		w.end("cac:AllowanceCharge")
	}

	scheme := pkgsunat.SchemeForBucket(line.Bucket)
	percent := decimal.Zero
	if treatment, ok := pkgsunat.TreatmentFor(line.TaxType); ok && treatment.Taxed {
		percent = pkgsunat.IGVPercent
	}
	w.start("cac:TaxTotal")
	w.writeCbcAmount("TaxAmount", line.TaxAmount, currency)
	w.start("cac:TaxSubtotal")
	w.writeCbcAmount("TaxableAmount", line.TaxableBase, currency)
	w.writeCbcAmount("TaxAmount", line.TaxAmount, currency)
	w.start("cac:TaxCategory")
	w.writeCbc("Percent", formatDecimal(percent))
	w.writeCbc("TaxExemptionReasonCode", line.TaxType,
		attr("listAgencyName", "PE:SUNAT"),
		attr("listName", "Afectacion del IGV"),
		attr("listURI", catalogueURI+"07"))
	writeTaxScheme(w, scheme)
	w.end("cac:TaxCategory")
	w.end("cac:TaxSubtotal")
	w.end("cac:TaxTotal")

	w.start("cac:Item")
	w.writeCbc("Description", line.Description)
	if line.ProductCode != "" {
		w.start("cac:SellersItemIdentification")
		w.writeCbc("ID", line.ProductCode)
		w.end("cac:SellersItemIdentification")
	}
	w.end("cac:Item")

	w.start("cac:Price")
	w.writeCbcPrice("PriceAmount", basePrice, currency)
	w.end("cac:Price")

	w.end(schema.lineElement)
}
