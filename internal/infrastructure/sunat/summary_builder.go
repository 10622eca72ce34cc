package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// BuildSummary genera el resumen diario (SummaryDocuments, RC).
// Se usa para informar o anular boletas y sus notas asociadas.
func (s *XMLBuilderService) BuildSummary(batch *SummaryBatch) ([]byte, error) {
	if batch == nil || batch.Issuer == nil {
		return nil, fmt.Errorf("sunat: resumen sin emisor")
	}
	if len(batch.Lines) == 0 {
		return nil, fmt.Errorf("sunat: resumen %s sin líneas", batch.ID())
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &ublWriter{enc: xml.NewEncoder(&buf)}

	w.start("SummaryDocuments", rootAttrs(NsSummary, attr("xmlns:sac", NsSac))...)
	writeUBLExtensions(w)
	w.writeCbc("UBLVersionID", "2.0")
	w.writeCbc("CustomizationID", "1.1")
	w.writeCbc("ID", batch.ID())
	w.writeCbc("ReferenceDate", batch.ReferenceDate.Format("2006-01-02"))
	w.writeCbc("IssueDate", batch.IssueDate.Format("2006-01-02"))
	writeSignatureReference(w, batch.Issuer)
	writeBatchSupplier(w, batch.Issuer)

	for i, line := range batch.Lines {
		if line.Document == nil {
			return nil, fmt.Errorf("sunat: resumen %s: línea %d sin documento", batch.ID(), i+1)
		}
		writeSummaryLine(w, i+1, line)
	}

	w.end("SummaryDocuments")
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, fmt.Errorf("sunat: generar resumen %s: %w", batch.ID(), w.err)
	}
	return buf.Bytes(), nil
}

// BuildVoided genera la comunicación de baja (VoidedDocuments, RA).
func (s *XMLBuilderService) BuildVoided(batch *VoidedBatch) ([]byte, error) {
	if batch == nil || batch.Issuer == nil {
		return nil, fmt.Errorf("sunat: comunicación de baja sin emisor")
	}
	if len(batch.Lines) == 0 {
		return nil, fmt.Errorf("sunat: comunicación de baja %s sin líneas", batch.ID())
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &ublWriter{enc: xml.NewEncoder(&buf)}

	w.start("VoidedDocuments", rootAttrs(NsVoided, attr("xmlns:sac", NsSac))...)
	writeUBLExtensions(w)
	w.writeCbc("UBLVersionID", "2.0")
	w.writeCbc("CustomizationID", "1.0")
	w.writeCbc("ID", batch.ID())
	w.writeCbc("ReferenceDate", batch.ReferenceDate.Format("2006-01-02"))
	w.writeCbc("IssueDate", batch.IssueDate.Format("2006-01-02"))
	writeSignatureReference(w, batch.Issuer)
	writeBatchSupplier(w, batch.Issuer)

	for i, line := range batch.Lines {
		w.start("sac:VoidedDocumentsLine")
		w.writeCbc("LineID", strconv.Itoa(i+1))
		w.writeCbc("DocumentTypeCode", line.DocumentType)
		w.leaf("sac:DocumentSerialID", line.Series)
		w.leaf("sac:DocumentNumberID", strconv.FormatInt(line.Number, 10))
		w.leaf("sac:VoidReasonDescription", line.Reason)
		w.end("sac:VoidedDocumentsLine")
	}

	w.end("VoidedDocuments")
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, fmt.Errorf("sunat: generar baja %s: %w", batch.ID(), w.err)
	}
	return buf.Bytes(), nil
}

// writeBatchSupplier usa la forma abreviada del emisor propia de RC y RA.
func writeBatchSupplier(w *ublWriter, issuer *entity.Company) {
	w.start("cac:AccountingSupplierParty")
	w.writeCbc("CustomerAssignedAccountID", issuer.RUC)
	w.writeCbc("AdditionalAccountID", pkgsunat.IdentityRUC)
	w.start("cac:Party")
	w.start("cac:PartyLegalEntity")
	w.writeCbc("RegistrationName", issuer.LegalName)
	w.end("cac:PartyLegalEntity")
	w.end("cac:Party")
	w.end("cac:AccountingSupplierParty")
}

func writeSummaryLine(w *ublWriter, lineNum int, line SummaryLine) {
	doc := line.Document
	t := doc.Totals
	currency := doc.Currency
	condition := line.Condition
	if condition == "" {
		condition = pkgsunat.SummaryConditionAdd
	}

	w.start("sac:SummaryDocumentsLine")
	w.writeCbc("LineID", strconv.Itoa(lineNum))
	w.writeCbc("DocumentTypeCode", doc.Type)
	w.writeCbc("ID", doc.FullNumber())

	if doc.Customer != nil {
		number := doc.Customer.IdentityNumber
		if number == "" {
			number = "-"
		}
		w.start("cac:AccountingCustomerParty")
		w.writeCbc("CustomerAssignedAccountID", number)
		w.writeCbc("AdditionalAccountID", doc.Customer.IdentityType)
		w.end("cac:AccountingCustomerParty")
	}

	if doc.IsNote() && doc.Reference != nil {
		w.start("cac:BillingReference")
		w.start("cac:InvoiceDocumentReference")
		w.writeCbc("ID", doc.Reference.FullNumber())
		w.writeCbc("DocumentTypeCode", doc.Reference.Type)
		w.end("cac:InvoiceDocumentReference")
		w.end("cac:BillingReference")
	}

	w.start("cac:Status")
	w.writeCbc("ConditionCode", condition)
	w.end("cac:Status")

	w.start("sac:TotalAmount", attr("currencyID", currency))
	w.token(xml.CharData(formatDecimal(t.Total)))
	w.end("sac:TotalAmount")

	payments := []struct {
		amount decimal.Decimal
		code   string
	}{
		{t.Taxable, "01"},
		{t.Exempt, "02"},
		{t.Unaffected, "03"},
		{t.Free, "05"},
	}
	for _, p := range payments {
		if !p.amount.IsPositive() {
			continue
		}
		w.start("sac:BillingPayment")
		w.writeCbcAmount("PaidAmount", p.amount, currency)
		w.writeCbc("InstructionID", p.code)
		w.end("sac:BillingPayment")
	}

	w.start("cac:TaxTotal")
	w.writeCbcAmount("TaxAmount", t.IGV, currency)
	writeTaxSubtotal(w, t.Taxable, t.IGV, currency, pkgsunat.SchemeIGV)
	w.end("cac:TaxTotal")

	w.end("sac:SummaryDocumentsLine")
}
