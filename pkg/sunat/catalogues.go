// Package sunat contiene catálogos y validaciones alineados a las especificaciones
// de comprobantes electrónicos UBL 2.1 de SUNAT (Perú).
package sunat

import "github.com/shopspring/decimal"

// IGVRate es la tasa del Impuesto General a las Ventas (incluye IPM).
var IGVRate = decimal.NewFromFloat(0.18)

// IGVPercent es IGVRate expresado en porcentaje para cbc:Percent.
var IGVPercent = decimal.NewFromInt(18)

// =============================================================================
// Catálogo 01 - Tipo de documento
// =============================================================================

const (
	DocTypeInvoice    = "01" // Factura
	DocTypeReceipt    = "03" // Boleta de venta
	DocTypeCreditNote = "07" // Nota de crédito
	DocTypeDebitNote  = "08" // Nota de débito
	DocTypeGuide      = "09" // Guía de remisión remitente
	DocTypeRetention  = "20" // Comprobante de retención
	DocTypePerception = "40" // Comprobante de percepción
	DocTypeSummary    = "RC" // Resumen diario de boletas
	DocTypeVoided     = "RA" // Comunicación de baja
)

// =============================================================================
// Catálogo 06 - Tipo de documento de identidad
// =============================================================================

const (
	IdentityNonDomiciled = "0" // Doc. trib. no dom. sin RUC
	IdentityDNI          = "1"
	IdentityForeignCard  = "4" // Carnet de extranjería
	IdentityRUC          = "6"
	IdentityPassport     = "7"
	IdentityDiplomatic   = "A" // Cédula diplomática de identidad
	IdentityVarious      = "-" // Varios (ventas menores a S/ 700 en boletas)
)

// ValidIdentityTypes códigos de identidad aceptados en AccountingCustomerParty.
var ValidIdentityTypes = map[string]bool{
	IdentityNonDomiciled: true, IdentityDNI: true, IdentityForeignCard: true,
	IdentityRUC: true, IdentityPassport: true, IdentityDiplomatic: true, IdentityVarious: true,
}

// =============================================================================
// Catálogo 07 - Tipo de afectación del IGV
// =============================================================================

const (
	AffectTaxed            = "10" // Gravado - Operación onerosa
	AffectTaxedBonus       = "11" // Gravado - Retiro por premio
	AffectTaxedDonation    = "12" // Gravado - Retiro por donación
	AffectTaxedWithdrawal  = "13" // Gravado - Retiro
	AffectTaxedAdvertising = "14" // Gravado - Retiro por publicidad
	AffectTaxedGift        = "15" // Gravado - Bonificaciones
	AffectTaxedToWorkers   = "16" // Gravado - Retiro por entrega a trabajadores
	AffectExempt           = "20" // Exonerado - Operación onerosa
	AffectExemptFree       = "21" // Exonerado - Transferencia gratuita
	AffectUnaffected       = "30" // Inafecto - Operación onerosa
	AffectUnaffectedBonus  = "31" // Inafecto - Retiro por bonificación
	AffectUnaffectedWithdr = "32" // Inafecto - Retiro
	AffectUnaffectedSample = "33" // Inafecto - Retiro por muestras médicas
	AffectUnaffectedAgreem = "34" // Inafecto - Retiro por convenio colectivo
	AffectUnaffectedPrize  = "35" // Inafecto - Retiro por premio
	AffectUnaffectedAdvert = "36" // Inafecto - Retiro por publicidad
	AffectExport           = "40" // Exportación de bienes o servicios
)

// Treatment clasifica un código del Catálogo 07.
type Treatment struct {
	Bucket string // taxable, exempt, unaffected, free, export
	Taxed  bool   // true si el código pertenece a la familia gravada (10-16)
}

var treatments = map[string]Treatment{
	AffectTaxed:            {Bucket: "taxable", Taxed: true},
	AffectTaxedBonus:       {Bucket: "free", Taxed: true},
	AffectTaxedDonation:    {Bucket: "free", Taxed: true},
	AffectTaxedWithdrawal:  {Bucket: "free", Taxed: true},
	AffectTaxedAdvertising: {Bucket: "free", Taxed: true},
	AffectTaxedGift:        {Bucket: "free", Taxed: true},
	AffectTaxedToWorkers:   {Bucket: "free", Taxed: true},
	AffectExempt:           {Bucket: "exempt"},
	AffectExemptFree:       {Bucket: "free"},
	AffectUnaffected:       {Bucket: "unaffected"},
	AffectUnaffectedBonus:  {Bucket: "free"},
	AffectUnaffectedWithdr: {Bucket: "free"},
	AffectUnaffectedSample: {Bucket: "free"},
	AffectUnaffectedAgreem: {Bucket: "free"},
	AffectUnaffectedPrize:  {Bucket: "free"},
	AffectUnaffectedAdvert: {Bucket: "free"},
	AffectExport:           {Bucket: "export"},
}

// TreatmentFor devuelve la clasificación del código de afectación.
func TreatmentFor(code string) (Treatment, bool) {
	t, ok := treatments[code]
	return t, ok
}

// =============================================================================
// Catálogo 05 - Códigos de tributos (TaxScheme)
// =============================================================================

// TaxScheme es el triplete ID/Name/TaxTypeCode de cac:TaxScheme.
type TaxScheme struct {
	ID       string
	Name     string
	TypeCode string
}

var (
	SchemeIGV        = TaxScheme{ID: "1000", Name: "IGV", TypeCode: "VAT"}
	SchemeExport     = TaxScheme{ID: "9995", Name: "EXP", TypeCode: "FRE"}
	SchemeFree       = TaxScheme{ID: "9996", Name: "GRA", TypeCode: "FRE"}
	SchemeExempt     = TaxScheme{ID: "9997", Name: "EXO", TypeCode: "VAT"}
	SchemeUnaffected = TaxScheme{ID: "9998", Name: "INA", TypeCode: "FRE"}
)

// SchemeForBucket devuelve el tributo asociado a un bucket de la calculadora.
func SchemeForBucket(bucket string) TaxScheme {
	switch bucket {
	case "exempt":
		return SchemeExempt
	case "unaffected":
		return SchemeUnaffected
	case "free":
		return SchemeFree
	case "export":
		return SchemeExport
	default:
		return SchemeIGV
	}
}

// =============================================================================
// Catálogo 16 - Tipo de precio de venta unitario
// =============================================================================

const (
	PriceTypeNormal = "01" // Precio unitario (incluye el IGV)
	PriceTypeFree   = "02" // Valor referencial unitario en operaciones no onerosas
)

// =============================================================================
// Catálogo 03 - Unidades de medida (uso frecuente)
// =============================================================================

const (
	UnitProduct  = "NIU" // Unidad (bienes)
	UnitService  = "ZZ"  // Unidad (servicios)
	UnitKilogram = "KGM"
	UnitLitre    = "LTR"
	UnitMetre    = "MTR"
	UnitBox      = "BX"
	UnitDozen    = "DZN"
	UnitHour     = "HUR"
)

// =============================================================================
// Catálogo 09 / 10 - Motivos de nota de crédito y débito
// =============================================================================

const (
	CreditNoteVoidOperation   = "01" // Anulación de la operación
	CreditNoteVoidWrongRUC    = "02" // Anulación por error en el RUC
	CreditNoteFixDescription  = "03" // Corrección por error en la descripción
	CreditNoteGlobalDiscount  = "04" // Descuento global
	CreditNoteItemDiscount    = "05" // Descuento por ítem
	CreditNoteTotalReturn     = "06" // Devolución total
	CreditNoteItemReturn      = "07" // Devolución por ítem
	CreditNoteBonus           = "08" // Bonificación
	CreditNoteValueDecrease   = "09" // Disminución en el valor
	CreditNoteOther           = "10" // Otros conceptos
	CreditNoteIncreaseDiff    = "11" // Ajustes de operaciones de exportación
	CreditNoteIVAPAdjustment  = "12" // Ajustes afectos al IVAP
	CreditNotePaymentSchedule = "13" // Corrección del monto neto pendiente de pago

	DebitNoteInterest      = "01" // Intereses por mora
	DebitNoteValueIncrease = "02" // Aumento en el valor
	DebitNotePenalties     = "03" // Penalidades / otros conceptos
)

// ValidCreditNoteReasons y ValidDebitNoteReasons: códigos aceptados en cbc:ResponseCode.
var (
	ValidCreditNoteReasons = map[string]bool{
		"01": true, "02": true, "03": true, "04": true, "05": true, "06": true, "07": true,
		"08": true, "09": true, "10": true, "11": true, "12": true, "13": true,
	}
	ValidDebitNoteReasons = map[string]bool{"01": true, "02": true, "03": true}
)

// =============================================================================
// Catálogo 51 - Tipo de operación
// =============================================================================

const (
	OperationInternalSale = "0101" // Venta interna
	OperationExportGoods  = "0200" // Exportación de bienes
	OperationExportServ   = "0201" // Exportación de servicios
	OperationNonDomiciled = "0401" // Ventas no domiciliados que no califican como exportación
	OperationDetraction   = "1001" // Operación sujeta a detracción
	OperationPerception   = "2001" // Operación sujeta a percepción
)

// =============================================================================
// Catálogo 02 - Monedas
// =============================================================================

const (
	CurrencyPEN = "PEN"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// DefaultUbigeo se usa cuando la empresa no registra código de ubicación (Lima - Lima - Lima).
const DefaultUbigeo = "150101"

// Códigos de condición para líneas del resumen diario.
const (
	SummaryConditionAdd    = "1"
	SummaryConditionModify = "2"
	SummaryConditionVoid   = "3"
)
