package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// Operaciones del API REST del OSE (esquema plano estilo Nubefact).
const (
	oseOpGenerate    = "generar_comprobante"
	oseOpVoid        = "generar_anulacion"
	oseOpQueryVoid   = "consultar_anulacion"
	oseDateLayout    = "02-01-2006"
	oseDefaultReason = 1
)

// Tablas de conversión Catálogo SUNAT → códigos numéricos del OSE.
var (
	oseDocumentTypes = map[string]int{
		pkgsunat.DocTypeInvoice:    1,
		pkgsunat.DocTypeReceipt:    2,
		pkgsunat.DocTypeCreditNote: 3,
		pkgsunat.DocTypeDebitNote:  4,
	}
	oseCurrencies = map[string]int{
		pkgsunat.CurrencyPEN: 1,
		pkgsunat.CurrencyUSD: 2,
		pkgsunat.CurrencyEUR: 3,
	}
	oseOperations = map[string]int{
		pkgsunat.OperationInternalSale: 1,
		pkgsunat.OperationExportGoods:  2,
		pkgsunat.OperationExportServ:   2,
		pkgsunat.OperationNonDomiciled: 29,
		pkgsunat.OperationDetraction:   30,
		"1004":                         33, // detracción - servicios de transporte de carga
		pkgsunat.OperationPerception:   34,
	}
	oseTaxTypes = map[string]int{
		pkgsunat.AffectTaxed:            1,
		pkgsunat.AffectTaxedBonus:       2,
		pkgsunat.AffectTaxedDonation:    3,
		pkgsunat.AffectTaxedWithdrawal:  4,
		pkgsunat.AffectTaxedAdvertising: 5,
		pkgsunat.AffectTaxedGift:        6,
		pkgsunat.AffectTaxedToWorkers:   7,
		pkgsunat.AffectExempt:           8,
		pkgsunat.AffectExemptFree:       17,
		pkgsunat.AffectUnaffected:       9,
		pkgsunat.AffectUnaffectedBonus:  10,
		pkgsunat.AffectUnaffectedWithdr: 11,
		pkgsunat.AffectUnaffectedSample: 12,
		pkgsunat.AffectUnaffectedAgreem: 13,
		pkgsunat.AffectUnaffectedPrize:  14,
		pkgsunat.AffectUnaffectedAdvert: 15,
		pkgsunat.AffectExport:           16,
	}
)

// Códigos por defecto cuando el valor no está en la tabla.
const (
	oseDefaultDocumentType = 1 // factura
	oseDefaultCurrency     = 1 // soles
	oseDefaultOperation    = 1 // venta interna
	oseDefaultTaxType      = 1 // gravado - operación onerosa
	oseDefaultIdentity     = pkgsunat.IdentityVarious
)

func lookup(table map[string]int, code string, def int) int {
	if v, ok := table[code]; ok {
		return v
	}
	return def
}

// OSEDocumentType convierte el tipo de comprobante (01 → 1, 03 → 2, 07 → 3, 08 → 4).
func OSEDocumentType(code string) int { return lookup(oseDocumentTypes, code, oseDefaultDocumentType) }

// OSECurrency convierte la moneda ISO 4217 (PEN → 1, USD → 2, EUR → 3).
func OSECurrency(code string) int { return lookup(oseCurrencies, code, oseDefaultCurrency) }

// OSEOperation convierte el tipo de operación del Catálogo 51 a sunat_transaction.
func OSEOperation(code string) int { return lookup(oseOperations, code, oseDefaultOperation) }

// OSETaxType convierte el tipo de afectación del Catálogo 07 a tipo_de_igv.
func OSETaxType(code string) int { return lookup(oseTaxTypes, code, oseDefaultTaxType) }

// OSEIdentity devuelve el tipo de documento de identidad; "-" si no es reconocido.
func OSEIdentity(code string) string {
	if pkgsunat.ValidIdentityTypes[code] {
		return code
	}
	return oseDefaultIdentity
}

// OSENoteReason convierte el motivo del Catálogo 09/10 ("01" → 1).
func OSENoteReason(code string) int {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil || n <= 0 {
		return oseDefaultReason
	}
	return n
}

// ── Esquema JSON ──────────────────────────────────────────────────────────────

type oseDocument struct {
	Operacion                    string      `json:"operacion"`
	TipoDeComprobante            int         `json:"tipo_de_comprobante"`
	Serie                        string      `json:"serie"`
	Numero                       int64       `json:"numero"`
	SunatTransaction             int         `json:"sunat_transaction"`
	ClienteTipoDeDocumento       string      `json:"cliente_tipo_de_documento"`
	ClienteNumeroDeDocumento     string      `json:"cliente_numero_de_documento"`
	ClienteDenominacion          string      `json:"cliente_denominacion"`
	ClienteDireccion             string      `json:"cliente_direccion"`
	ClienteEmail                 string      `json:"cliente_email,omitempty"`
	FechaDeEmision               string      `json:"fecha_de_emision"`
	FechaDeVencimiento           string      `json:"fecha_de_vencimiento,omitempty"`
	Moneda                       int         `json:"moneda"`
	TipoDeCambio                 json.Number `json:"tipo_de_cambio,omitempty"`
	PorcentajeDeIGV              json.Number `json:"porcentaje_de_igv"`
	DescuentoGlobal              json.Number `json:"descuento_global,omitempty"`
	TotalGravada                 json.Number `json:"total_gravada"`
	TotalExonerada               json.Number `json:"total_exonerada"`
	TotalInafecta                json.Number `json:"total_inafecta"`
	TotalGratuita                json.Number `json:"total_gratuita"`
	TotalIGV                     json.Number `json:"total_igv"`
	Total                        json.Number `json:"total"`
	Observaciones                string      `json:"observaciones,omitempty"`
	DocumentoQueSeModificaTipo   int         `json:"documento_que_se_modifica_tipo,omitempty"`
	DocumentoQueSeModificaSerie  string      `json:"documento_que_se_modifica_serie,omitempty"`
	DocumentoQueSeModificaNumero int64       `json:"documento_que_se_modifica_numero,omitempty"`
	TipoDeNotaDeCredito          int         `json:"tipo_de_nota_de_credito,omitempty"`
	TipoDeNotaDeDebito           int         `json:"tipo_de_nota_de_debito,omitempty"`
	EnviarAutomaticamente        bool        `json:"enviar_automaticamente_a_la_sunat"`
	Items                        []oseItem   `json:"items"`
}

type oseItem struct {
	UnidadDeMedida string      `json:"unidad_de_medida"`
	Codigo         string      `json:"codigo,omitempty"`
	Descripcion    string      `json:"descripcion"`
	Cantidad       json.Number `json:"cantidad"`
	ValorUnitario  json.Number `json:"valor_unitario"`
	PrecioUnitario json.Number `json:"precio_unitario"`
	Descuento      json.Number `json:"descuento,omitempty"`
	Subtotal       json.Number `json:"subtotal"`
	TipoDeIGV      int         `json:"tipo_de_igv"`
	IGV            json.Number `json:"igv"`
	Total          json.Number `json:"total"`
}

type oseVoid struct {
	Operacion         string `json:"operacion"`
	TipoDeComprobante int    `json:"tipo_de_comprobante"`
	Serie             string `json:"serie"`
	Numero            int64  `json:"numero"`
	Motivo            string `json:"motivo,omitempty"`
}

type oseResponse struct {
	AceptadaPorSunat  bool   `json:"aceptada_por_sunat"`
	SunatDescription  string `json:"sunat_description"`
	SunatNote         string `json:"sunat_note"`
	SunatResponseCode string `json:"sunat_responsecode"`
	SunatSoapError    string `json:"sunat_soap_error"`
	CodigoHash        string `json:"codigo_hash"`
	SunatTicketNumero string `json:"sunat_ticket_numero"`
	Errors            string `json:"errors"`
	Codigo            int    `json:"codigo"`
}

func amount(d decimal.Decimal) json.Number { return json.Number(d.Round(2).StringFixed(2)) }

func price(d decimal.Decimal) json.Number { return json.Number(d.Round(6).StringFixed(6)) }

func optionalAmount(d decimal.Decimal) json.Number {
	if d.IsZero() {
		return ""
	}
	return amount(d)
}

func mapDocument(doc *entity.Document) *oseDocument {
	t := doc.Totals
	out := &oseDocument{
		Operacion:             oseOpGenerate,
		TipoDeComprobante:     OSEDocumentType(doc.Type),
		Serie:                 doc.Series,
		Numero:                doc.Number,
		SunatTransaction:      OSEOperation(doc.OperationType),
		FechaDeEmision:        doc.IssueDate.Format(oseDateLayout),
		Moneda:                OSECurrency(doc.Currency),
		PorcentajeDeIGV:       amount(pkgsunat.IGVPercent),
		DescuentoGlobal:       optionalAmount(doc.GlobalDiscount),
		TotalGravada:          amount(t.Taxable),
		TotalExonerada:        amount(t.Exempt),
		TotalInafecta:         amount(t.Unaffected),
		TotalGratuita:         amount(t.Free),
		TotalIGV:              amount(t.IGV),
		Total:                 amount(t.Total),
		Observaciones:         doc.Note,
		EnviarAutomaticamente: true,
	}
	if !doc.ExchangeRate.IsZero() {
		out.TipoDeCambio = json.Number(doc.ExchangeRate.Round(3).StringFixed(3))
	}
	if doc.DueDate != nil {
		out.FechaDeVencimiento = doc.DueDate.Format(oseDateLayout)
	}
	if c := doc.Customer; c != nil {
		out.ClienteTipoDeDocumento = OSEIdentity(c.IdentityType)
		out.ClienteNumeroDeDocumento = c.IdentityNumber
		if out.ClienteNumeroDeDocumento == "" {
			out.ClienteNumeroDeDocumento = "-"
		}
		out.ClienteDenominacion = c.Name
		out.ClienteDireccion = c.Address
		out.ClienteEmail = c.Email
	}
	if ref := doc.Reference; ref != nil && doc.IsNote() {
		out.DocumentoQueSeModificaTipo = OSEDocumentType(ref.Type)
		out.DocumentoQueSeModificaSerie = ref.Series
		out.DocumentoQueSeModificaNumero = ref.Number
		if doc.Type == pkgsunat.DocTypeCreditNote {
			out.TipoDeNotaDeCredito = OSENoteReason(ref.ReasonCode)
		} else {
			out.TipoDeNotaDeDebito = OSENoteReason(ref.ReasonCode)
		}
	}
	for _, it := range doc.Items {
		unit := it.UnitCode
		if unit == "" {
			unit = pkgsunat.UnitProduct
		}
		out.Items = append(out.Items, oseItem{
			UnidadDeMedida: unit,
			Codigo:         it.ProductCode,
			Descripcion:    it.Description,
			Cantidad:       json.Number(it.Quantity.String()),
			ValorUnitario:  price(it.UnitPrice),
			PrecioUnitario: price(it.ReferencePrice),
			Descuento:      optionalAmount(it.Discount),
			Subtotal:       amount(it.TaxableBase),
			TipoDeIGV:      OSETaxType(it.TaxType),
			IGV:            amount(it.TaxAmount),
			Total:          amount(it.Total),
		})
	}
	return out
}

// ── Adaptador ─────────────────────────────────────────────────────────────────

// OSEConfig es la ruta y token del OSE contratado.
type OSEConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// OSEAdapter envía comprobantes a un Operador de Servicios Electrónicos vía REST.
type OSEAdapter struct {
	client *resty.Client
	url    string
	log    zerolog.Logger
}

// NewOSEAdapter construye el cliente REST con autenticación bearer.
func NewOSEAdapter(cfg OSEConfig, log zerolog.Logger) *OSEAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = infrasunat.DefaultTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json")
	return &OSEAdapter{
		client: client,
		url:    cfg.URL,
		log:    log.With().Str("provider", entity.ProviderOSE).Logger(),
	}
}

func (a *OSEAdapter) Name() string { return entity.ProviderOSE }

func (a *OSEAdapter) SupportedDocumentTypes() []string { return invoiceFamily }

// post envía el cuerpo y devuelve la respuesta decodificada.
// Un error de red o un status no 2xx se devuelve como resultado exception.
func (a *OSEAdapter) post(ctx context.Context, body any) (*oseResponse, *entity.TransportResult) {
	var ok, failed oseResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&ok).
		SetError(&failed).
		Post(a.url)
	if err != nil {
		return nil, exceptionResult("", "OSE: llamada HTTP fallida: "+err.Error())
	}
	if resp.IsError() {
		msg := failed.Errors
		if msg == "" {
			msg = strings.TrimSpace(string(resp.Body()))
		}
		code := ""
		if failed.Codigo != 0 {
			code = strconv.Itoa(failed.Codigo)
		}
		return nil, exceptionResult(code, fmt.Sprintf("OSE: HTTP %d: %s", resp.StatusCode(), msg))
	}
	return &ok, nil
}

// SendDocument envía el comprobante con generar_comprobante.
func (a *OSEAdapter) SendDocument(ctx context.Context, doc *entity.Document) (*entity.TransportResult, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	resp, failure := a.post(ctx, mapDocument(doc))
	result := failure
	if result == nil {
		result = interpretOSE(resp)
		result.Hash = resp.CodigoHash
	}
	result.Ticket = OSETicket(doc.Type, doc.Series, doc.Number)

	a.log.Info().Str("document_id", doc.ID).Str("number", doc.FullNumber()).
		Str("status", result.Status).Str("code", result.ResponseCode).Msg("ose: generar_comprobante")
	return result, nil
}

// interpretOSE traduce la bandera de aceptación y los errores del OSE.
func interpretOSE(resp *oseResponse) *entity.TransportResult {
	result := &entity.TransportResult{
		ResponseCode:    resp.SunatResponseCode,
		ResponseMessage: resp.SunatDescription,
	}
	if resp.SunatNote != "" {
		result.Notes = []string{resp.SunatNote}
	}
	switch {
	case resp.Errors != "":
		result.Status = entity.DocumentStatusRejected
		result.ResponseMessage = resp.Errors
		if resp.Codigo != 0 && result.ResponseCode == "" {
			result.ResponseCode = strconv.Itoa(resp.Codigo)
		}
	case resp.AceptadaPorSunat:
		result.Status = entity.DocumentStatusAccepted
		if resp.SunatNote != "" {
			result.Status = entity.DocumentStatusObserved
		}
	case resp.SunatSoapError != "":
		result.Status = entity.DocumentStatusException
		result.ResponseMessage = resp.SunatSoapError
	case resp.SunatResponseCode != "":
		result.Status = domsunat.StatusForResponseCode(resp.SunatResponseCode)
	default:
		result.Status = entity.DocumentStatusRejected
	}
	if result.ResponseMessage == "" {
		if msg, ok := pkgsunat.ResponseMessage(result.ResponseCode); ok {
			result.ResponseMessage = msg
		}
	}
	result.Success = isSuccess(result.Status)
	return result
}

// VoidDocument solicita la baja con generar_anulacion. Devuelve pending con el ticket compuesto.
func (a *OSEAdapter) VoidDocument(ctx context.Context, req *entity.VoidRequest) (*entity.TransportResult, error) {
	if err := validateVoidRequest(req); err != nil {
		return nil, err
	}
	doc := req.Document
	resp, failure := a.post(ctx, oseVoid{
		Operacion:         oseOpVoid,
		TipoDeComprobante: OSEDocumentType(doc.Type),
		Serie:             doc.Series,
		Numero:            doc.Number,
		Motivo:            req.Reason,
	})
	if failure != nil {
		return failure, nil
	}
	if resp.Errors != "" {
		return interpretOSE(resp), nil
	}
	result := &entity.TransportResult{
		Status:          entity.DocumentStatusPending,
		Ticket:          OSETicket(doc.Type, doc.Series, doc.Number),
		ResponseMessage: resp.SunatDescription,
	}
	a.log.Info().Str("document_id", doc.ID).Str("ticket", result.Ticket).
		Str("sunat_ticket", resp.SunatTicketNumero).Msg("ose: generar_anulacion")
	return result, nil
}

// QueryStatus consulta la baja con consultar_anulacion usando el ticket "tipo-serie-numero".
func (a *OSEAdapter) QueryStatus(ctx context.Context, ticket string) (*entity.TransportResult, error) {
	docType, series, number, err := ParseOSETicket(ticket)
	if err != nil {
		return nil, err
	}
	resp, failure := a.post(ctx, oseVoid{
		Operacion:         oseOpQueryVoid,
		TipoDeComprobante: OSEDocumentType(docType),
		Serie:             series,
		Numero:            number,
	})
	if failure != nil {
		failure.Ticket = ticket
		return failure, nil
	}
	var result *entity.TransportResult
	if !resp.AceptadaPorSunat && resp.Errors == "" && resp.SunatResponseCode == "" {
		result = &entity.TransportResult{Status: entity.DocumentStatusPending, ResponseMessage: resp.SunatDescription}
	} else {
		result = interpretOSE(resp)
	}
	result.Ticket = ticket
	return result, nil
}

// OSETicket arma el ticket compuesto "tipo-serie-numero" usado en las consultas.
func OSETicket(docType, series string, number int64) string {
	return fmt.Sprintf("%s-%s-%d", docType, series, number)
}

// ParseOSETicket separa un ticket "tipo-serie-numero".
func ParseOSETicket(ticket string) (docType, series string, number int64, err error) {
	parts := strings.Split(ticket, "-")
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("ose: ticket inválido %q", ticket)
	}
	number, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("ose: ticket inválido %q: %w", ticket, err)
	}
	return parts[0], parts[1], number, nil
}
