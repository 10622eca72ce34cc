package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	infrasunat "github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat/signer"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// DirectConfig son las credenciales y el ambiente del envío directo a SUNAT.
type DirectConfig struct {
	RUC          string
	SOLUser      string
	SOLPassword  string
	CertPath     string
	CertData     []byte // alternativa a CertPath (certificado almacenado en base de datos)
	CertPassword string
	Environment  string // beta | production
	// EndpointOverride reemplaza la URL del billService (pruebas con httptest).
	EndpointOverride string
	Timeout          time.Duration
}

// DirectAdapter envía comprobantes al billService SOAP de SUNAT:
//
//	XML UBL 2.1 → Firma XMLDSig → ZIP → sendBill → CDR
type DirectAdapter struct {
	cfg     DirectConfig
	builder *infrasunat.XMLBuilderService
	signer  Signer
	client  *infrasunat.SOAPClient
	load    CertificateLoader
	now     func() time.Time
	log     zerolog.Logger

	mu   sync.Mutex
	cert *tls.Certificate
}

// DirectOption personaliza el adaptador (pruebas, certificados en memoria).
type DirectOption func(*DirectAdapter)

// WithCertificateLoader reemplaza la carga del .p12.
func WithCertificateLoader(load CertificateLoader) DirectOption {
	return func(a *DirectAdapter) { a.load = load }
}

// WithSigner reemplaza el servicio de firma.
func WithSigner(s Signer) DirectOption {
	return func(a *DirectAdapter) { a.signer = s }
}

// WithClock fija el reloj usado para la fecha de generación de RA/RC.
func WithClock(now func() time.Time) DirectOption {
	return func(a *DirectAdapter) { a.now = now }
}

// NewDirectAdapter construye el adaptador. Las credenciales se validan en NewAdapter.
func NewDirectAdapter(cfg DirectConfig, log zerolog.Logger, opts ...DirectOption) *DirectAdapter {
	if cfg.Environment == "" {
		cfg.Environment = infrasunat.EnvBeta
	}
	a := &DirectAdapter{
		cfg:     cfg,
		builder: infrasunat.NewXMLBuilderService(),
		signer:  signer.NewDigitalSignatureService(),
		client:  infrasunat.NewSOAPClient(cfg.Timeout),
		now:     time.Now,
		log:     log.With().Str("provider", entity.ProviderSUNAT).Str("ruc", cfg.RUC).Logger(),
	}
	a.load = a.loadFromConfig
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *DirectAdapter) Name() string { return entity.ProviderSUNAT }

func (a *DirectAdapter) SupportedDocumentTypes() []string { return invoiceFamily }

func (a *DirectAdapter) credentials() infrasunat.Credentials {
	return infrasunat.NewCredentials(a.cfg.RUC, a.cfg.SOLUser, a.cfg.SOLPassword)
}

func (a *DirectAdapter) loadFromConfig() (tls.Certificate, error) {
	if len(a.cfg.CertData) > 0 {
		return signer.ParseP12(a.cfg.CertData, a.cfg.CertPassword)
	}
	return signer.LoadFromP12(a.cfg.CertPath, a.cfg.CertPassword)
}

// certificate carga el certificado una sola vez; una falla no se cachea.
func (a *DirectAdapter) certificate() (tls.Certificate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cert != nil {
		return *a.cert, nil
	}
	cert, err := a.load()
	if err != nil {
		return tls.Certificate{}, err
	}
	a.cert = &cert
	return cert, nil
}

func (a *DirectAdapter) endpoint(docType string) (string, error) {
	if a.cfg.EndpointOverride != "" {
		return a.cfg.EndpointOverride, nil
	}
	return infrasunat.EndpointFor(infrasunat.FamilyFor(docType), a.cfg.Environment)
}

// sign firma y empaqueta el XML. Errores de certificado, firma o ZIP se propagan.
func (a *DirectAdapter) sign(xmlBytes []byte, base string) (*entity.SignedEnvelope, []byte, string, error) {
	cert, err := a.certificate()
	if err != nil {
		return nil, nil, "", err
	}
	env, err := a.signer.Sign(xmlBytes, cert)
	if err != nil {
		return nil, nil, "", err
	}
	xmlName, zipName := infrasunat.Filenames(base)
	archive, err := infrasunat.ZipDocument(xmlName, env.SignedXML)
	if err != nil {
		return nil, nil, "", err
	}
	return env, archive, zipName, nil
}

// SendDocument construye, firma, empaqueta y envía el comprobante con sendBill.
func (a *DirectAdapter) SendDocument(ctx context.Context, doc *entity.Document) (*entity.TransportResult, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	xmlBytes, err := a.builder.Build(doc)
	if err != nil {
		return nil, err
	}
	env, archive, zipName, err := a.sign(xmlBytes, infrasunat.DocumentBaseName(doc.Issuer.RUC, doc))
	if err != nil {
		return nil, err
	}
	endpoint, err := a.endpoint(doc.Type)
	if err != nil {
		return nil, err
	}

	log := a.log.With().Str("document_id", doc.ID).Str("number", doc.FullNumber()).Logger()
	log.Debug().Str("endpoint", endpoint).Str("file", zipName).Msg("sunat: sendBill")

	resp, err := a.client.SendBill(ctx, endpoint, a.credentials(), zipName, archive)
	result := a.resultFromBill(resp, err)
	result.Hash = env.DigestValue
	result.SignedXML = env.SignedXML

	log.Info().Str("status", result.Status).Str("code", result.ResponseCode).Msg("sunat: respuesta sendBill")
	return result, nil
}

func (a *DirectAdapter) resultFromBill(resp *infrasunat.SOAPResponse, err error) *entity.TransportResult {
	if err != nil {
		return exceptionResult("", err.Error())
	}
	if resp.Fault != nil {
		return faultResult(resp.Fault)
	}
	return resultFromCDR(resp.ApplicationResponse)
}

// QueryStatus consulta un ticket de sendSummary con getStatus.
func (a *DirectAdapter) QueryStatus(ctx context.Context, ticket string) (*entity.TransportResult, error) {
	if ticket == "" {
		return nil, fmt.Errorf("sunat: ticket vacío")
	}
	endpoint, err := a.endpoint(pkgsunat.DocTypeInvoice)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.GetStatus(ctx, endpoint, a.credentials(), ticket)
	if err != nil {
		res := exceptionResult("", err.Error())
		res.Ticket = ticket
		return res, nil
	}
	if resp.Fault != nil {
		res := faultResult(resp.Fault)
		res.Ticket = ticket
		return res, nil
	}

	var result *entity.TransportResult
	switch {
	case resp.StatusCode == pkgsunat.ResponseStatusProcessing:
		msg, _ := pkgsunat.ResponseMessage(resp.StatusCode)
		result = &entity.TransportResult{
			Status:          entity.DocumentStatusPending,
			ResponseCode:    resp.StatusCode,
			ResponseMessage: msg,
		}
	case len(resp.Content) > 0:
		result = resultFromCDR(resp.Content)
	case resp.StatusCode == pkgsunat.ResponseStatusWithErrors:
		msg, _ := pkgsunat.ResponseMessage(resp.StatusCode)
		result = &entity.TransportResult{
			Status:          entity.DocumentStatusRejected,
			ResponseCode:    resp.StatusCode,
			ResponseMessage: msg,
		}
	default:
		result = exceptionResult(resp.StatusCode, "getStatus sin constancia de recepción")
	}
	result.Ticket = ticket
	a.log.Info().Str("ticket", ticket).Str("status", result.Status).Str("code", result.ResponseCode).Msg("sunat: getStatus")
	return result, nil
}

// QueryCDR recupera la constancia de un comprobante ya enviado (servicio de consulta).
func (a *DirectAdapter) QueryCDR(ctx context.Context, doc *entity.Document) (*entity.TransportResult, error) {
	if doc == nil || doc.Issuer == nil {
		return nil, fmt.Errorf("sunat: documento sin emisor")
	}
	endpoint := infrasunat.ConsultEndpoint
	if a.cfg.EndpointOverride != "" {
		endpoint = a.cfg.EndpointOverride
	}
	resp, err := a.client.GetStatusCdr(ctx, endpoint, a.credentials(), doc.Issuer.RUC, doc.Type, doc.Series, doc.Number)
	if err != nil {
		return exceptionResult("", err.Error()), nil
	}
	if resp.Fault != nil {
		return faultResult(resp.Fault), nil
	}
	if len(resp.Content) == 0 {
		return exceptionResult(resp.StatusCode, resp.StatusMessage), nil
	}
	return resultFromCDR(resp.Content), nil
}

// VoidDocument comunica la baja: RA para facturas y sus notas, RC con condición 3 para boletas.
// Devuelve pending con el ticket; el resultado final se obtiene con QueryStatus.
func (a *DirectAdapter) VoidDocument(ctx context.Context, req *entity.VoidRequest) (*entity.TransportResult, error) {
	if err := validateVoidRequest(req); err != nil {
		return nil, err
	}
	doc := req.Document
	issue := req.IssueDate
	if issue.IsZero() {
		issue = a.now()
	}

	var xmlBytes []byte
	var batchID string
	var err error
	if doc.IsReceiptFamily() {
		batch := &infrasunat.SummaryBatch{
			Issuer:        doc.Issuer,
			Number:        req.BatchNumber,
			ReferenceDate: doc.IssueDate,
			IssueDate:     issue,
			Lines:         []infrasunat.SummaryLine{{Document: doc, Condition: pkgsunat.SummaryConditionVoid}},
		}
		batchID = batch.ID()
		xmlBytes, err = a.builder.BuildSummary(batch)
	} else {
		batch := &infrasunat.VoidedBatch{
			Issuer:        doc.Issuer,
			Number:        req.BatchNumber,
			ReferenceDate: doc.IssueDate,
			IssueDate:     issue,
			Lines: []infrasunat.VoidedLine{{
				DocumentType: doc.Type,
				Series:       doc.Series,
				Number:       doc.Number,
				Reason:       req.Reason,
			}},
		}
		batchID = batch.ID()
		xmlBytes, err = a.builder.BuildVoided(batch)
	}
	if err != nil {
		return nil, err
	}

	env, archive, zipName, err := a.sign(xmlBytes, infrasunat.BatchBaseName(doc.Issuer.RUC, batchID))
	if err != nil {
		return nil, err
	}
	endpoint, err := a.endpoint(doc.Type)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.SendSummary(ctx, endpoint, a.credentials(), zipName, archive)
	var result *entity.TransportResult
	switch {
	case err != nil:
		result = exceptionResult("", err.Error())
	case resp.Fault != nil:
		result = faultResult(resp.Fault)
	case resp.Ticket == "":
		result = exceptionResult("", "sendSummary no devolvió ticket")
	default:
		result = &entity.TransportResult{
			Status:          entity.DocumentStatusPending,
			Ticket:          resp.Ticket,
			ResponseMessage: fmt.Sprintf("Baja %s recibida, ticket %s", batchID, resp.Ticket),
		}
	}
	result.Hash = env.DigestValue
	result.SignedXML = env.SignedXML

	a.log.Info().Str("document_id", doc.ID).Str("batch", batchID).Str("ticket", result.Ticket).
		Str("status", result.Status).Msg("sunat: sendSummary")
	return result, nil
}

// faultResult convierte un SOAP Fault en un resultado exception con el código de SUNAT.
func faultResult(f *infrasunat.Fault) *entity.TransportResult {
	code := f.NumericCode()
	msg := f.Message
	if msg == "" {
		if known, ok := pkgsunat.ResponseMessage(code); ok {
			msg = known
		}
	}
	return exceptionResult(code, fmt.Sprintf("SOAP Fault [%s]: %s", f.Code, msg))
}

// resultFromCDR descomprime y clasifica la constancia de recepción.
func resultFromCDR(archive []byte) *entity.TransportResult {
	cdr, err := infrasunat.ParseCDR(archive)
	if err != nil {
		return exceptionResult("", "CDR ilegible: "+err.Error())
	}
	status := cdr.Status()
	return &entity.TransportResult{
		Success:         isSuccess(status),
		Status:          status,
		ResponseCode:    cdr.ResponseCode,
		ResponseMessage: cdr.Description,
		Notes:           cdr.Notes,
		CDR:             archive,
	}
}
